package workflow

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/card-batch-uploader/internal/config"
)

// Kind is the interaction a step performs.
type Kind int

const (
	// KindNavigate loads the URL in Value.
	KindNavigate Kind = iota
	// KindClick clicks Selector.
	KindClick
	// KindFill types Value into Selector.
	KindFill
	// KindSelect picks the option Value on Selector. Custom steps open
	// the control and click the option by its visible text instead of
	// driving a native select.
	KindSelect
	// KindUpload sends Paths to the file input Selector.
	KindUpload
	// KindWaitURL blocks until the page URL contains Value.
	KindWaitURL
	// KindExtract captures the batch identifier from the page.
	KindExtract
	// KindPause blocks on the operator's validation acknowledgment.
	KindPause
)

// Step is one declarative pipeline entry. The executor interprets steps in
// order; it holds no step-specific logic beyond the Kind switch.
type Step struct {
	Name     string
	State    State
	Kind     Kind
	Selector string
	Value    string
	Paths    []string

	// Custom marks a KindSelect step as a custom dropdown.
	Custom bool

	// Optional steps log their failure and let the folder continue.
	Optional bool

	// Settle is slept before the step runs, for pages that need a beat
	// to finish rendering.
	Settle time.Duration
}

// folderSteps builds the pipeline for one folder from the configuration.
// Steps for absent optional selectors are not emitted at all.
func folderSteps(cfg *config.Config, folder string, uploads []string) []Step {
	batchName := cfg.GeneralSettings.BatchName
	if batchName == "" {
		batchName = filepath.Base(folder)
	}

	sel := func(name string) string {
		s, _ := cfg.Selector(name)
		return s
	}

	steps := []Step{
		{Name: "open_batches", State: FillingSettings, Kind: KindNavigate, Value: cfg.URLs.Batches},
		{Name: "create_batch_button", State: FillingSettings, Kind: KindClick, Selector: sel("create_batch_button")},
	}
	if cfg.URLs.GeneralSettings != "" {
		steps = append(steps, Step{
			Name:  "general_settings_page",
			State: FillingSettings,
			Kind:  KindWaitURL,
			Value: cfg.URLs.GeneralSettings,
		})
	}
	steps = append(steps, Step{
		Name: "batch_name_input", State: FillingSettings, Kind: KindFill,
		Selector: sel("batch_name_input"), Value: batchName,
	})

	settings := []struct {
		name  string
		value string
	}{
		{"batch_type_select", cfg.GeneralSettings.BatchType},
		{"sport_type_select", cfg.GeneralSettings.SportType},
		{"title_template_select", cfg.GeneralSettings.TitleTemplate},
	}
	for _, s := range settings {
		selector, ok := cfg.Selector(s.name)
		if !ok || s.value == "" {
			continue
		}
		steps = append(steps, Step{
			Name:     s.name,
			State:    FillingSettings,
			Kind:     KindSelect,
			Selector: selector,
			Value:    s.value,
			Custom:   cfg.IsCustom(s.name),
		})
	}
	if selector, ok := cfg.Selector("description_input"); ok && cfg.GeneralSettings.Description != "" {
		steps = append(steps, Step{
			Name:     "description_input",
			State:    FillingSettings,
			Kind:     KindFill,
			Selector: selector,
			Value:    cfg.GeneralSettings.Description,
		})
	}

	steps = append(steps, Step{
		Name:     "continue_button_general",
		State:    CreatingBatch,
		Kind:     KindClick,
		Selector: sel("continue_button_general"),
	})

	steps = append(steps, optionalDetailSteps(cfg)...)

	steps = append(steps,
		Step{Name: "create_batch_submit", State: CreatingBatch, Kind: KindClick, Selector: sel("create_batch_submit")},
		Step{Name: "extract_batch_id", State: ExtractingID, Kind: KindExtract},
		Step{Name: "magic_scan_button", State: SelectingSides, Kind: KindClick, Selector: sel("magic_scan_button")},
	)

	steps = append(steps, scanOptionSteps(cfg)...)

	steps = append(steps,
		Step{Name: "upload_files", State: Uploading, Kind: KindUpload, Selector: sel("upload_file_input"), Paths: uploads},
		Step{Name: "upload_continue_button", State: Uploading, Kind: KindClick, Selector: sel("upload_continue_button"), Settle: 2 * time.Second},
		Step{Name: "await_validation", State: AwaitingValidation, Kind: KindPause},
	)

	return steps
}

// optionalDetailSteps emits one step per configured optional detail whose
// selector is registered. Every field is individually skip-if-absent.
func optionalDetailSteps(cfg *config.Config) []Step {
	names := make([]string, 0, len(cfg.OptionalDetails))
	for name := range cfg.OptionalDetails {
		names = append(names, name)
	}
	sort.Strings(names)

	var steps []Step
	for _, name := range names {
		selName := "optional_" + name
		selector, ok := cfg.Selector(selName)
		if !ok {
			log.Warn().Str("field", name).Msg("No selector for optional detail, skipping")
			continue
		}
		step := Step{
			Name:     selName,
			State:    CreatingBatch,
			Selector: selector,
			Value:    cfg.OptionalDetails[name],
			Optional: true,
		}
		if cfg.IsCustom(selName) {
			step.Kind = KindSelect
			step.Custom = true
		} else {
			step.Kind = KindFill
		}
		steps = append(steps, step)
	}
	return steps
}

// expandSelector substitutes value into a selector template. Selectors
// without a placeholder are used verbatim.
func expandSelector(selector, value string) string {
	if strings.Contains(selector, "%s") {
		return fmt.Sprintf(selector, value)
	}
	return selector
}

// scanOptionSteps emits the magic-scan page selections. The card type radio
// is best effort; some batch types never render it.
func scanOptionSteps(cfg *config.Config) []Step {
	var steps []Step

	if cfg.ScanOptions.CardType != "" {
		if selector, ok := cfg.Selector("scan_card_type_radio"); ok {
			steps = append(steps, Step{
				Name:     "scan_card_type_radio",
				State:    SelectingSides,
				Kind:     KindClick,
				Selector: expandSelector(selector, cfg.ScanOptions.CardType),
				Optional: true,
			})
		}
	}

	if cfg.ScanOptions.Sides != "" {
		if selector, ok := cfg.Selector("scan_sides_option"); ok {
			steps = append(steps, Step{
				Name:     "scan_sides_option",
				State:    SelectingSides,
				Kind:     KindClick,
				Selector: expandSelector(selector, cfg.ScanOptions.Sides),
			})
		} else if selector, ok := cfg.Selector("scan_sides_select"); ok {
			steps = append(steps, Step{
				Name:     "scan_sides_select",
				State:    SelectingSides,
				Kind:     KindSelect,
				Selector: selector,
				Value:    cfg.ScanOptions.Sides,
				Custom:   cfg.IsCustom("scan_sides_select"),
			})
		}
	}

	return steps
}
