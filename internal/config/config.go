// Package config loads and validates the upload run configuration.
//
// The configuration file supplies everything that is site-specific: page
// URLs, form field values, and the complete CSS selector map the workflow
// drives the browser with. Selectors whose companion "<name>_type" key is
// "custom" are filled through the custom-dropdown interaction (open the
// control, then click the option by visible text) instead of a native
// <select> interaction.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the configuration is looked up when --config is not given.
const DefaultPath = "config/upload.yaml"

const (
	defaultTimeout       = 15 * time.Second
	defaultLoginAttempts = 3

	// Matches site URLs shaped like /batches/{batch_id}/add/types.
	defaultBatchIDPattern = `/batches/([^/]+)/add`
)

// defaultBatchIDFallbacks is the DOM lookup order used when the URL pattern
// yields no batch identifier.
var defaultBatchIDFallbacks = []string{
	`input[name="batch_id"]`,
	`[data-batch-id]`,
	`.batch-info [data-id]`,
	`#batch_id`,
}

// URLs holds the site entry points driven by the workflow.
type URLs struct {
	Login           string `yaml:"login"`
	Batches         string `yaml:"batches"`
	GeneralSettings string `yaml:"general_settings"`
}

// GeneralSettings holds the values for the batch-creation settings page.
// BatchName is optional; when empty the current folder's base name is used.
type GeneralSettings struct {
	BatchName     string `yaml:"batch_name"`
	BatchType     string `yaml:"batch_type"`
	SportType     string `yaml:"sport_type"`
	TitleTemplate string `yaml:"title_template"`
	Description   string `yaml:"description"`
}

// ScanOptions holds the optional magic-scan page selections.
type ScanOptions struct {
	CardType string `yaml:"card_type"`
	Sides    string `yaml:"sides"`
}

// Config is the full run configuration.
type Config struct {
	DefaultImagesPath string            `yaml:"default_images_path"`
	TimeoutSeconds    int               `yaml:"timeout_seconds"`
	LoginAttempts     int               `yaml:"login_attempts"`
	BatchIDPattern    string            `yaml:"batch_id_pattern"`
	BatchIDFallbacks  []string          `yaml:"batch_id_fallbacks"`
	URLs              URLs              `yaml:"urls"`
	GeneralSettings   GeneralSettings   `yaml:"general_settings"`
	OptionalDetails   map[string]string `yaml:"optional_details"`
	ScanOptions       ScanOptions       `yaml:"scan_options"`
	Selectors         map[string]string `yaml:"selectors"`

	batchIDRegexp *regexp.Regexp
}

// ValidationError reports a missing or invalid configuration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Load reads the YAML configuration at path, applies defaults, and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("path", path).
		Int("selectors", len(cfg.Selectors)).
		Int("optional_details", len(cfg.OptionalDetails)).
		Msg("Configuration loaded")

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = int(defaultTimeout / time.Second)
	}
	if c.LoginAttempts <= 0 {
		c.LoginAttempts = defaultLoginAttempts
	}
	if c.BatchIDPattern == "" {
		c.BatchIDPattern = defaultBatchIDPattern
	}
	if len(c.BatchIDFallbacks) == 0 {
		c.BatchIDFallbacks = defaultBatchIDFallbacks
	}
}

// requiredSelectors are the selectors every run needs regardless of which
// optional features are configured.
var requiredSelectors = []string{
	"username_input",
	"password_input",
	"login_button",
	"create_batch_button",
	"batch_name_input",
	"continue_button_general",
	"create_batch_submit",
	"magic_scan_button",
	"upload_file_input",
	"upload_continue_button",
}

// Validate checks that every required field is present. It returns a
// *ValidationError naming the first missing field.
func (c *Config) Validate() error {
	if c.URLs.Login == "" {
		return &ValidationError{Field: "urls.login", Reason: "required"}
	}
	if c.URLs.Batches == "" {
		return &ValidationError{Field: "urls.batches", Reason: "required"}
	}
	if len(c.Selectors) == 0 {
		return &ValidationError{Field: "selectors", Reason: "required"}
	}
	for _, name := range requiredSelectors {
		if c.Selectors[name] == "" {
			return &ValidationError{Field: "selectors." + name, Reason: "required"}
		}
	}

	re, err := regexp.Compile(c.BatchIDPattern)
	if err != nil {
		return &ValidationError{Field: "batch_id_pattern", Reason: err.Error()}
	}
	if re.NumSubexp() < 1 {
		return &ValidationError{Field: "batch_id_pattern", Reason: "pattern must capture the batch id"}
	}
	c.batchIDRegexp = re

	return nil
}

// Timeout returns the default element wait timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BatchIDRegexp returns the compiled batch-id extraction pattern.
// Validate must have succeeded first.
func (c *Config) BatchIDRegexp() *regexp.Regexp {
	if c.batchIDRegexp == nil {
		c.batchIDRegexp = regexp.MustCompile(c.BatchIDPattern)
	}
	return c.batchIDRegexp
}

// Selector returns the selector registered under name, if any.
func (c *Config) Selector(name string) (string, bool) {
	sel, ok := c.Selectors[name]
	return sel, ok && sel != ""
}

// IsCustom reports whether the named selector is marked as a custom dropdown
// via its companion "<name>_type" key.
func (c *Config) IsCustom(name string) bool {
	return c.Selectors[name+"_type"] == "custom"
}

// ResolveFolder resolves a folder argument: absolute paths are used as-is,
// bare names are joined onto default_images_path.
func (c *Config) ResolveFolder(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if c.DefaultImagesPath == "" {
		abs, err := filepath.Abs(name)
		if err != nil {
			return name
		}
		return abs
	}
	return filepath.Join(c.DefaultImagesPath, name)
}
