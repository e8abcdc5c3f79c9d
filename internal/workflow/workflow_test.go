package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fpang/card-batch-uploader/internal/auth"
	"github.com/fpang/card-batch-uploader/internal/browser"
	"github.com/fpang/card-batch-uploader/internal/config"
)

// fakeDriver records every interaction and plays back scripted responses.
type fakeDriver struct {
	url string

	// clickURL maps a selector to the URL the page lands on after the click.
	clickURL map[string]string
	// failClicks maps a selector to a count of transient failures to raise
	// before the click succeeds.
	failClicks map[string]int
	// failAlways maps a selector to a permanent error.
	failAlways map[string]error

	values map[string]string
	texts  map[string]string

	calls []string
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		clickURL:   map[string]string{},
		failClicks: map[string]int{},
		failAlways: map[string]error{},
		values:     map[string]string{},
		texts:      map[string]string{},
	}
}

func (d *fakeDriver) record(format string, args ...any) {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

func (d *fakeDriver) count(prefix string) int {
	n := 0
	for _, c := range d.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (d *fakeDriver) Navigate(_ context.Context, url string) error {
	d.record("navigate:%s", url)
	d.url = url
	return nil
}

func (d *fakeDriver) WaitVisible(_ context.Context, selector string) error {
	d.record("wait:%s", selector)
	return nil
}

func (d *fakeDriver) Click(_ context.Context, selector string) error {
	d.record("click:%s", selector)
	if err, ok := d.failAlways[selector]; ok {
		return err
	}
	if d.failClicks[selector] > 0 {
		d.failClicks[selector]--
		return errors.New("could not find node")
	}
	if next, ok := d.clickURL[selector]; ok {
		d.url = next
	}
	return nil
}

func (d *fakeDriver) ClickText(_ context.Context, text string) error {
	d.record("clicktext:%s", text)
	return nil
}

func (d *fakeDriver) Fill(_ context.Context, selector, text string) error {
	d.record("fill:%s=%s", selector, text)
	return nil
}

func (d *fakeDriver) SelectOption(_ context.Context, selector, text string) error {
	d.record("select:%s=%s", selector, text)
	return nil
}

func (d *fakeDriver) Upload(_ context.Context, selector string, paths []string) error {
	d.record("upload:%s:%d", selector, len(paths))
	return nil
}

func (d *fakeDriver) Text(_ context.Context, selector string) (string, error) {
	if t, ok := d.texts[selector]; ok {
		return t, nil
	}
	return "", errors.New("no nodes match")
}

func (d *fakeDriver) Value(_ context.Context, selector string) (string, error) {
	if v, ok := d.values[selector]; ok {
		return v, nil
	}
	return "", errors.New("no nodes match")
}

func (d *fakeDriver) CurrentURL(_ context.Context) (string, error) {
	return d.url, nil
}

func (d *fakeDriver) Close() error { return nil }

const (
	loginURL      = "https://site.test/login"
	batchesURL    = "https://site.test/batches"
	postCreateURL = "https://site.test/batches/ABC123/add/types"
)

func testConfig() *config.Config {
	return &config.Config{
		TimeoutSeconds:   1,
		LoginAttempts:    3,
		BatchIDPattern:   `/batches/([^/]+)/add`,
		BatchIDFallbacks: []string{`input[name="batch_id"]`, `[data-batch-id]`},
		URLs:             config.URLs{Login: loginURL, Batches: batchesURL},
		GeneralSettings: config.GeneralSettings{
			BatchType:     "Sports Cards",
			SportType:     "Baseball",
			TitleTemplate: "Standard",
			Description:   "Bulk upload",
		},
		ScanOptions: config.ScanOptions{CardType: "raw", Sides: "front_and_back"},
		Selectors: map[string]string{
			"username_input":          "#username",
			"password_input":          "#password",
			"login_button":            "#login",
			"create_batch_button":     "#create-batch",
			"batch_name_input":        "#batch-name",
			"batch_type_select":       "#batch-type",
			"sport_type_select":       "#sport-type",
			"title_template_select":   "#title-template",
			"description_input":       "#description",
			"continue_button_general": "#continue-general",
			"create_batch_submit":     "#create-submit",
			"magic_scan_button":       "#magic-scan",
			"scan_card_type_radio":    `input[name="card_type"][value="%s"]`,
			"scan_sides_option":       `div[data-sides="%s"]`,
			"upload_file_input":       "#file-input",
			"upload_continue_button":  "#upload-continue",
		},
	}
}

// newTestRunner wires a Runner to the fake driver with all sleeps removed
// and a recording confirm function.
func newTestRunner(d *fakeDriver, cfg *config.Config) (*Runner, *[]string) {
	r := New(d, cfg, auth.Credentials{Username: "user", Password: "secret"})
	r.sleep = func(time.Duration) {}
	r.retry = browser.Policy{Attempts: 3, Sleep: func(time.Duration) {}}

	var confirmed []string
	r.SetConfirm(func(folder, batchID string, images int) error {
		confirmed = append(confirmed, fmt.Sprintf("%s:%s:%d", filepath.Base(folder), batchID, images))
		return nil
	})
	return r, &confirmed
}

func writeCardFolder(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
			t.Fatalf("write fixture %s: %v", name, err)
		}
	}
	return dir
}

func TestRunAllHappyPath(t *testing.T) {
	d := newFakeDriver()
	d.clickURL["#login"] = batchesURL
	d.clickURL["#create-submit"] = postCreateURL

	cfg := testConfig()
	r, confirmed := newTestRunner(d, cfg)

	folder := writeCardFolder(t, "front_1.jpg", "front_2.jpg", "back_1.jpg", "back_2.jpg")
	summaries, err := r.RunAll(context.Background(), []string{folder})
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}

	s := summaries[0]
	if s.Status != Done {
		t.Errorf("Status = %s, want done (step %s: %s)", s.Status, s.LastStep, s.Err)
	}
	if s.BatchID != "ABC123" {
		t.Errorf("BatchID = %q, want %q", s.BatchID, "ABC123")
	}
	if s.Images != 4 {
		t.Errorf("Images = %d, want 4", s.Images)
	}

	wantCalls := []string{
		"fill:#username=user",
		"fill:#password=secret",
		"fill:#batch-name=" + filepath.Base(folder),
		"select:#batch-type=Sports Cards",
		"select:#sport-type=Baseball",
		"fill:#description=Bulk upload",
		`click:input[name="card_type"][value="raw"]`,
		`click:div[data-sides="front_and_back"]`,
		"upload:#file-input:4",
		"click:#upload-continue",
	}
	joined := strings.Join(d.calls, "\n")
	for _, want := range wantCalls {
		if !strings.Contains(joined, want) {
			t.Errorf("missing call %q in:\n%s", want, joined)
		}
	}

	want := fmt.Sprintf("%s:ABC123:4", filepath.Base(folder))
	if len(*confirmed) != 1 || (*confirmed)[0] != want {
		t.Errorf("confirm calls = %v, want [%s]", *confirmed, want)
	}
}

func TestLoginHappensOncePerInvocation(t *testing.T) {
	d := newFakeDriver()
	d.clickURL["#login"] = batchesURL
	d.clickURL["#create-submit"] = postCreateURL

	r, _ := newTestRunner(d, testConfig())

	first := writeCardFolder(t, "front_1.jpg")
	second := writeCardFolder(t, "back_1.jpg")
	if _, err := r.RunAll(context.Background(), []string{first, second}); err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}
	if got := d.count("navigate:" + loginURL); got != 1 {
		t.Errorf("login page opened %d times, want 1", got)
	}
}

func TestLoginFailureAbortsInvocation(t *testing.T) {
	d := newFakeDriver()
	d.failAlways["#login"] = errors.New("invalid credentials")

	r, _ := newTestRunner(d, testConfig())

	folder := writeCardFolder(t, "front_1.jpg")
	summaries, err := r.RunAll(context.Background(), []string{folder})
	if !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("RunAll() error = %v, want ErrLoginFailed", err)
	}
	if summaries != nil {
		t.Errorf("got %d summaries, want none", len(summaries))
	}
	if got := d.count("navigate:" + loginURL); got != 3 {
		t.Errorf("login attempted %d times, want 3", got)
	}
}

func TestClickRetriesTransientFailure(t *testing.T) {
	d := newFakeDriver()
	d.clickURL["#login"] = batchesURL
	d.clickURL["#create-submit"] = postCreateURL
	d.failClicks["#create-batch"] = 1

	r, _ := newTestRunner(d, testConfig())

	folder := writeCardFolder(t, "front_1.jpg")
	summaries, err := r.RunAll(context.Background(), []string{folder})
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}
	if summaries[0].Status != Done {
		t.Errorf("Status = %s, want done (%s)", summaries[0].Status, summaries[0].Err)
	}
	if got := d.count("click:#create-batch"); got != 2 {
		t.Errorf("create batch clicked %d times, want 2", got)
	}
}

func TestFolderFailureDoesNotStopNextFolder(t *testing.T) {
	d := newFakeDriver()
	d.clickURL["#login"] = batchesURL
	d.clickURL["#create-submit"] = postCreateURL
	d.failClicks["#create-batch"] = 3

	r, _ := newTestRunner(d, testConfig())

	first := writeCardFolder(t, "front_1.jpg")
	second := writeCardFolder(t, "front_2.jpg")
	summaries, err := r.RunAll(context.Background(), []string{first, second})
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	if summaries[0].Status != Failed {
		t.Errorf("first folder Status = %s, want failed", summaries[0].Status)
	}
	if summaries[0].LastStep != "create_batch_button" {
		t.Errorf("first folder LastStep = %q, want create_batch_button", summaries[0].LastStep)
	}
	if summaries[1].Status != Done {
		t.Errorf("second folder Status = %s, want done (%s)", summaries[1].Status, summaries[1].Err)
	}
}

func TestExtractFallsBackToDOM(t *testing.T) {
	d := newFakeDriver()
	d.clickURL["#login"] = batchesURL
	// Submit lands on a URL the pattern does not match.
	d.clickURL["#create-submit"] = "https://site.test/batches"
	d.texts["[data-batch-id]"] = " XYZ987 "

	r, _ := newTestRunner(d, testConfig())

	folder := writeCardFolder(t, "front_1.jpg")
	summaries, err := r.RunAll(context.Background(), []string{folder})
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}
	if summaries[0].Status != Done {
		t.Fatalf("Status = %s, want done (%s)", summaries[0].Status, summaries[0].Err)
	}
	if summaries[0].BatchID != "XYZ987" {
		t.Errorf("BatchID = %q, want XYZ987", summaries[0].BatchID)
	}
}

func TestExtractionFailureFailsFolder(t *testing.T) {
	d := newFakeDriver()
	d.clickURL["#login"] = batchesURL
	d.clickURL["#create-submit"] = "https://site.test/batches"

	r, _ := newTestRunner(d, testConfig())

	folder := writeCardFolder(t, "front_1.jpg")
	summary := mustLoginAndRun(t, r, folder)
	if summary.Status != Failed {
		t.Fatalf("Status = %s, want failed", summary.Status)
	}
	if summary.LastStep != "extract_batch_id" {
		t.Errorf("LastStep = %q, want extract_batch_id", summary.LastStep)
	}
	if !strings.Contains(summary.Err, "extraction failed") {
		t.Errorf("Err = %q, want extraction failure", summary.Err)
	}
}

func TestFolderNotFoundFailsAtRotation(t *testing.T) {
	d := newFakeDriver()
	d.clickURL["#login"] = batchesURL

	r, _ := newTestRunner(d, testConfig())

	summary := mustLoginAndRun(t, r, filepath.Join(t.TempDir(), "missing"))
	if summary.Status != Failed {
		t.Fatalf("Status = %s, want failed", summary.Status)
	}
	if summary.LastStep != "rotate" {
		t.Errorf("LastStep = %q, want rotate", summary.LastStep)
	}
}

func TestWaitsForGeneralSettingsPage(t *testing.T) {
	d := newFakeDriver()
	d.clickURL["#login"] = batchesURL
	d.clickURL["#create-batch"] = "https://site.test/batches/new/general-settings"
	d.clickURL["#create-submit"] = postCreateURL

	cfg := testConfig()
	cfg.URLs.GeneralSettings = "general-settings"

	r, _ := newTestRunner(d, cfg)

	folder := writeCardFolder(t, "front_1.jpg")
	summary := mustLoginAndRun(t, r, folder)
	if summary.Status != Done {
		t.Fatalf("Status = %s, want done (step %s: %s)", summary.Status, summary.LastStep, summary.Err)
	}
}

func TestOptionalDetailsSkipWhenSelectorAbsent(t *testing.T) {
	d := newFakeDriver()
	d.clickURL["#login"] = batchesURL
	d.clickURL["#create-submit"] = postCreateURL

	cfg := testConfig()
	cfg.OptionalDetails = map[string]string{"grader": "PSA", "notes": "vintage lot"}
	cfg.Selectors["optional_grader"] = "#grader"

	r, _ := newTestRunner(d, cfg)

	folder := writeCardFolder(t, "front_1.jpg")
	summary := mustLoginAndRun(t, r, folder)
	if summary.Status != Done {
		t.Fatalf("Status = %s, want done (%s)", summary.Status, summary.Err)
	}
	if got := d.count("fill:#grader=PSA"); got != 1 {
		t.Errorf("grader filled %d times, want 1", got)
	}
	for _, c := range d.calls {
		if strings.Contains(c, "notes") {
			t.Errorf("unexpected call for detail with no selector: %s", c)
		}
	}
}

func TestCustomDropdownRoutesToClickByText(t *testing.T) {
	d := newFakeDriver()
	d.clickURL["#login"] = batchesURL
	d.clickURL["#create-submit"] = postCreateURL

	cfg := testConfig()
	cfg.Selectors["batch_type_select_type"] = "custom"

	r, _ := newTestRunner(d, cfg)

	folder := writeCardFolder(t, "front_1.jpg")
	summary := mustLoginAndRun(t, r, folder)
	if summary.Status != Done {
		t.Fatalf("Status = %s, want done (%s)", summary.Status, summary.Err)
	}
	if got := d.count("click:#batch-type"); got != 1 {
		t.Errorf("custom dropdown opened %d times, want 1", got)
	}
	if got := d.count("clicktext:Sports Cards"); got != 1 {
		t.Errorf("option clicked by text %d times, want 1", got)
	}
	if got := d.count("select:#batch-type"); got != 0 {
		t.Errorf("native select used %d times for a custom dropdown", got)
	}
}

func TestOptionalStepFailureTolerated(t *testing.T) {
	d := newFakeDriver()
	d.clickURL["#login"] = batchesURL
	d.clickURL["#create-submit"] = postCreateURL
	d.failAlways[`input[name="card_type"][value="raw"]`] = errors.New("element not interactable")

	r, _ := newTestRunner(d, testConfig())

	folder := writeCardFolder(t, "front_1.jpg")
	summary := mustLoginAndRun(t, r, folder)
	if summary.Status != Done {
		t.Errorf("Status = %s, want done despite optional step failure (%s)", summary.Status, summary.Err)
	}
}

func mustLoginAndRun(t *testing.T, r *Runner, folder string) RunSummary {
	t.Helper()
	if err := r.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	return r.RunFolder(context.Background(), folder)
}
