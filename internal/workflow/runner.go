// Package workflow sequences the card batch upload. One Runner drives one
// browser session through a declarative step pipeline per folder: rotate the
// images on disk, create a batch through the site's forms, capture the batch
// identifier, upload every image, then hold for operator validation. A
// failed folder is recorded and the run moves on; only a failed login stops
// the invocation.
package workflow

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/card-batch-uploader/internal/auth"
	"github.com/fpang/card-batch-uploader/internal/browser"
	"github.com/fpang/card-batch-uploader/internal/config"
	"github.com/fpang/card-batch-uploader/internal/rotate"
)

const (
	loginBackoff = 2 * time.Second
	urlPollEvery = 250 * time.Millisecond
)

// ConfirmFunc blocks until the operator has validated the uploaded batch.
type ConfirmFunc func(folder, batchID string, images int) error

// RunSummary is the outcome of one folder.
type RunSummary struct {
	Folder   string
	Images   int
	BatchID  string
	Status   State
	LastStep string
	Err      string
	Elapsed  time.Duration
}

// Runner executes the upload pipeline against a single browser session.
// It is not safe for concurrent use; folders run strictly one at a time.
type Runner struct {
	drv   browser.Driver
	cfg   *config.Config
	creds auth.Credentials

	retry    browser.Policy
	confirm  ConfirmFunc
	loggedIn bool

	sleep func(time.Duration)
	now   func() time.Time
}

// New returns a Runner with the default retry policy and a stdin-based
// validation prompt.
func New(drv browser.Driver, cfg *config.Config, creds auth.Credentials) *Runner {
	return &Runner{
		drv:     drv,
		cfg:     cfg,
		creds:   creds,
		retry:   browser.DefaultPolicy(),
		confirm: promptConfirm,
		sleep:   time.Sleep,
		now:     time.Now,
	}
}

// SetConfirm replaces the validation acknowledgment function.
func (r *Runner) SetConfirm(fn ConfirmFunc) {
	if fn != nil {
		r.confirm = fn
	}
}

// RunAll logs in once, then runs every folder in order. Folder failures are
// recorded in the summaries and never stop the following folders; a login
// failure returns ErrLoginFailed with no folders attempted.
func (r *Runner) RunAll(ctx context.Context, folders []string) ([]RunSummary, error) {
	if err := r.Login(ctx); err != nil {
		return nil, err
	}

	summaries := make([]RunSummary, 0, len(folders))
	for _, folder := range folders {
		summaries = append(summaries, r.RunFolder(ctx, folder))
		if err := ctx.Err(); err != nil {
			return summaries, err
		}
	}
	return summaries, nil
}

// Login authenticates the browser session, retrying the whole login flow up
// to the configured attempt count. It is a no-op once a login has succeeded.
func (r *Runner) Login(ctx context.Context) error {
	if r.loggedIn {
		return nil
	}

	attempts := r.cfg.LoginAttempts
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err = r.loginOnce(ctx); err == nil {
			r.loggedIn = true
			log.Info().Int("attempt", attempt).Msg("Logged in")
			return r.postLoginContinue(ctx)
		}
		log.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", attempts).Msg("Login attempt failed")
		if attempt < attempts {
			r.sleep(loginBackoff)
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrLoginFailed, attempts, err)
}

func (r *Runner) loginOnce(ctx context.Context) error {
	if err := r.drv.Navigate(ctx, r.cfg.URLs.Login); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}

	username, _ := r.cfg.Selector("username_input")
	password, _ := r.cfg.Selector("password_input")
	button, _ := r.cfg.Selector("login_button")

	if err := r.drv.Fill(ctx, username, r.creds.Username); err != nil {
		return fmt.Errorf("failed to fill username: %w", err)
	}
	if err := r.drv.Fill(ctx, password, r.creds.Password); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}
	if err := r.drv.Click(ctx, button); err != nil {
		return fmt.Errorf("failed to submit login: %w", err)
	}

	// A successful login redirects to the batches area.
	return r.waitURLContains(ctx, r.cfg.URLs.Batches)
}

// postLoginContinue clicks through an interstitial continue button when one
// is configured. Its absence on the page is tolerated.
func (r *Runner) postLoginContinue(ctx context.Context) error {
	selector, ok := r.cfg.Selector("continue_button")
	if !ok {
		return nil
	}
	if err := r.drv.Click(ctx, selector); err != nil {
		log.Debug().Err(err).Msg("No post-login continue button, proceeding")
	}
	return nil
}

// waitURLContains polls until the current URL contains fragment.
func (r *Runner) waitURLContains(ctx context.Context, fragment string) error {
	deadline := r.now().Add(r.cfg.Timeout())
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		current, err := r.drv.CurrentURL(ctx)
		if err != nil {
			return fmt.Errorf("failed to read current url: %w", err)
		}
		if strings.Contains(current, fragment) {
			return nil
		}
		if r.now().After(deadline) {
			return fmt.Errorf("page %s never reached %s within %s", current, fragment, r.cfg.Timeout())
		}
		r.sleep(urlPollEvery)
	}
}

// RunFolder runs the full pipeline for one folder and reports its outcome.
// Failures are captured in the summary, never returned.
func (r *Runner) RunFolder(ctx context.Context, folder string) RunSummary {
	start := r.now()
	summary := RunSummary{Folder: folder, Status: Pending}
	fail := func(state State, step string, err error) RunSummary {
		summary.Status = Failed
		summary.LastStep = step
		summary.Err = err.Error()
		summary.Elapsed = r.now().Sub(start)
		log.Error().Err(err).Str("folder", folder).Stringer("state", state).Str("step", step).Msg("Folder failed")
		return summary
	}

	log.Info().Str("folder", folder).Msg("Starting folder")

	summary.Status = Rotating
	result, err := rotate.Rewrite(folder)
	if err != nil {
		return fail(Rotating, "rotate", err)
	}
	uploads := result.UploadPaths()
	summary.Images = len(uploads)
	if len(uploads) == 0 {
		return fail(Rotating, "rotate", fmt.Errorf("%w in %s", ErrNoImages, folder))
	}

	for _, step := range folderSteps(r.cfg, folder, uploads) {
		summary.Status = step.State
		if err := r.execStep(ctx, &summary, step); err != nil {
			if step.Optional {
				log.Warn().Err(err).Str("step", step.Name).Msg("Optional step failed, continuing")
				continue
			}
			return fail(step.State, step.Name, err)
		}
	}

	summary.Status = Done
	summary.Elapsed = r.now().Sub(start)
	log.Info().
		Str("folder", folder).
		Str("batch_id", summary.BatchID).
		Int("images", summary.Images).
		Dur("elapsed", summary.Elapsed).
		Msg("Folder done")
	return summary
}

// execStep interprets one pipeline step. Element interactions go through the
// retry policy; navigation, extraction, and the validation pause do not.
func (r *Runner) execStep(ctx context.Context, summary *RunSummary, step Step) error {
	if step.Settle > 0 {
		r.sleep(step.Settle)
	}
	log.Debug().Str("step", step.Name).Stringer("state", step.State).Msg("Executing step")

	switch step.Kind {
	case KindNavigate:
		return r.drv.Navigate(ctx, step.Value)

	case KindClick:
		return r.retry.Do(ctx, step.Name, func() error {
			return r.drv.Click(ctx, step.Selector)
		})

	case KindFill:
		return r.retry.Do(ctx, step.Name, func() error {
			return r.drv.Fill(ctx, step.Selector, step.Value)
		})

	case KindSelect:
		return r.retry.Do(ctx, step.Name, func() error {
			if step.Custom {
				if err := r.drv.Click(ctx, step.Selector); err != nil {
					return err
				}
				return r.drv.ClickText(ctx, step.Value)
			}
			return r.drv.SelectOption(ctx, step.Selector, step.Value)
		})

	case KindUpload:
		return r.retry.Do(ctx, step.Name, func() error {
			return r.drv.Upload(ctx, step.Selector, step.Paths)
		})

	case KindWaitURL:
		return r.waitURLContains(ctx, step.Value)

	case KindExtract:
		id, err := r.extractBatchID(ctx)
		if err != nil {
			return err
		}
		summary.BatchID = id
		return nil

	case KindPause:
		return r.confirm(summary.Folder, summary.BatchID, summary.Images)

	default:
		return fmt.Errorf("unknown step kind %d for %s", step.Kind, step.Name)
	}
}

// promptConfirm is the default validation pause: report the batch and block
// until the operator presses Enter.
func promptConfirm(folder, batchID string, images int) error {
	fmt.Fprintf(os.Stderr, "\nBatch %s for %s holds %d images.\nValidate the batch in the browser, then press Enter to continue: ",
		batchID, folder, images)
	if _, err := bufio.NewReader(os.Stdin).ReadString('\n'); err != nil {
		return fmt.Errorf("failed to read acknowledgment: %w", err)
	}
	return nil
}
