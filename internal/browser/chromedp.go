package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// Options configures the Chrome session.
type Options struct {
	// Headless runs the browser with no visible window.
	Headless bool

	// Timeout bounds each element wait. Zero means 15 seconds.
	Timeout time.Duration
}

// Chrome drives a single Chrome instance over the DevTools protocol. It is
// the production Driver. One instance holds one browser session; it is never
// accessed concurrently.
type Chrome struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	timeout     time.Duration
}

var _ Driver = (*Chrome)(nil)

// New launches Chrome and returns a connected driver.
func New(ctx context.Context, o Options) (*Chrome, error) {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
	}
	if o.Headless {
		opts = append(opts,
			chromedp.Headless,
			chromedp.Flag("disable-gpu", true),
		)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser now so launch failures surface here rather than on
	// the first workflow step.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	log.Info().Bool("headless", o.Headless).Dur("timeout", timeout).Msg("Browser session started")

	return &Chrome{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
		timeout:     timeout,
	}, nil
}

// run executes actions against the browser session, bounded by the element
// wait timeout and by the caller's context.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// Navigate loads url.
func (c *Chrome) Navigate(ctx context.Context, url string) error {
	log.Debug().Str("url", url).Msg("Navigating")
	return c.run(ctx, chromedp.Navigate(url))
}

// WaitVisible blocks until the element is visible.
func (c *Chrome) WaitVisible(ctx context.Context, selector string) error {
	return c.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// Click scrolls the element into view and clicks it.
func (c *Chrome) Click(ctx context.Context, selector string) error {
	return c.run(ctx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
}

// ClickText clicks the first element whose trimmed text equals text.
func (c *Chrome) ClickText(ctx context.Context, text string) error {
	xpath := fmt.Sprintf(`//*[normalize-space(text())=%q]`, text)
	return c.run(ctx, chromedp.Click(xpath, chromedp.BySearch))
}

// Fill clears the input and types text into it.
func (c *Chrome) Fill(ctx context.Context, selector string, text string) error {
	return c.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

// SelectOption selects the <select> option matching text by visible text,
// falling back to the option value attribute, and fires a change event the
// way a real selection would.
func (c *Chrome) SelectOption(ctx context.Context, selector string, text string) error {
	js := fmt.Sprintf(`(function() {
		const el = document.querySelector(%q);
		if (!el || !el.options) {
			return "select element not found";
		}
		const want = %q;
		for (const opt of el.options) {
			if (opt.text.trim() === want || opt.value === want) {
				el.value = opt.value;
				el.dispatchEvent(new Event("change", { bubbles: true }));
				return "";
			}
		}
		return "option not found";
	})()`, selector, text)

	var res string
	if err := c.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Evaluate(js, &res),
	); err != nil {
		return err
	}
	if res != "" {
		return fmt.Errorf("select %q: %s: %q", selector, res, text)
	}
	return nil
}

// Upload sends file paths to a file input. File inputs are routinely hidden
// behind styled buttons, so only node presence is required, not visibility.
func (c *Chrome) Upload(ctx context.Context, selector string, paths []string) error {
	return c.run(ctx, chromedp.SetUploadFiles(selector, paths, chromedp.ByQuery))
}

// Text returns the element's visible text.
func (c *Chrome) Text(ctx context.Context, selector string) (string, error) {
	var out string
	err := c.run(ctx, chromedp.Text(selector, &out, chromedp.ByQuery))
	return out, err
}

// Value returns the element's value attribute.
func (c *Chrome) Value(ctx context.Context, selector string) (string, error) {
	var out string
	err := c.run(ctx, chromedp.Value(selector, &out, chromedp.ByQuery))
	return out, err
}

// CurrentURL returns the page's current location.
func (c *Chrome) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := c.run(ctx, chromedp.Location(&url))
	return url, err
}

// Close shuts the browser down.
func (c *Chrome) Close() error {
	c.cancel()
	c.allocCancel()
	log.Debug().Msg("Browser session closed")
	return nil
}
