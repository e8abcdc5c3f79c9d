// Package browser abstracts the browser-driving capability the workflow
// needs, so the sequencer and its tests never depend on a concrete
// automation library. The production implementation drives Chrome through
// the DevTools protocol.
package browser

import "context"

// Driver is the minimal capability surface the workflow drives a page with.
// Selectors are opaque CSS selector strings sourced from configuration.
// Every call observes ctx for cancellation and the driver's configured
// element wait timeout.
type Driver interface {
	// Navigate loads url and waits for the page to be ready.
	Navigate(ctx context.Context, url string) error

	// WaitVisible blocks until the element is visible or the wait times out.
	WaitVisible(ctx context.Context, selector string) error

	// Click clicks the element, scrolling it into view first.
	Click(ctx context.Context, selector string) error

	// ClickText clicks the first element whose visible text equals text.
	// Used for custom dropdown options that carry no stable selector.
	ClickText(ctx context.Context, text string) error

	// Fill clears the input and types text into it.
	Fill(ctx context.Context, selector string, text string) error

	// SelectOption selects the native <select> option with the given
	// visible text, falling back to the option value attribute.
	SelectOption(ctx context.Context, selector string, text string) error

	// Upload sends absolute file paths to a file input. The input does not
	// need to be visible.
	Upload(ctx context.Context, selector string, paths []string) error

	// Text returns the element's visible text.
	Text(ctx context.Context, selector string) (string, error)

	// Value returns the element's value attribute.
	Value(ctx context.Context, selector string) (string, error)

	// CurrentURL returns the page's current location.
	CurrentURL(ctx context.Context) (string, error)

	// Close shuts the browser down.
	Close() error
}
