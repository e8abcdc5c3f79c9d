package workflow

import "errors"

var (
	// ErrLoginFailed is returned when every login attempt is exhausted.
	// It aborts the whole invocation; no folder runs without a session.
	ErrLoginFailed = errors.New("login failed")

	// ErrExtractionFailed is returned when neither the page URL nor any
	// fallback DOM selector yields a batch identifier.
	ErrExtractionFailed = errors.New("batch id extraction failed")

	// ErrNoImages is returned when a folder holds no uploadable images.
	ErrNoImages = errors.New("no images to upload")
)
