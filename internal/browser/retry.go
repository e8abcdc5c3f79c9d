package browser

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Policy retries an operation on transient failures. Pages that re-render
// dynamically detach and re-attach elements between the moment a node is
// located and the moment it is acted on; such failures succeed on a clean
// retry and are never surfaced unless every attempt is exhausted.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int

	// Delay is slept between attempts.
	Delay time.Duration

	// Retryable decides whether an error is worth another attempt.
	// Nil means IsTransient.
	Retryable func(error) bool

	// Sleep is the sleep function; nil means time.Sleep. Tests inject a
	// no-op here.
	Sleep func(time.Duration)
}

// DefaultPolicy is the uniform retry discipline for click/find operations.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Delay: time.Second}
}

// Do runs op, retrying per the policy. The last error is returned when all
// attempts fail or when the error is not retryable.
func (p Policy) Do(ctx context.Context, name string, op func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		if err = op(); err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt < attempts {
			log.Warn().
				Err(err).
				Str("op", name).
				Int("attempt", attempt).
				Int("max_attempts", attempts).
				Msg("Transient failure, retrying")
			sleep(p.Delay)
		}
	}
	return err
}

// transientMarkers are DevTools protocol error fragments raised when a page
// re-renders underneath us: the located node was detached before the action
// ran, or the element cannot be found yet.
var transientMarkers = []string{
	"node with given id does not belong to the document",
	"could not find node",
	"node not found",
	"element not visible",
	"no nodes match",
}

// IsTransient reports whether err is a staleness, element-not-found, or
// bounded-wait-timeout condition worth a retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
