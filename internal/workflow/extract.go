package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// extractBatchID captures the batch identifier of the freshly created batch.
// The page URL is the primary source; when the pattern does not match, the
// configured fallback selectors are probed in order, value attribute first,
// then visible text.
func (r *Runner) extractBatchID(ctx context.Context) (string, error) {
	url, err := r.drv.CurrentURL(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read current url: %w", err)
	}

	if m := r.cfg.BatchIDRegexp().FindStringSubmatch(url); len(m) > 1 && m[1] != "" {
		log.Info().Str("batch_id", m[1]).Str("source", "url").Msg("Batch id extracted")
		return m[1], nil
	}
	log.Warn().Str("url", url).Msg("Batch id not in url, trying fallback selectors")

	for _, selector := range r.cfg.BatchIDFallbacks {
		if v, err := r.drv.Value(ctx, selector); err == nil {
			if id := strings.TrimSpace(v); id != "" {
				log.Info().Str("batch_id", id).Str("selector", selector).Msg("Batch id extracted")
				return id, nil
			}
		}
		if t, err := r.drv.Text(ctx, selector); err == nil {
			if id := strings.TrimSpace(t); id != "" {
				log.Info().Str("batch_id", id).Str("selector", selector).Msg("Batch id extracted")
				return id, nil
			}
		}
	}

	return "", fmt.Errorf("%w: url %s matched nothing and no fallback selector held an id", ErrExtractionFailed, url)
}
