package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ipv4intel/internal/domain"
)

// Reporter delivers finished batch results to the caller
type Reporter interface {
	ReportBatch(ctx context.Context, callbackURL string, result domain.BatchResult) error
}

// CallbackReporter POSTs batch results as JSON to a caller supplied URL
type CallbackReporter struct {
	client   *http.Client
	logger   *slog.Logger
	maxRetry int
	backoff  func(attempt int) time.Duration
}

// NewCallbackReporter creates a new callback reporter
func NewCallbackReporter(timeout time.Duration, logger *slog.Logger) *CallbackReporter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CallbackReporter{
		client: &http.Client{
			Timeout: timeout,
		},
		logger:   logger.With("module", "reporter.callback_reporter"),
		maxRetry: 3,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * time.Second
		},
	}
}

// ReportBatch sends the batch result to callbackURL
func (r *CallbackReporter) ReportBatch(ctx context.Context, callbackURL string, result domain.BatchResult) error {
	r.logger.Debug("Batch POST start",
		"batch_id", result.BatchID,
		"url", callbackURL,
		"report_count", len(result.Reports),
	)

	if err := r.postWithRetry(ctx, callbackURL, result); err != nil {
		r.logger.Error("Batch POST fail",
			"batch_id", result.BatchID,
			"error_detail", err.Error(),
		)
		return err
	}

	r.logger.Debug("Batch POST success",
		"batch_id", result.BatchID,
	)
	return nil
}

func (r *CallbackReporter) postWithRetry(ctx context.Context, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < r.maxRetry; attempt++ {
		if attempt > 0 {
			backoff := r.backoff(attempt)
			r.logger.Warn("Retry scheduled",
				"url", url,
				"attempt", attempt+1,
				"backoff_ms", backoff.Milliseconds(),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()

		if resp.StatusCode < 400 {
			return nil
		}

		lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	r.logger.Error("All retries exhausted",
		"url", url,
		"max_retry", r.maxRetry,
		"last_error", lastErr.Error(),
	)

	return lastErr
}
