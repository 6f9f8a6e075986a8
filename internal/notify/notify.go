// Package notify delivers chain run completion webhooks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fathomlabs/chaind/internal/chain"
	"github.com/fathomlabs/chaind/internal/store"
)

// Payload is the JSON body posted to the webhook URL.
type Payload struct {
	RunID          string           `json:"run_id"`
	ChainName      string           `json:"chain_name"`
	Status         chain.StopReason `json:"status"`
	CompletedSteps int              `json:"completed_steps"`
	TotalSteps     int              `json:"total_steps"`
	RepositoryRoot string           `json:"repository_root"`
	Mode           chain.Mode       `json:"mode"`
	Error          string           `json:"error,omitempty"`
	FinishedAt     time.Time        `json:"finished_at"`
}

// Webhook posts run completions to a fixed URL. Delivery is best-effort:
// failures are logged, never surfaced to the caller.
type Webhook struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhook creates a webhook notifier. Returns nil if url is empty so the
// caller can wire it unconditionally.
func NewWebhook(url string, timeout time.Duration, logger *zap.Logger) *Webhook {
	if url == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Notify posts the run to the webhook URL.
func (w *Webhook) Notify(ctx context.Context, run *store.Run) {
	if w == nil || run == nil || run.Result == nil {
		return
	}

	payload := Payload{
		RunID:          run.ID,
		ChainName:      run.Result.ChainName,
		Status:         run.Result.Status,
		CompletedSteps: run.Result.CompletedSteps,
		TotalSteps:     run.Result.TotalSteps,
		RepositoryRoot: run.RepositoryRoot,
		Mode:           run.Mode,
		Error:          run.Result.Error,
		FinishedAt:     run.FinishedAt,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		w.logger.Warn("failed to encode webhook payload", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.logger.Warn("failed to build webhook request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "chaind-webhook/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Warn("webhook delivery failed",
			zap.String("url", w.url),
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
		return
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 300 {
		w.logger.Warn("webhook rejected",
			zap.String("url", w.url),
			zap.String("run_id", run.ID),
			zap.Int("status", resp.StatusCode),
		)
		return
	}

	w.logger.Debug("webhook delivered",
		zap.String("run_id", run.ID),
		zap.String("chain", run.Result.ChainName),
		zap.String("status", fmt.Sprint(run.Result.Status)),
	)
}
