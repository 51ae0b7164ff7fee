package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/banditserve-backend/internal/logger"
	"github.com/yungbote/banditserve-backend/internal/types"
)

// UpdateNotifier delivers the terminal status of a model update to the
// caller-supplied callback URL. Delivery is best-effort: exhausting retries
// is logged and never alters the update request row.
type UpdateNotifier interface {
	UpdateCompleted(ctx context.Context, callbackURL string, updateID uuid.UUID, completedAt time.Time)
	UpdateFailed(ctx context.Context, callbackURL string, updateID uuid.UUID, message string)
}

type httpUpdateNotifier struct {
	log      *logger.Logger
	client   *http.Client
	attempts int
	backoff  time.Duration
}

func NewUpdateNotifier(baseLog *logger.Logger) UpdateNotifier {
	return &httpUpdateNotifier{
		log:      baseLog.With("service", "UpdateNotifier"),
		client:   &http.Client{Timeout: 10 * time.Second},
		attempts: 3,
		backoff:  time.Second,
	}
}

func (n *httpUpdateNotifier) UpdateCompleted(ctx context.Context, callbackURL string, updateID uuid.UUID, completedAt time.Time) {
	n.post(ctx, callbackURL, updateID, map[string]any{
		"status":    types.UpdateStatusCompleted,
		"update_id": updateID.String(),
		"timestamp": completedAt.Format(time.RFC3339Nano),
	})
}

func (n *httpUpdateNotifier) UpdateFailed(ctx context.Context, callbackURL string, updateID uuid.UUID, message string) {
	n.post(ctx, callbackURL, updateID, map[string]any{
		"status":    types.UpdateStatusFailed,
		"update_id": updateID.String(),
		"message":   message,
	})
}

func (n *httpUpdateNotifier) post(ctx context.Context, callbackURL string, updateID uuid.UUID, payload map[string]any) {
	body, err := json.Marshal(payload)
	if err != nil {
		n.log.Error("Failed to encode callback payload", "update_id", updateID, "error", err)
		return
	}

	var lastErr error
	for attempt := 1; attempt <= n.attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
		if err != nil {
			n.log.Error("Failed to build callback request", "update_id", updateID, "callback_url", callbackURL, "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				n.log.Info("Callback delivered", "update_id", updateID, "status_code", resp.StatusCode)
				return
			}
			err = fmt.Errorf("callback returned status %d", resp.StatusCode)
		}
		lastErr = err
		n.log.Warn("Callback delivery attempt failed", "update_id", updateID, "attempt", attempt, "error", err)
		if attempt < n.attempts {
			select {
			case <-ctx.Done():
				n.log.Warn("Callback delivery abandoned", "update_id", updateID, "error", ctx.Err())
				return
			case <-time.After(n.backoff * time.Duration(attempt)):
			}
		}
	}
	n.log.Error("Callback delivery failed after retries", "update_id", updateID, "callback_url", callbackURL, "error", lastErr)
}
