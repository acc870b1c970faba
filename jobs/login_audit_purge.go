package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/kaucher/gatehouse/internal/auth"
)

// NewLoginAuditPurgeHandler returns the handler that deletes login audit rows
// older than the configured retention window.
func NewLoginAuditPurgeHandler(repo auth.Repository, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload LoginAuditPurgePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		retention := time.Duration(payload.RetentionHours) * time.Hour
		if retention <= 0 {
			retention = 30 * 24 * time.Hour
		}
		purged, err := repo.PurgeLoginAudit(ctx, time.Now().Add(-retention))
		if err != nil {
			logger.Error("login audit purge", slog.Any("error", err))
			return err
		}
		logger.Info("login audit purge complete", slog.Int64("rows", purged))
		return nil
	}
}
