package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/kaucher/gatehouse/internal/roles"
)

// NewRoleScopeSyncHandler returns the handler that re-resolves and persists
// the effective scope set of every declared role.
func NewRoleScopeSyncHandler(svc *roles.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload RoleScopeSyncPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		synced, err := svc.SyncAll(ctx)
		if err != nil {
			logger.Error("role scope sync", slog.Any("error", err))
			return err
		}
		logger.Info("role scope sync complete",
			slog.Int("roles", synced),
			slog.String("reason", payload.Reason))
		return nil
	}
}
