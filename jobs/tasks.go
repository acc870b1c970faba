package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRoleScopeSync re-resolves every role and persists its scope set.
	TaskRoleScopeSync = "roles:scope_sync"
	// TaskLoginAuditPurge deletes login audit rows past the retention window.
	TaskLoginAuditPurge = "auth:login_audit_purge"
)

// RoleScopeSyncPayload parameterizes a role scope synchronization run.
type RoleScopeSyncPayload struct {
	Reason string `json:"reason,omitempty"`
}

// LoginAuditPurgePayload carries the retention window for an audit purge.
type LoginAuditPurgePayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewRoleScopeSyncTask constructs an Asynq task.
func NewRoleScopeSyncTask(payload RoleScopeSyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRoleScopeSync, data), nil
}

// NewLoginAuditPurgeTask constructs an Asynq task.
func NewLoginAuditPurgeTask(payload LoginAuditPurgePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLoginAuditPurge, data), nil
}
