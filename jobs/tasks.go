package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/horizon-hrms/horizon-hrms/internal/jobs"
	"github.com/horizon-hrms/horizon-hrms/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAccessAudit is the task type for access audit trail entries.
	TaskTypeAccessAudit = "access:audit"
)

// AccessAuditPayload describes one audit trail entry queued for persistence.
type AccessAuditPayload struct {
	ActorID    int64          `json:"actor_id"`
	Action     string         `json:"action"`
	Entity     string         `json:"entity"`
	EntityID   string         `json:"entity_id"`
	Meta       map[string]any `json:"meta,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewAccessAuditTask constructs an Asynq task.
func NewAccessAuditTask(payload AccessAuditPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAccessAudit, data), nil
}

// NewAccessAuditHandler returns the handler persisting audit entries through
// the shared audit logger.
func NewAccessAuditHandler(audit *shared.AuditLogger, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskTypeAccessAudit)
		var payload AccessAuditPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return tracker.End(asynq.SkipRetry)
		}
		err := audit.Record(ctx, shared.AuditLog{
			ActorID:  payload.ActorID,
			Action:   payload.Action,
			Entity:   payload.Entity,
			EntityID: payload.EntityID,
			Meta:     payload.Meta,
			At:       payload.OccurredAt,
		})
		if err != nil {
			logger.Warn("record access audit", slog.Any("error", err))
		}
		return tracker.End(err)
	}
}
