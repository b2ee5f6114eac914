package jobs

import (
	"context"
	"strconv"
	"time"

	"github.com/horizon-hrms/horizon-hrms/internal/rbac"
)

// AuditEnqueuer forwards access events to the job queue so the HTTP path
// never blocks on audit persistence.
type AuditEnqueuer struct {
	client *Client
}

// NewAuditEnqueuer constructs an AuditEnqueuer.
func NewAuditEnqueuer(client *Client) *AuditEnqueuer {
	return &AuditEnqueuer{client: client}
}

// GrantChanged queues an audit entry for a grant mutation.
func (e *AuditEnqueuer) GrantChanged(ctx context.Context, action string, actorID int64, meta map[string]any) error {
	_, err := e.client.EnqueueAccessAudit(ctx, AccessAuditPayload{
		ActorID:    actorID,
		Action:     action,
		Entity:     "access_grant",
		EntityID:   strconv.FormatInt(actorID, 10),
		Meta:       meta,
		OccurredAt: time.Now().UTC(),
	})
	return err
}

// AccessDenied queues an audit entry for a denied authorization attempt.
func (e *AuditEnqueuer) AccessDenied(ctx context.Context, actorID int64, capability, reason string) error {
	_, err := e.client.EnqueueAccessAudit(ctx, AccessAuditPayload{
		ActorID:  actorID,
		Action:   "access.denied",
		Entity:   "capability",
		EntityID: capability,
		Meta: map[string]any{
			"reason": reason,
		},
		OccurredAt: time.Now().UTC(),
	})
	return err
}

var (
	_ rbac.AuditSink  = (*AuditEnqueuer)(nil)
	_ rbac.DenialSink = (*AuditEnqueuer)(nil)
)
