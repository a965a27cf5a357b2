package audit

import (
	"context"

	"custodia/internal/platform/middleware"
	"custodia/pkg/requestcontext"
)

// ContextEvent seeds an event with request-scoped metadata (correlation id,
// client address, device summary) so services only fill in the domain fields.
func ContextEvent(ctx context.Context, action AuditEvent) Event {
	return Event{
		Category:  CategoryFor(action),
		Action:    string(action),
		Timestamp: requestcontext.Now(ctx),
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		Device:    middleware.DeviceSummary(requestcontext.UserAgent(ctx)),
	}
}
