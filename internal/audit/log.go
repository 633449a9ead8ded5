package audit

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/polyclinic/scheduler/internal/auth"
	"github.com/polyclinic/scheduler/internal/obs"
)

// Event names.
const (
	LoginSucceeded     = "auth.login.succeeded"
	LoginFailed        = "auth.login.failed"
	ResetRequested     = "auth.password_reset.requested"
	ResetCompleted     = "auth.password_reset.completed"
	UserCreated        = "user.created"
	UserUpdated        = "user.updated"
	UserDeleted        = "user.deleted"
	DoctorChanged      = "doctor.changed"
	RoomChanged        = "room.changed"
	AppointmentChanged = "appointment.changed"
)

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return obs.ContextWithRequestID(ctx, requestID)
}

// LogEvent writes an audit log entry enriched with request and user context.
// The request id is added by the obs handler.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	attrs := []any{
		slog.String("type", "audit"),
		slog.String("event", event),
	}
	if userID, ok := auth.UserIDFromContext(ctx); ok {
		attrs = append(attrs, slog.String("user_id", userID))
	}
	group := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		group = append(group, k, v)
	}
	attrs = append(attrs, slog.Group("fields", group...))

	obs.Logger().InfoContext(ctx, "audit", attrs...)
	return nil
}
