package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategorySecurity covers access denials and session invalidations.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine sign-in and sign-out activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted when the console grants, refuses or ends access.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// SubjectID is the account the acting session belongs to; empty for anonymous requests.
	SubjectID string
	Action    string
	// Screen names the screen or action involved, e.g. "Leadership".
	Screen   string
	Decision string
	Reason   string
	// TargetID is the account an administrative change was applied to.
	TargetID  string
	RequestID string
	ClientIP  string
	// Device is DeviceLabel of the request's User-Agent.
	Device string
}

type AuditEvent string

const (
	EventAccessDenied       AuditEvent = "access_denied"
	EventLogin              AuditEvent = "login"
	EventLoginFailed        AuditEvent = "login_failed"
	EventLogout             AuditEvent = "logout"
	EventAccountChanged     AuditEvent = "account_changed"
	EventSessionInvalidated AuditEvent = "session_invalidated"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventAccessDenied:       CategorySecurity,
	EventLoginFailed:        CategorySecurity,
	EventAccountChanged:     CategorySecurity,
	EventSessionInvalidated: CategorySecurity,

	EventLogin:  CategoryOperations,
	EventLogout: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
