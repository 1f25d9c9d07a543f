package events

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketResponseAdded   EventType = "ticket_response_added"
	EventTicketForceClosed     EventType = "ticket_force_closed"
)

// Actor encapsulates actor metadata for an event. System is set for
// events emitted by background jobs rather than a request principal.
type Actor struct {
	UserID *string     `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
	System bool        `json:"system,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Priority          domain.TicketPriority `json:"priority"`
	Title             string                `json:"title"`
	TagIDs            []string              `json:"tag_ids,omitempty"`
	ResponseDueDate   *time.Time            `json:"response_due_date,omitempty"`
	ResolutionDueDate *time.Time            `json:"resolution_due_date,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketPriorityChangedPayload payload. The due dates are the newly
// recomputed ones anchored at the time of the update.
type TicketPriorityChangedPayload struct {
	OldPriority       domain.TicketPriority `json:"old_priority"`
	NewPriority       domain.TicketPriority `json:"new_priority"`
	ResponseDueDate   *time.Time            `json:"response_due_date,omitempty"`
	ResolutionDueDate *time.Time            `json:"resolution_due_date,omitempty"`
}

// TicketResponseAddedPayload payload.
type TicketResponseAddedPayload struct {
	ResponseID string `json:"response_id"`
	AuthorID   string `json:"author_id"`
}

// TicketForceClosedPayload payload emitted by the overdue sweeper.
type TicketForceClosedPayload struct {
	ResponseDueDate *time.Time `json:"response_due_date,omitempty"`
	SweptAt         time.Time  `json:"swept_at"`
}
