package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// ValidStatus reports whether the value is a known ticket status.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// ValidPriority reports whether the value is a known ticket priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests. CustomerID is immutable
// after creation. AgentID is informational only: visibility is derived
// from the tag set, never from assignment. Due dates are derived from
// the SLA policy for the current priority and replaced wholesale when
// the priority changes.
type Ticket struct {
	ID                string
	Title             string
	Description       string
	Status            TicketStatus
	Priority          TicketPriority
	ResponseDueDate   *time.Time
	ResolutionDueDate *time.Time
	CustomerID        string
	AgentID           *string
	TagIDs            []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
