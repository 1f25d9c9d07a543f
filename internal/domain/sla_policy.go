package domain

import "time"

// SLAPolicy maps a ticket priority to its response and resolution time
// budgets, both in whole hours. Exactly one policy exists per priority.
type SLAPolicy struct {
	ID                  string
	Priority            TicketPriority
	ResponseTimeHours   int
	ResolutionTimeHours int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
