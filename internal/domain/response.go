package domain

import "time"

// TicketResponse is a reply on a ticket thread, authored by the
// customer who owns the ticket, an eligible agent, or an admin.
type TicketResponse struct {
	ID          string
	TicketID    string
	UserID      string
	Content     string
	Attachments []FileAttachment
	CreatedAt   time.Time
}
