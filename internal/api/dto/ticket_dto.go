package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	TagIDs      []string              `json:"tag_ids"`
	Attachments []AttachmentRequest   `json:"attachments"`
}

// UpdateTicketRequest payload. Pointer fields distinguish omitted from
// empty.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Status      *domain.TicketStatus   `json:"status"`
	Priority    *domain.TicketPriority `json:"priority"`
	AgentID     *string                `json:"agent_id"`
	TagIDs      *[]string              `json:"tag_ids"`
}

// TicketSummary response.
type TicketSummary struct {
	ID                string                `json:"id"`
	Title             string                `json:"title"`
	Status            domain.TicketStatus   `json:"status"`
	Priority          domain.TicketPriority `json:"priority"`
	ResponseDueDate   *time.Time            `json:"response_due_date"`
	ResolutionDueDate *time.Time            `json:"resolution_due_date"`
	CustomerID        string                `json:"customer_id"`
	AgentID           *string               `json:"agent_id"`
	TagIDs            []string              `json:"tag_ids"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info including the thread.
type TicketDetailResponse struct {
	TicketSummary
	Description string                   `json:"description"`
	Responses   []TicketResponseResponse `json:"responses"`
	Attachments []AttachmentResponse     `json:"attachments"`
}

// TicketResponseResponse represents a thread entry.
type TicketResponseResponse struct {
	ID          string               `json:"id"`
	UserID      string               `json:"user_id"`
	Content     string               `json:"content"`
	Attachments []AttachmentResponse `json:"attachments"`
	CreatedAt   time.Time            `json:"created_at"`
}

// CreateResponseRequest payload.
type CreateResponseRequest struct {
	Content     string              `json:"content"`
	Attachments []AttachmentRequest `json:"attachments"`
}

// AttachmentRequest describes uploaded file metadata.
type AttachmentRequest struct {
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	StorageKey string    `json:"storage_key"`
	CreatedAt  time.Time `json:"created_at"`
}
