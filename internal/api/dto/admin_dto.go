package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TagRequest payload for tag create and update.
type TagRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TagResponse response.
type TagResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GroupRequest payload for group create and update. Nil membership
// slices leave the corresponding membership untouched.
type GroupRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TagIDs      *[]string `json:"tag_ids"`
	AgentIDs    *[]string `json:"agent_ids"`
}

// GroupResponse response.
type GroupResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TagIDs      []string  `json:"tag_ids"`
	AgentIDs    []string  `json:"agent_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SLAPolicyRequest payload for policy create and update.
type SLAPolicyRequest struct {
	Priority            domain.TicketPriority `json:"priority"`
	ResponseTimeHours   int                   `json:"response_time_hours"`
	ResolutionTimeHours int                   `json:"resolution_time_hours"`
}

// SLAPolicyResponse response.
type SLAPolicyResponse struct {
	ID                  string                `json:"id"`
	Priority            domain.TicketPriority `json:"priority"`
	ResponseTimeHours   int                   `json:"response_time_hours"`
	ResolutionTimeHours int                   `json:"resolution_time_hours"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}
