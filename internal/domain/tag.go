package domain

import "time"

// Tag is a classification label attached to tickets and covered by
// groups. The overlap between a ticket's tags and the tags covered by
// an agent's groups decides visibility.
type Tag struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
