package domain

import "time"

// FileAttachment stores metadata for an uploaded file tied to either a
// ticket or a response. Byte storage lives behind an external store;
// only the storage key is persisted here. Downloads are gated by the
// same access predicate as the owning ticket.
type FileAttachment struct {
	ID         string
	FileName   string
	MimeType   string
	SizeBytes  int64
	StorageKey string
	TicketID   *string
	ResponseID *string
	CreatedAt  time.Time
}
