package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// AttachmentRepository encapsulates file attachment metadata persistence.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.FileAttachment) error
	GetByID(ctx context.Context, id string) (*domain.FileAttachment, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.FileAttachment, error)
	ListByResponse(ctx context.Context, responseID string) ([]domain.FileAttachment, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository instantiates repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.FileAttachment) error {
	const query = `
        INSERT INTO file_attachments (file_name, mime_type, size_bytes, storage_key, ticket_id, response_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		attachment.FileName,
		attachment.MimeType,
		attachment.SizeBytes,
		attachment.StorageKey,
		attachment.TicketID,
		attachment.ResponseID,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *attachmentRepository) GetByID(ctx context.Context, id string) (*domain.FileAttachment, error) {
	const query = `
        SELECT id, file_name, mime_type, size_bytes, storage_key, ticket_id, response_id, created_at
        FROM file_attachments WHERE id=$1`
	var attachment domain.FileAttachment
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&attachment.ID,
		&attachment.FileName,
		&attachment.MimeType,
		&attachment.SizeBytes,
		&attachment.StorageKey,
		&attachment.TicketID,
		&attachment.ResponseID,
		&attachment.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.FileAttachment, error) {
	const query = `
        SELECT id, file_name, mime_type, size_bytes, storage_key, ticket_id, response_id, created_at
        FROM file_attachments WHERE ticket_id=$1 ORDER BY created_at`
	return r.list(ctx, query, ticketID)
}

func (r *attachmentRepository) ListByResponse(ctx context.Context, responseID string) ([]domain.FileAttachment, error) {
	const query = `
        SELECT id, file_name, mime_type, size_bytes, storage_key, ticket_id, response_id, created_at
        FROM file_attachments WHERE response_id=$1 ORDER BY created_at`
	return r.list(ctx, query, responseID)
}

func (r *attachmentRepository) list(ctx context.Context, query string, arg any) ([]domain.FileAttachment, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttachments(rows)
}

func scanAttachments(rows pgx.Rows) ([]domain.FileAttachment, error) {
	var result []domain.FileAttachment
	for rows.Next() {
		var attachment domain.FileAttachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.FileName,
			&attachment.MimeType,
			&attachment.SizeBytes,
			&attachment.StorageKey,
			&attachment.TicketID,
			&attachment.ResponseID,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}
