package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ResponseRepository encapsulates ticket response persistence.
type ResponseRepository interface {
	Create(ctx context.Context, response *domain.TicketResponse) error
	GetByID(ctx context.Context, id string) (*domain.TicketResponse, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketResponse, error)
}

type responseRepository struct {
	pool *pgxpool.Pool
}

// NewResponseRepository instantiates repository.
func NewResponseRepository(pool *pgxpool.Pool) ResponseRepository {
	return &responseRepository{pool: pool}
}

func (r *responseRepository) Create(ctx context.Context, response *domain.TicketResponse) error {
	const query = `
        INSERT INTO ticket_responses (ticket_id, user_id, content)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		response.TicketID,
		response.UserID,
		response.Content,
	).Scan(&response.ID, &response.CreatedAt)
}

func (r *responseRepository) GetByID(ctx context.Context, id string) (*domain.TicketResponse, error) {
	const query = `
        SELECT id, ticket_id, user_id, content, created_at
        FROM ticket_responses WHERE id=$1`
	var response domain.TicketResponse
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&response.ID,
		&response.TicketID,
		&response.UserID,
		&response.Content,
		&response.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &response, nil
}

func (r *responseRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketResponse, error) {
	const query = `
        SELECT id, ticket_id, user_id, content, created_at
        FROM ticket_responses WHERE ticket_id=$1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketResponse
	for rows.Next() {
		var response domain.TicketResponse
		if err := rows.Scan(
			&response.ID,
			&response.TicketID,
			&response.UserID,
			&response.Content,
			&response.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, response)
	}
	return result, rows.Err()
}
