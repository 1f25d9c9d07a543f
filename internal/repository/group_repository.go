package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// GroupRepository encapsulates group persistence, including the
// group→tag coverage and group→agent membership join tables.
type GroupRepository interface {
	Create(ctx context.Context, group *domain.Group) error
	Update(ctx context.Context, group *domain.Group) error
	GetByID(ctx context.Context, id string) (*domain.Group, error)
	List(ctx context.Context) ([]domain.Group, error)
	SetTags(ctx context.Context, groupID string, tagIDs []string) error
	SetAgents(ctx context.Context, groupID string, agentIDs []string) error
	ListTagIDsByAgent(ctx context.Context, agentID string) ([]string, error)
	Count(ctx context.Context) (int, error)
}

type groupRepository struct {
	pool *pgxpool.Pool
}

// NewGroupRepository instantiates repository.
func NewGroupRepository(pool *pgxpool.Pool) GroupRepository {
	return &groupRepository{pool: pool}
}

const groupSelect = `
        SELECT g.id, g.name, g.description, g.created_at, g.updated_at,
               COALESCE((SELECT array_agg(gt.tag_id::text) FROM group_tags gt WHERE gt.group_id=g.id), '{}'),
               COALESCE((SELECT array_agg(ga.agent_id::text) FROM group_agents ga WHERE ga.group_id=g.id), '{}')
        FROM groups g`

func (r *groupRepository) Create(ctx context.Context, group *domain.Group) error {
	const query = `
        INSERT INTO groups (name, description)
        VALUES ($1,$2)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query, group.Name, group.Description).
		Scan(&group.ID, &group.CreatedAt, &group.UpdatedAt)
}

func (r *groupRepository) Update(ctx context.Context, group *domain.Group) error {
	const query = `
        UPDATE groups SET name=$1, description=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, group.Name, group.Description, group.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *groupRepository) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	var group domain.Group
	if err := r.pool.QueryRow(ctx, groupSelect+` WHERE g.id=$1`, id).Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&group.CreatedAt,
		&group.UpdatedAt,
		&group.TagIDs,
		&group.AgentIDs,
	); err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) List(ctx context.Context) ([]domain.Group, error) {
	rows, err := r.pool.Query(ctx, groupSelect+` ORDER BY g.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Group
	for rows.Next() {
		var group domain.Group
		if err := rows.Scan(
			&group.ID,
			&group.Name,
			&group.Description,
			&group.CreatedAt,
			&group.UpdatedAt,
			&group.TagIDs,
			&group.AgentIDs,
		); err != nil {
			return nil, err
		}
		result = append(result, group)
	}
	return result, rows.Err()
}

func (r *groupRepository) SetTags(ctx context.Context, groupID string, tagIDs []string) error {
	return r.replaceMembers(ctx, groupID, tagIDs,
		`DELETE FROM group_tags WHERE group_id=$1`,
		`INSERT INTO group_tags (group_id, tag_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`)
}

func (r *groupRepository) SetAgents(ctx context.Context, groupID string, agentIDs []string) error {
	return r.replaceMembers(ctx, groupID, agentIDs,
		`DELETE FROM group_agents WHERE group_id=$1`,
		`INSERT INTO group_agents (group_id, agent_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`)
}

func (r *groupRepository) replaceMembers(ctx context.Context, groupID string, ids []string, deleteQuery, insertQuery string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, deleteQuery, groupID); err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := tx.Exec(ctx, insertQuery, groupID, id); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListTagIDsByAgent returns the deduplicated tag ids covered by every
// group the agent belongs to. An agent in no group yields no rows.
func (r *groupRepository) ListTagIDsByAgent(ctx context.Context, agentID string) ([]string, error) {
	const query = `
        SELECT DISTINCT gt.tag_id::text
        FROM group_agents ga
        JOIN group_tags gt ON gt.group_id = ga.group_id
        WHERE ga.agent_id=$1`
	rows, err := r.pool.Query(ctx, query, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var tagID string
		if err := rows.Scan(&tagID); err != nil {
			return nil, err
		}
		result = append(result, tagID)
	}
	return result, rows.Err()
}

func (r *groupRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM groups`).Scan(&count)
	return count, err
}
