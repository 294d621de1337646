package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const createEngagement = `
INSERT INTO engagements (name, organization, period_type, period_start, period_end)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, name, organization, period_type, period_start, period_end, created_at, updated_at
`

type CreateEngagementParams struct {
	Name         string
	Organization string
	PeriodType   string
	PeriodStart  time.Time
	PeriodEnd    time.Time
}

func (q *Queries) CreateEngagement(ctx context.Context, arg CreateEngagementParams) (Engagement, error) {
	row := q.db.QueryRow(ctx, createEngagement, arg.Name, arg.Organization, arg.PeriodType, arg.PeriodStart, arg.PeriodEnd)
	var i Engagement
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Organization,
		&i.PeriodType,
		&i.PeriodStart,
		&i.PeriodEnd,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const lockEngagement = `SELECT id FROM engagements WHERE id = $1 FOR UPDATE`

func (q *Queries) LockEngagement(ctx context.Context, id uuid.UUID) error {
	var locked uuid.UUID
	return notFound(q.db.QueryRow(ctx, lockEngagement, id).Scan(&locked), ErrNotFound)
}

const getEngagement = `
SELECT id, name, organization, period_type, period_start, period_end, created_at, updated_at
FROM engagements
WHERE id = $1
`

func (q *Queries) GetEngagement(ctx context.Context, id uuid.UUID) (Engagement, error) {
	row := q.db.QueryRow(ctx, getEngagement, id)
	var i Engagement
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Organization,
		&i.PeriodType,
		&i.PeriodStart,
		&i.PeriodEnd,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, notFound(err, ErrNotFound)
}

const listEngagements = `
SELECT id, name, organization, period_type, period_start, period_end, created_at, updated_at
FROM engagements
WHERE ($1::text = '' OR lower(organization) = lower($1::text))
ORDER BY period_start DESC, name ASC
LIMIT $2
`

type ListEngagementsParams struct {
	Organization string
	LimitRows    int32
}

func (q *Queries) ListEngagements(ctx context.Context, arg ListEngagementsParams) ([]Engagement, error) {
	rows, err := q.db.Query(ctx, listEngagements, arg.Organization, arg.LimitRows)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Engagement{}
	for rows.Next() {
		var i Engagement
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Organization,
			&i.PeriodType,
			&i.PeriodStart,
			&i.PeriodEnd,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
