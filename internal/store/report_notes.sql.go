package store

import (
	"context"

	"github.com/google/uuid"
)

const getReportNote = `
SELECT id, engagement_id, section_key, content, created_at, updated_at
FROM report_notes
WHERE engagement_id = $1 AND section_key = $2
`

type GetReportNoteParams struct {
	EngagementID uuid.UUID
	SectionKey   string
}

func (q *Queries) GetReportNote(ctx context.Context, arg GetReportNoteParams) (ReportNote, error) {
	row := q.db.QueryRow(ctx, getReportNote, arg.EngagementID, arg.SectionKey)
	var i ReportNote
	err := row.Scan(
		&i.ID,
		&i.EngagementID,
		&i.SectionKey,
		&i.Content,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, notFound(err, ErrNotFound)
}

const listReportNotes = `
SELECT id, engagement_id, section_key, content, created_at, updated_at
FROM report_notes
WHERE engagement_id = $1
ORDER BY section_key
`

func (q *Queries) ListReportNotes(ctx context.Context, engagementID uuid.UUID) ([]ReportNote, error) {
	rows, err := q.db.Query(ctx, listReportNotes, engagementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ReportNote{}
	for rows.Next() {
		var i ReportNote
		if err := rows.Scan(
			&i.ID,
			&i.EngagementID,
			&i.SectionKey,
			&i.Content,
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

const upsertReportNote = `
INSERT INTO report_notes (engagement_id, section_key, content)
VALUES ($1, $2, $3)
ON CONFLICT (engagement_id, section_key)
DO UPDATE SET content = EXCLUDED.content, updated_at = now()
RETURNING id, engagement_id, section_key, content, created_at, updated_at
`

type UpsertReportNoteParams struct {
	EngagementID uuid.UUID
	SectionKey   string
	Content      string
}

func (q *Queries) UpsertReportNote(ctx context.Context, arg UpsertReportNoteParams) (ReportNote, error) {
	row := q.db.QueryRow(ctx, upsertReportNote, arg.EngagementID, arg.SectionKey, arg.Content)
	var i ReportNote
	err := row.Scan(
		&i.ID,
		&i.EngagementID,
		&i.SectionKey,
		&i.Content,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
