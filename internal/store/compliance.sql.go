package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/unified-report/apps/api/internal/compliance"
)

const trackColumns = `id, engagement_id, oem, name, overall_requirement, earned_certs, overall_earned, created_at, updated_at`

const assignmentColumns = `id, track_id, engineer_name, certification_name, status, due_date, created_at, updated_at`

func scanTrack(row pgx.Row) (compliance.Track, error) {
	var i compliance.Track
	err := row.Scan(
		&i.ID,
		&i.EngagementID,
		&i.OEM,
		&i.Name,
		&i.OverallRequirement,
		&i.EarnedCerts,
		&i.OverallEarned,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanAssignment(row pgx.Row) (compliance.Assignment, error) {
	var i compliance.Assignment
	err := row.Scan(
		&i.ID,
		&i.TrackID,
		&i.EngineerName,
		&i.CertificationName,
		&i.Status,
		&i.DueDate,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createTrack = `
INSERT INTO oem_compliance_tracks (engagement_id, oem, name, overall_requirement)
VALUES ($1, $2, $3, $4)
RETURNING ` + trackColumns

type CreateTrackParams struct {
	EngagementID       uuid.UUID
	OEM                string
	Name               string
	OverallRequirement int
}

func (q *Queries) CreateTrack(ctx context.Context, arg CreateTrackParams) (compliance.Track, error) {
	return scanTrack(q.db.QueryRow(ctx, createTrack, arg.EngagementID, arg.OEM, arg.Name, arg.OverallRequirement))
}

const getTrack = `SELECT ` + trackColumns + ` FROM oem_compliance_tracks WHERE id = $1`

func (q *Queries) GetTrack(ctx context.Context, id uuid.UUID) (compliance.Track, error) {
	track, err := scanTrack(q.db.QueryRow(ctx, getTrack, id))
	return track, notFound(err, compliance.ErrTrackNotFound)
}

const lockTrack = `SELECT ` + trackColumns + ` FROM oem_compliance_tracks WHERE id = $1 FOR UPDATE`

func (q *Queries) LockTrack(ctx context.Context, id uuid.UUID) (compliance.Track, error) {
	track, err := scanTrack(q.db.QueryRow(ctx, lockTrack, id))
	return track, notFound(err, compliance.ErrTrackNotFound)
}

const updateTrackCounters = `
UPDATE oem_compliance_tracks
SET earned_certs = $2, overall_earned = $3, updated_at = now()
WHERE id = $1
RETURNING ` + trackColumns

func (q *Queries) UpdateTrackCounters(ctx context.Context, id uuid.UUID, earnedCerts, overallEarned int) (compliance.Track, error) {
	track, err := scanTrack(q.db.QueryRow(ctx, updateTrackCounters, id, earnedCerts, overallEarned))
	return track, notFound(err, compliance.ErrTrackNotFound)
}

const listAssignments = `
SELECT ` + assignmentColumns + `
FROM oem_compliance_assignments
WHERE track_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListAssignments(ctx context.Context, trackID uuid.UUID) ([]compliance.Assignment, error) {
	rows, err := q.db.Query(ctx, listAssignments, trackID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []compliance.Assignment{}
	for rows.Next() {
		i, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createAssignment = `
INSERT INTO oem_compliance_assignments (track_id, engineer_name, certification_name, status, due_date)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + assignmentColumns

type CreateAssignmentParams struct {
	TrackID           uuid.UUID
	EngineerName      string
	CertificationName string
	Status            string
	DueDate           *time.Time
}

func (q *Queries) CreateAssignment(ctx context.Context, arg CreateAssignmentParams) (compliance.Assignment, error) {
	return scanAssignment(q.db.QueryRow(ctx, createAssignment,
		arg.TrackID,
		arg.EngineerName,
		arg.CertificationName,
		arg.Status,
		arg.DueDate,
	))
}

const updateAssignment = `
UPDATE oem_compliance_assignments
SET engineer_name = COALESCE($2, engineer_name),
    certification_name = COALESCE($3, certification_name),
    status = COALESCE($4, status),
    due_date = COALESCE($5, due_date),
    updated_at = now()
WHERE id = $1
RETURNING ` + assignmentColumns

type UpdateAssignmentParams struct {
	ID                uuid.UUID
	EngineerName      *string
	CertificationName *string
	Status            *string
	DueDate           *time.Time
}

func (q *Queries) UpdateAssignment(ctx context.Context, arg UpdateAssignmentParams) (compliance.Assignment, error) {
	assignment, err := scanAssignment(q.db.QueryRow(ctx, updateAssignment,
		arg.ID,
		arg.EngineerName,
		arg.CertificationName,
		arg.Status,
		arg.DueDate,
	))
	return assignment, notFound(err, ErrNotFound)
}
