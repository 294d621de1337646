package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unified-report/apps/api/internal/compliance"
)

// Store adds multi-statement transactions on top of Queries.
type Store struct {
	*Queries
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Queries: New(pool), pool: pool}
}

// SaveSections upserts several section documents for one engagement in a
// single transaction. Keys are written in sorted order.
func (s *Store) SaveSections(ctx context.Context, engagementID uuid.UUID, docs map[string]string) ([]ReportNote, error) {
	var saved []ReportNote
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		saved, err = saveSections(ctx, s.WithTx(tx), engagementID, docs)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("save sections: %w", err)
	}
	return saved, nil
}

// ImportPlan is what an import writes: merged section documents and the
// run record describing them.
type ImportPlan struct {
	Docs map[string]string
	Run  CreateImportRunParams
}

// ApplyImport locks the engagement row, passes the documents currently
// stored under keys to plan and persists the plan it returns. Concurrent
// imports into one engagement therefore merge one after the other.
func (s *Store) ApplyImport(ctx context.Context, engagementID uuid.UUID, keys []string, plan func(current map[string]ReportNote) (ImportPlan, error)) (ImportRun, []ReportNote, error) {
	var (
		created ImportRun
		saved   []ReportNote
	)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		q := s.WithTx(tx)
		if err := q.LockEngagement(ctx, engagementID); err != nil {
			return fmt.Errorf("lock engagement: %w", err)
		}

		current := make(map[string]ReportNote, len(keys))
		for _, key := range keys {
			note, err := q.GetReportNote(ctx, GetReportNoteParams{EngagementID: engagementID, SectionKey: key})
			switch {
			case err == nil:
				current[key] = note
			case errors.Is(err, ErrNotFound):
			default:
				return fmt.Errorf("get section %s: %w", key, err)
			}
		}

		p, err := plan(current)
		if err != nil {
			return err
		}
		if saved, err = saveSections(ctx, q, engagementID, p.Docs); err != nil {
			return err
		}
		created, err = q.CreateImportRun(ctx, p.Run)
		if err != nil {
			return fmt.Errorf("create import run: %w", err)
		}
		return nil
	})
	if err != nil {
		return ImportRun{}, nil, fmt.Errorf("apply import: %w", err)
	}
	return created, saved, nil
}

// lockedTracks reads tracks FOR UPDATE so recalculations of one track run
// one at a time.
type lockedTracks struct {
	*Queries
}

func (l lockedTracks) GetTrack(ctx context.Context, id uuid.UUID) (compliance.Track, error) {
	return l.LockTrack(ctx, id)
}

// RecalculateTrack recounts a track's assignments and stores the counters
// in one transaction holding the track row lock.
func (s *Store) RecalculateTrack(ctx context.Context, trackID uuid.UUID) (compliance.TrackDetail, error) {
	var detail compliance.TrackDetail
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		detail, err = compliance.Recalculate(ctx, lockedTracks{s.WithTx(tx)}, trackID)
		return err
	})
	if err != nil {
		return compliance.TrackDetail{}, err
	}
	return detail, nil
}

func saveSections(ctx context.Context, q *Queries, engagementID uuid.UUID, docs map[string]string) ([]ReportNote, error) {
	keys := make([]string, 0, len(docs))
	for key := range docs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	saved := make([]ReportNote, 0, len(keys))
	for _, key := range keys {
		note, err := q.UpsertReportNote(ctx, UpsertReportNoteParams{
			EngagementID: engagementID,
			SectionKey:   key,
			Content:      docs[key],
		})
		if err != nil {
			return nil, fmt.Errorf("upsert section %s: %w", key, err)
		}
		saved = append(saved, note)
	}
	return saved, nil
}
