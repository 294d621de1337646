package handlers

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unified-report/apps/api/internal/audit"
	"github.com/unified-report/apps/api/internal/compliance"
	"github.com/unified-report/apps/api/internal/config"
	"github.com/unified-report/apps/api/internal/sections"
	"github.com/unified-report/apps/api/internal/store"
)

// memStore is an in-memory Storage used by handler tests.
type memStore struct {
	mu          sync.Mutex
	recalcMu    sync.Mutex
	engagements map[uuid.UUID]store.Engagement
	notes       map[uuid.UUID]map[string]store.ReportNote
	runs        []store.ImportRun
	tracks      map[uuid.UUID]compliance.Track
	assignments map[uuid.UUID]compliance.Assignment
	auditLogs   []store.InsertAuditLogParams
}

func newMemStore() *memStore {
	return &memStore{
		engagements: map[uuid.UUID]store.Engagement{},
		notes:       map[uuid.UUID]map[string]store.ReportNote{},
		tracks:      map[uuid.UUID]compliance.Track{},
		assignments: map[uuid.UUID]compliance.Assignment{},
	}
}

func (m *memStore) CreateEngagement(_ context.Context, arg store.CreateEngagementParams) (store.Engagement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	e := store.Engagement{
		ID:           uuid.New(),
		Name:         arg.Name,
		Organization: arg.Organization,
		PeriodType:   arg.PeriodType,
		PeriodStart:  arg.PeriodStart,
		PeriodEnd:    arg.PeriodEnd,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.engagements[e.ID] = e
	return e, nil
}

func (m *memStore) GetEngagement(_ context.Context, id uuid.UUID) (store.Engagement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.engagements[id]
	if !ok {
		return store.Engagement{}, store.ErrNotFound
	}
	return e, nil
}

func (m *memStore) ListEngagements(_ context.Context, arg store.ListEngagementsParams) ([]store.Engagement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []store.Engagement{}
	for _, e := range m.engagements {
		if arg.Organization != "" && !strings.EqualFold(arg.Organization, e.Organization) {
			continue
		}
		items = append(items, e)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	if len(items) > int(arg.LimitRows) {
		items = items[:arg.LimitRows]
	}
	return items, nil
}

func (m *memStore) GetReportNote(_ context.Context, arg store.GetReportNoteParams) (store.ReportNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	note, ok := m.notes[arg.EngagementID][arg.SectionKey]
	if !ok {
		return store.ReportNote{}, store.ErrNotFound
	}
	return note, nil
}

func (m *memStore) ListReportNotes(_ context.Context, engagementID uuid.UUID) ([]store.ReportNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	notes := make([]store.ReportNote, 0, len(m.notes[engagementID]))
	for _, note := range m.notes[engagementID] {
		notes = append(notes, note)
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].SectionKey < notes[j].SectionKey })
	return notes, nil
}

func (m *memStore) SaveSections(_ context.Context, engagementID uuid.UUID, docs map[string]string) ([]store.ReportNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(engagementID, docs), nil
}

func (m *memStore) saveLocked(engagementID uuid.UUID, docs map[string]string) []store.ReportNote {
	if m.notes[engagementID] == nil {
		m.notes[engagementID] = map[string]store.ReportNote{}
	}
	keys := make([]string, 0, len(docs))
	for key := range docs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	saved := make([]store.ReportNote, 0, len(keys))
	now := time.Now().UTC()
	for _, key := range keys {
		note, ok := m.notes[engagementID][key]
		if !ok {
			note = store.ReportNote{ID: uuid.New(), EngagementID: engagementID, SectionKey: key, CreatedAt: now}
		}
		note.Content = docs[key]
		note.UpdatedAt = now
		m.notes[engagementID][key] = note
		saved = append(saved, note)
	}
	return saved
}

func (m *memStore) CreateImportRun(_ context.Context, arg store.CreateImportRunParams) (store.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runLocked(arg), nil
}

func (m *memStore) runLocked(arg store.CreateImportRunParams) store.ImportRun {
	run := store.ImportRun{
		ID:           uuid.New(),
		EngagementID: arg.EngagementID,
		Kind:         arg.Kind,
		Mode:         arg.Mode,
		Filename:     arg.Filename,
		FileSha256:   arg.FileSha256,
		CustomerName: arg.CustomerName,
		SummaryJson:  arg.SummaryJson,
		CreatedAt:    time.Now().UTC(),
	}
	m.runs = append(m.runs, run)
	return run
}

func (m *memStore) ApplyImport(_ context.Context, engagementID uuid.UUID, keys []string, plan func(current map[string]store.ReportNote) (store.ImportPlan, error)) (store.ImportRun, []store.ReportNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := make(map[string]store.ReportNote, len(keys))
	for _, key := range keys {
		if note, ok := m.notes[engagementID][key]; ok {
			current[key] = note
		}
	}
	p, err := plan(current)
	if err != nil {
		return store.ImportRun{}, nil, err
	}
	saved := m.saveLocked(engagementID, p.Docs)
	return m.runLocked(p.Run), saved, nil
}

func (m *memStore) RecalculateTrack(ctx context.Context, trackID uuid.UUID) (compliance.TrackDetail, error) {
	m.recalcMu.Lock()
	defer m.recalcMu.Unlock()
	return compliance.Recalculate(ctx, m, trackID)
}

func (m *memStore) CreateTrack(_ context.Context, arg store.CreateTrackParams) (compliance.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	track := compliance.Track{
		ID:                 uuid.New(),
		EngagementID:       arg.EngagementID,
		OEM:                arg.OEM,
		Name:               arg.Name,
		OverallRequirement: arg.OverallRequirement,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	m.tracks[track.ID] = track
	return track, nil
}

func (m *memStore) GetTrack(_ context.Context, id uuid.UUID) (compliance.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	track, ok := m.tracks[id]
	if !ok {
		return compliance.Track{}, compliance.ErrTrackNotFound
	}
	return track, nil
}

func (m *memStore) ListAssignments(_ context.Context, trackID uuid.UUID) ([]compliance.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []compliance.Assignment{}
	for _, a := range m.assignments {
		if a.TrackID == trackID {
			items = append(items, a)
		}
	}
	return items, nil
}

func (m *memStore) UpdateTrackCounters(_ context.Context, id uuid.UUID, earnedCerts, overallEarned int) (compliance.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	track, ok := m.tracks[id]
	if !ok {
		return compliance.Track{}, compliance.ErrTrackNotFound
	}
	track.EarnedCerts = earnedCerts
	track.OverallEarned = overallEarned
	track.UpdatedAt = time.Now().UTC()
	m.tracks[id] = track
	return track, nil
}

func (m *memStore) CreateAssignment(_ context.Context, arg store.CreateAssignmentParams) (compliance.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	a := compliance.Assignment{
		ID:                uuid.New(),
		TrackID:           arg.TrackID,
		EngineerName:      arg.EngineerName,
		CertificationName: arg.CertificationName,
		Status:            arg.Status,
		DueDate:           arg.DueDate,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	m.assignments[a.ID] = a
	return a, nil
}

func (m *memStore) UpdateAssignment(_ context.Context, arg store.UpdateAssignmentParams) (compliance.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[arg.ID]
	if !ok {
		return compliance.Assignment{}, store.ErrNotFound
	}
	if arg.EngineerName != nil {
		a.EngineerName = *arg.EngineerName
	}
	if arg.CertificationName != nil {
		a.CertificationName = *arg.CertificationName
	}
	if arg.Status != nil {
		a.Status = *arg.Status
	}
	if arg.DueDate != nil {
		a.DueDate = arg.DueDate
	}
	a.UpdatedAt = time.Now().UTC()
	m.assignments[a.ID] = a
	return a, nil
}

func (m *memStore) InsertAuditLog(_ context.Context, arg store.InsertAuditLogParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditLogs = append(m.auditLogs, arg)
	return nil
}

func (m *memStore) auditActions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	actions := make([]string, 0, len(m.auditLogs))
	for _, entry := range m.auditLogs {
		actions = append(actions, entry.Action)
	}
	return actions
}

func newTestServer(st *memStore) *Server {
	defaults, err := sections.LoadDefaults("")
	if err != nil {
		panic(err)
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cfg := config.Config{ImportMaxRows: 100}
	return NewServer(cfg, st, defaults, audit.NewLogger(st, logger), logger)
}
