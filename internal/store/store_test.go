package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/unified-report/apps/api/internal/compliance"
	"github.com/unified-report/apps/api/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping database tests")
	}

	if err := db.Migrate(databaseURL); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return NewStore(pool)
}

func createTestEngagement(t *testing.T, s *Store) Engagement {
	t.Helper()
	engagement, err := s.CreateEngagement(context.Background(), CreateEngagementParams{
		Name:         "Q3 review " + uuid.NewString()[:8],
		Organization: "Acme Corp",
		PeriodType:   "quarterly",
		PeriodStart:  time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:    time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create engagement: %v", err)
	}
	return engagement
}

func TestSaveSectionsUpserts(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	engagement := createTestEngagement(t, s)

	if _, err := s.SaveSections(ctx, engagement.ID, map[string]string{
		"dashboard.summary":     `"first"`,
		"dashboard.topProducts": `[]`,
	}); err != nil {
		t.Fatalf("save sections: %v", err)
	}
	if _, err := s.SaveSections(ctx, engagement.ID, map[string]string{"dashboard.summary": `"second"`}); err != nil {
		t.Fatalf("save sections again: %v", err)
	}

	note, err := s.GetReportNote(ctx, GetReportNoteParams{EngagementID: engagement.ID, SectionKey: "dashboard.summary"})
	if err != nil {
		t.Fatalf("get note: %v", err)
	}
	if note.Content != `"second"` {
		t.Fatalf("expected upserted content, got %s", note.Content)
	}

	notes, err := s.ListReportNotes(ctx, engagement.ID)
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(notes))
	}

	_, err = s.GetReportNote(ctx, GetReportNoteParams{EngagementID: engagement.ID, SectionKey: "codeCurrency.rows"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecalculateAgainstDatabase(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	engagement := createTestEngagement(t, s)

	track, err := s.CreateTrack(ctx, CreateTrackParams{EngagementID: engagement.ID, OEM: "Dell", Name: "Storage", OverallRequirement: 5})
	if err != nil {
		t.Fatalf("create track: %v", err)
	}
	for i, status := range []string{compliance.StatusEarned, compliance.StatusEarned, compliance.StatusInProgress} {
		if _, err := s.CreateAssignment(ctx, CreateAssignmentParams{
			TrackID:           track.ID,
			EngineerName:      "Engineer " + string(rune('A'+i)),
			CertificationName: "PowerStore Specialist",
			Status:            status,
		}); err != nil {
			t.Fatalf("create assignment: %v", err)
		}
	}

	detail, err := s.RecalculateTrack(ctx, track.ID)
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if detail.EarnedCerts != 2 || detail.OverallEarned != 2 || len(detail.Assignments) != 3 {
		t.Fatalf("unexpected detail: %+v", detail)
	}

	if _, err := s.RecalculateTrack(ctx, uuid.New()); !errors.Is(err, compliance.ErrTrackNotFound) {
		t.Fatalf("expected ErrTrackNotFound, got %v", err)
	}
}

func TestConcurrentRecalculationsKeepFinalCount(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	engagement := createTestEngagement(t, s)

	track, err := s.CreateTrack(ctx, CreateTrackParams{EngagementID: engagement.ID, OEM: "Dell", Name: "Storage", OverallRequirement: 20})
	if err != nil {
		t.Fatalf("create track: %v", err)
	}

	const writers = 8
	var g errgroup.Group
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			if _, err := s.CreateAssignment(ctx, CreateAssignmentParams{
				TrackID:           track.ID,
				EngineerName:      "Engineer " + string(rune('A'+i)),
				CertificationName: "PowerStore Specialist",
				Status:            compliance.StatusEarned,
			}); err != nil {
				return err
			}
			_, err := s.RecalculateTrack(ctx, track.ID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent writers: %v", err)
	}

	stored, err := s.GetTrack(ctx, track.ID)
	if err != nil {
		t.Fatalf("get track: %v", err)
	}
	if stored.EarnedCerts != writers || stored.OverallEarned != writers {
		t.Fatalf("expected %d/%d after concurrent recalculations, got %d/%d", writers, writers, stored.EarnedCerts, stored.OverallEarned)
	}
}

func TestConcurrentApplyImportsMergeSerially(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	engagement := createTestEngagement(t, s)
	const key = "codeCurrency.rows"

	var g errgroup.Group
	for _, model := range []string{"PowerEdge R650", "Unity XT 480", "PowerStore 500T", "Data Domain 6900"} {
		g.Go(func() error {
			_, _, err := s.ApplyImport(ctx, engagement.ID, []string{key}, func(current map[string]ReportNote) (ImportPlan, error) {
				rows := []string{}
				if note, ok := current[key]; ok {
					if err := json.Unmarshal([]byte(note.Content), &rows); err != nil {
						return ImportPlan{}, err
					}
				}
				rows = append(rows, model)
				doc, err := json.Marshal(rows)
				if err != nil {
					return ImportPlan{}, err
				}
				return ImportPlan{
					Docs: map[string]string{key: string(doc)},
					Run: CreateImportRunParams{
						EngagementID: engagement.ID,
						Kind:         "code-currency",
						Mode:         "apply",
						Filename:     "models.csv",
						FileSha256:   model,
						SummaryJson:  []byte(`{}`),
					},
				}, nil
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent imports: %v", err)
	}

	note, err := s.GetReportNote(ctx, GetReportNoteParams{EngagementID: engagement.ID, SectionKey: key})
	if err != nil {
		t.Fatalf("get note: %v", err)
	}
	var rows []string
	if err := json.Unmarshal([]byte(note.Content), &rows); err != nil {
		t.Fatalf("decode note: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected every import to survive, got %v", rows)
	}
}
