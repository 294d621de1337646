// Package compliance keeps OEM certification tracks in step with the
// certification assignments recorded against them.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrTrackNotFound = errors.New("oem compliance track not found")

const (
	StatusNotStarted = "NOT_STARTED"
	StatusInProgress = "IN_PROGRESS"
	StatusEarned     = "EARNED"
	StatusExpired    = "EXPIRED"
)

var validStatuses = map[string]struct{}{
	StatusNotStarted: {},
	StatusInProgress: {},
	StatusEarned:     {},
	StatusExpired:    {},
}

// NormalizeStatus upper-cases a status and reports whether it is one of the
// known assignment states.
func NormalizeStatus(raw string) (string, bool) {
	status := strings.ToUpper(strings.TrimSpace(raw))
	_, ok := validStatuses[status]
	return status, ok
}

type Track struct {
	ID                 uuid.UUID `json:"id"`
	EngagementID       uuid.UUID `json:"engagementId"`
	OEM                string    `json:"oem"`
	Name               string    `json:"name"`
	OverallRequirement int       `json:"overallRequirement"`
	EarnedCerts        int       `json:"earnedCerts"`
	OverallEarned      int       `json:"overallEarned"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type Assignment struct {
	ID                uuid.UUID  `json:"id"`
	TrackID           uuid.UUID  `json:"trackId"`
	EngineerName      string     `json:"engineerName"`
	CertificationName string     `json:"certificationName"`
	Status            string     `json:"status"`
	DueDate           *time.Time `json:"dueDate,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

type TrackDetail struct {
	Track
	Assignments  []Assignment   `json:"assignments"`
	StatusCounts map[string]int `json:"statusCounts"`
}

// Repository is the persistence port used by Recalculate. GetTrack and
// UpdateTrackCounters return an error matching ErrTrackNotFound for an
// unknown id.
type Repository interface {
	GetTrack(ctx context.Context, id uuid.UUID) (Track, error)
	ListAssignments(ctx context.Context, trackID uuid.UUID) ([]Assignment, error)
	UpdateTrackCounters(ctx context.Context, id uuid.UUID, earnedCerts, overallEarned int) (Track, error)
}

// Recalculate recounts EARNED assignments for a track, persists the
// counters and returns the updated track with its sorted assignments.
func Recalculate(ctx context.Context, repo Repository, trackID uuid.UUID) (TrackDetail, error) {
	track, err := repo.GetTrack(ctx, trackID)
	if err != nil {
		return TrackDetail{}, fmt.Errorf("load track %s: %w", trackID, err)
	}

	assignments, err := repo.ListAssignments(ctx, trackID)
	if err != nil {
		return TrackDetail{}, fmt.Errorf("list assignments for track %s: %w", trackID, err)
	}

	counts := CountStatuses(assignments)
	earned := counts[StatusEarned]
	overall := min(track.OverallRequirement, earned)
	if overall < 0 {
		overall = 0
	}

	updated, err := repo.UpdateTrackCounters(ctx, trackID, earned, overall)
	if err != nil {
		return TrackDetail{}, fmt.Errorf("update track %s counters: %w", trackID, err)
	}

	SortAssignments(assignments)
	return TrackDetail{Track: updated, Assignments: assignments, StatusCounts: counts}, nil
}

// CountStatuses groups assignments by upper-cased status.
func CountStatuses(assignments []Assignment) map[string]int {
	counts := make(map[string]int, len(validStatuses))
	for _, a := range assignments {
		status := strings.ToUpper(strings.TrimSpace(a.Status))
		counts[status]++
	}
	return counts
}

// SortAssignments orders by engineer name then certification name,
// case-insensitively.
func SortAssignments(assignments []Assignment) {
	sort.SliceStable(assignments, func(i, j int) bool {
		a, b := assignments[i], assignments[j]
		if x, y := strings.ToLower(a.EngineerName), strings.ToLower(b.EngineerName); x != y {
			return x < y
		}
		return strings.ToLower(a.CertificationName) < strings.ToLower(b.CertificationName)
	})
}
