package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/unified-report/apps/api/internal/compliance"
)

func createTrack(t *testing.T, s *Server, engagementID uuid.UUID, requirement int) compliance.TrackDetail {
	t.Helper()
	body := `{"oem":"Dell","name":"Storage Specialist","overallRequirement":` + strconv.Itoa(requirement) + `}`
	rr := httptest.NewRecorder()
	s.PostComplianceTracks(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), engagementID)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create track: %d %s", rr.Code, rr.Body.String())
	}
	var detail compliance.TrackDetail
	if err := json.Unmarshal(rr.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode track: %v", err)
	}
	return detail
}

func addAssignment(t *testing.T, s *Server, trackID uuid.UUID, engineer, status string) assignmentResponse {
	t.Helper()
	body := `{"engineerName":"` + engineer + `","certificationName":"PowerStore Implementation","status":"` + status + `"}`
	rr := httptest.NewRecorder()
	s.PostComplianceTracksTrackIdAssignments(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), trackID)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create assignment: %d %s", rr.Code, rr.Body.String())
	}
	var resp assignmentResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode assignment: %v", err)
	}
	return resp
}

func TestAssignmentWritesRecalculateTrack(t *testing.T) {
	st := newMemStore()
	s := newTestServer(st)
	engagementID := seedEngagement(t, st)
	track := createTrack(t, s, engagementID, 5)

	addAssignment(t, s, track.ID, "Zoe", "earned")
	addAssignment(t, s, track.ID, "adam", "IN_PROGRESS")
	last := addAssignment(t, s, track.ID, "Mia", "EARNED")

	if last.Track.EarnedCerts != 2 || last.Track.OverallEarned != 2 {
		t.Fatalf("expected 2/2 after creates, got %d/%d", last.Track.EarnedCerts, last.Track.OverallEarned)
	}
	names := []string{}
	for _, a := range last.Track.Assignments {
		names = append(names, a.EngineerName)
	}
	if diff := cmp.Diff([]string{"adam", "Mia", "Zoe"}, names); diff != "" {
		t.Fatalf("assignment order mismatch (-want +got):\n%s", diff)
	}

	rr := httptest.NewRecorder()
	s.PatchComplianceAssignmentsAssignmentId(rr, httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"expired"}`)), last.Assignment.ID)
	if rr.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", rr.Code, rr.Body.String())
	}
	var patched assignmentResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &patched); err != nil {
		t.Fatalf("decode patch: %v", err)
	}
	if patched.Assignment.Status != compliance.StatusExpired || patched.Track.EarnedCerts != 1 || patched.Track.OverallEarned != 1 {
		t.Fatalf("unexpected patch result: %+v", patched)
	}
	if patched.Track.StatusCounts[compliance.StatusExpired] != 1 {
		t.Fatalf("expected expired count, got %v", patched.Track.StatusCounts)
	}
}

func TestOverallEarnedCappedAtRequirement(t *testing.T) {
	st := newMemStore()
	s := newTestServer(st)
	track := createTrack(t, s, seedEngagement(t, st), 1)

	addAssignment(t, s, track.ID, "A", "EARNED")
	resp := addAssignment(t, s, track.ID, "B", "EARNED")
	if resp.Track.EarnedCerts != 2 || resp.Track.OverallEarned != 1 {
		t.Fatalf("expected earned 2 capped to 1, got %d/%d", resp.Track.EarnedCerts, resp.Track.OverallEarned)
	}
}

func TestGetTrackDoesNotWrite(t *testing.T) {
	st := newMemStore()
	s := newTestServer(st)
	track := createTrack(t, s, seedEngagement(t, st), 3)

	before := st.tracks[track.ID].UpdatedAt
	rr := httptest.NewRecorder()
	s.GetComplianceTracksTrackId(rr, httptest.NewRequest(http.MethodGet, "/", nil), track.ID)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !st.tracks[track.ID].UpdatedAt.Equal(before) {
		t.Fatalf("GET must not update the track")
	}
}

func TestComplianceNotFoundAndValidation(t *testing.T) {
	st := newMemStore()
	s := newTestServer(st)
	track := createTrack(t, s, seedEngagement(t, st), 3)

	cases := []struct {
		name   string
		call   func(*httptest.ResponseRecorder)
		status int
	}{
		{
			name: "recalculate unknown track",
			call: func(rr *httptest.ResponseRecorder) {
				s.PostComplianceTracksTrackIdRecalculate(rr, httptest.NewRequest(http.MethodPost, "/", nil), uuid.New())
			},
			status: http.StatusNotFound,
		},
		{
			name: "assignment on unknown track",
			call: func(rr *httptest.ResponseRecorder) {
				body := `{"engineerName":"A","certificationName":"B"}`
				s.PostComplianceTracksTrackIdAssignments(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), uuid.New())
			},
			status: http.StatusNotFound,
		},
		{
			name: "patch unknown assignment",
			call: func(rr *httptest.ResponseRecorder) {
				s.PatchComplianceAssignmentsAssignmentId(rr, httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"EARNED"}`)), uuid.New())
			},
			status: http.StatusNotFound,
		},
		{
			name: "invalid status",
			call: func(rr *httptest.ResponseRecorder) {
				body := `{"engineerName":"A","certificationName":"B","status":"DONE"}`
				s.PostComplianceTracksTrackIdAssignments(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), track.ID)
			},
			status: http.StatusBadRequest,
		},
		{
			name: "invalid due date",
			call: func(rr *httptest.ResponseRecorder) {
				body := `{"engineerName":"A","certificationName":"B","dueDate":"next week"}`
				s.PostComplianceTracksTrackIdAssignments(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), track.ID)
			},
			status: http.StatusBadRequest,
		},
		{
			name: "negative requirement",
			call: func(rr *httptest.ResponseRecorder) {
				body := `{"oem":"Dell","name":"x","overallRequirement":-1}`
				s.PostComplianceTracks(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), uuid.New())
			},
			status: http.StatusBadRequest,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tc.call(rr)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
		})
	}
}
