package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/garageboard/garageboard/internal/pkg/logger"
	"github.com/garageboard/garageboard/internal/types"
)

func bay(name string) Resource {
	return Resource{ID: uuid.New(), Name: name, Capacity: 1, Exclusive: true, IsActive: true}
}

func jobWindow(mechanic uuid.UUID, start time.Time, days int) *types.JobCard {
	end := start.Add(time.Duration(days) * 24 * time.Hour)
	return &types.JobCard{
		ID:             uuid.New(),
		JobCardNumber:  "JC-" + uuid.NewString()[:8],
		Status:         types.StatusInProgress,
		Priority:       types.PriorityMedium,
		LeadMechanicID: &mechanic,
		CreatedAt:      start,
		PromisedDate:   &end,
	}
}

// Intervals [Jan 1, Jan 3) and [Jan 2, Jan 4) overlap; [Jan 3, Jan 5) is
// back-to-back with the first and does not.
func TestOverlapConflictsAreHalfOpen(t *testing.T) {
	s := NewScheduler(logger.NewNop())
	b := bay("Bay 1")
	jan1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	first := jobWindow(b.ID, jan1, 2)                     // [Jan 1, Jan 3)
	second := jobWindow(b.ID, jan1.AddDate(0, 0, 1), 2)   // [Jan 2, Jan 4)
	backToBack := jobWindow(b.ID, jan1.AddDate(0, 0, 2), 2) // [Jan 3, Jan 5)

	lanes := s.BuildSwimlanes([]*types.JobCard{first, second, backToBack}, []Resource{b})
	conflicts := s.DetectConflicts(lanes)

	overlapsOf := map[uuid.UUID]map[uuid.UUID]bool{}
	for _, c := range conflicts {
		if c.Kind != ConflictOverlapping {
			continue
		}
		if overlapsOf[c.JobCardID] == nil {
			overlapsOf[c.JobCardID] = map[uuid.UUID]bool{}
		}
		for _, id := range c.ConflictingIDs {
			overlapsOf[c.JobCardID][id] = true
		}
	}

	if !overlapsOf[first.ID][second.ID] || !overlapsOf[second.ID][first.ID] {
		t.Fatalf("first and second should conflict both ways")
	}
	if overlapsOf[first.ID][backToBack.ID] {
		t.Fatalf("back-to-back intervals must not conflict (half-open)")
	}
	if !overlapsOf[second.ID][backToBack.ID] {
		t.Fatalf("second [Jan 2, Jan 4) and third [Jan 3, Jan 5) should conflict")
	}
}

func TestCapacityConflictsFlagEveryTaskOnTheLane(t *testing.T) {
	s := NewScheduler(logger.NewNop())
	now := time.Now()
	w := worker("Priya", 1)
	a := jobFor(&w.ID, now, nil)
	b := jobFor(&w.ID, now, nil)

	lanes := s.BuildSwimlanes([]*types.JobCard{a, b}, []Resource{w})
	conflicts := s.DetectConflicts(lanes)

	flagged := map[uuid.UUID][]uuid.UUID{}
	for _, c := range conflicts {
		if c.Kind == ConflictCapacityExceeded {
			flagged[c.JobCardID] = c.ConflictingIDs
		}
	}
	if len(flagged) != 2 {
		t.Fatalf("both tasks on the overloaded lane should be flagged, got=%d", len(flagged))
	}
	if len(flagged[a.ID]) != 1 || flagged[a.ID][0] != b.ID {
		t.Fatalf("task a should cross-reference task b")
	}
}

func TestNoConflictsOnHealthyLanes(t *testing.T) {
	s := NewScheduler(logger.NewNop())
	now := time.Now()
	w := worker("Priya", 3)
	cards := []*types.JobCard{jobFor(&w.ID, now, nil), jobFor(&w.ID, now, nil)}

	lanes := s.BuildSwimlanes(cards, []Resource{w})
	if got := s.DetectConflicts(lanes); len(got) != 0 {
		t.Fatalf("a lane under capacity on a shared resource has no conflicts, got=%d", len(got))
	}
}

// Worker lanes are not exclusive: simultaneous jobs are fine while the lane
// stays within capacity.
func TestOverlapIgnoredOnNonExclusiveLanes(t *testing.T) {
	s := NewScheduler(logger.NewNop())
	w := worker("Priya", 3)
	jan1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cards := []*types.JobCard{
		jobWindow(w.ID, jan1, 3),
		jobWindow(w.ID, jan1.AddDate(0, 0, 1), 3),
	}
	lanes := s.BuildSwimlanes(cards, []Resource{w})
	for _, c := range s.DetectConflicts(lanes) {
		if c.Kind == ConflictOverlapping {
			t.Fatalf("overlap detection must be limited to exclusive resources")
		}
	}
}
