package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/garageboard/garageboard/internal/pkg/logger"
	"github.com/garageboard/garageboard/internal/types"
)

func worker(name string, capacity int) Resource {
	return Resource{ID: uuid.New(), Name: name, Capacity: capacity, IsActive: true}
}

func jobFor(mechanic *uuid.UUID, created time.Time, promised *time.Time) *types.JobCard {
	return &types.JobCard{
		ID:             uuid.New(),
		JobCardNumber:  "JC-" + uuid.NewString()[:8],
		Status:         types.StatusInProgress,
		Priority:       types.PriorityMedium,
		LeadMechanicID: mechanic,
		CreatedAt:      created,
		PromisedDate:   promised,
	}
}

// Every input card lands in exactly one lane.
func TestSwimlanesCoverEveryCardExactlyOnce(t *testing.T) {
	s := NewScheduler(logger.NewNop())
	now := time.Now()
	w1 := worker("Priya", 3)
	w2 := worker("Marcus", 3)
	ghost := uuid.New() // not in the directory

	cards := []*types.JobCard{
		jobFor(&w1.ID, now, nil),
		jobFor(&w1.ID, now, nil),
		jobFor(&w2.ID, now, nil),
		jobFor(nil, now, nil),
		jobFor(&ghost, now, nil),
	}
	lanes := s.BuildSwimlanes(cards, []Resource{w1, w2})

	total := 0
	for _, lane := range lanes {
		total += len(lane.Tasks)
		if lane.UsedCapacity != len(lane.Tasks) {
			t.Fatalf("lane %s: usedCapacity %d != task count %d",
				lane.Resource.Name, lane.UsedCapacity, len(lane.Tasks))
		}
	}
	if total != len(cards) {
		t.Fatalf("coverage: want=%d got=%d", len(cards), total)
	}
}

// An unresolvable mechanic falls back to the unassigned lane without panicking.
func TestUnresolvedMechanicFallsBackToUnassigned(t *testing.T) {
	s := NewScheduler(logger.NewNop())
	ghost := uuid.New()
	card := jobFor(&ghost, time.Now(), nil)

	lanes := s.BuildSwimlanes([]*types.JobCard{card}, []Resource{worker("Priya", 3)})
	var unassigned *Swimlane
	for i := range lanes {
		if lanes[i].Resource.Unassigned {
			unassigned = &lanes[i]
		}
	}
	if unassigned == nil {
		t.Fatalf("the synthetic unassigned lane must always exist")
	}
	if len(unassigned.Tasks) != 1 || unassigned.Tasks[0].Card.ID != card.ID {
		t.Fatalf("ghost-mechanic card should land on the unassigned lane")
	}
	if unassigned.IsOverloaded {
		t.Fatalf("the unassigned lane is unbounded and can never overload")
	}
}

func TestOverloadAndUtilization(t *testing.T) {
	s := NewScheduler(logger.NewNop())
	now := time.Now()
	w := worker("Priya", 2)
	cards := []*types.JobCard{
		jobFor(&w.ID, now, nil),
		jobFor(&w.ID, now, nil),
		jobFor(&w.ID, now, nil),
	}
	lanes := s.BuildSwimlanes(cards, []Resource{w})

	lane := lanes[0]
	if !lane.IsOverloaded {
		t.Fatalf("3 jobs against capacity 2 should overload")
	}
	if lane.UtilizationPercentage != 100 {
		t.Fatalf("utilization clamps at 100, got=%d", lane.UtilizationPercentage)
	}

	// overload invariant both directions
	for _, l := range lanes {
		wantOverload := l.Resource.Capacity > 0 && l.UsedCapacity > l.Resource.Capacity
		if l.IsOverloaded != wantOverload {
			t.Fatalf("lane %s: overload flag %v inconsistent with used=%d capacity=%d",
				l.Resource.Name, l.IsOverloaded, l.UsedCapacity, l.Resource.Capacity)
		}
	}
}

func TestUtilizationRounds(t *testing.T) {
	s := NewScheduler(logger.NewNop())
	now := time.Now()
	w := worker("Priya", 3)
	cards := []*types.JobCard{jobFor(&w.ID, now, nil)}
	lanes := s.BuildSwimlanes(cards, []Resource{w})
	if lanes[0].UtilizationPercentage != 33 {
		t.Fatalf("1/3 utilization: want=33 got=%d", lanes[0].UtilizationPercentage)
	}
}

func TestIntervalDerivation(t *testing.T) {
	s := NewScheduler(logger.NewNop())
	created := time.Date(2025, 2, 3, 8, 0, 0, 0, time.UTC)

	// no promised date: three-day default block
	noDate := jobFor(nil, created, nil)
	// promised after creation: block ends at the promise
	promise := created.Add(5 * 24 * time.Hour)
	withDate := jobFor(nil, created, &promise)
	// promised at/before creation: one-day floor
	stale := created.Add(-time.Hour)
	pastDate := jobFor(nil, created, &stale)

	lanes := s.BuildSwimlanes([]*types.JobCard{noDate, withDate, pastDate}, nil)
	tasks := map[uuid.UUID]Task{}
	for _, lane := range lanes {
		for _, task := range lane.Tasks {
			tasks[task.Card.ID] = task
		}
	}

	if got := tasks[noDate.ID]; !got.End.Equal(created.Add(72 * time.Hour)) {
		t.Fatalf("default duration: want=%v got=%v", created.Add(72*time.Hour), got.End)
	}
	if got := tasks[withDate.ID]; !got.End.Equal(promise) {
		t.Fatalf("promised end: want=%v got=%v", promise, got.End)
	}
	if got := tasks[pastDate.ID]; !got.End.Equal(created.Add(24 * time.Hour)) {
		t.Fatalf("minimum duration floor: want=%v got=%v", created.Add(24*time.Hour), got.End)
	}
	for id, task := range tasks {
		if !task.Start.Before(task.End) {
			t.Fatalf("task %s has a non-positive interval", id)
		}
	}
}

func TestResourcesFromEmployeesMapsBaysAndDefaults(t *testing.T) {
	mechanic := &types.Employee{ID: uuid.New(), Name: "Ana", Capacity: 0, IsActive: true}
	bay := &types.Employee{ID: uuid.New(), Name: "Lift 2", Role: RoleBay, Capacity: 5, IsActive: true}

	resources := ResourcesFromEmployees([]*types.Employee{mechanic, bay, nil}, 4)
	if len(resources) != 2 {
		t.Fatalf("want 2 resources, got %d", len(resources))
	}
	if resources[0].Capacity != 4 || resources[0].Exclusive {
		t.Fatalf("mechanic should inherit default capacity 4, non-exclusive: %+v", resources[0])
	}
	if resources[1].Capacity != 1 || !resources[1].Exclusive {
		t.Fatalf("bay should be an exclusive single-slot lane: %+v", resources[1])
	}
}
