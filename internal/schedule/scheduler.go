package schedule

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/garageboard/garageboard/internal/pkg/logger"
	"github.com/garageboard/garageboard/internal/types"
)

// Resource is a schedulable worker or bay. Capacity <= 0 means unbounded.
// Exclusive marks resources (bays) that can physically hold one job at a
// time, which enables interval-overlap conflict detection on their lane.
type Resource struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Capacity   int       `json:"capacity"`
	Exclusive  bool      `json:"exclusive"`
	IsActive   bool      `json:"is_active"`
	Unassigned bool      `json:"unassigned,omitempty"`
}

// Task is one job card placed on a lane with its derived schedule interval.
// Intervals are half-open [Start, End).
type Task struct {
	Card  *types.JobCard `json:"card"`
	Start time.Time      `json:"start"`
	End   time.Time      `json:"end"`
}

type Swimlane struct {
	Resource              Resource `json:"resource"`
	Tasks                 []Task   `json:"tasks"`
	UsedCapacity          int      `json:"used_capacity"`
	UtilizationPercentage int      `json:"utilization_percentage"`
	IsOverloaded          bool     `json:"is_overloaded"`
}

const (
	DefaultJobDuration = 72 * time.Hour
	MinJobDuration     = 24 * time.Hour
)

type Scheduler struct {
	log *logger.Logger

	// defaults for jobs without a usable promised date
	defaultDuration time.Duration
	minDuration     time.Duration
}

func NewScheduler(baseLog *logger.Logger) *Scheduler {
	return &Scheduler{
		log:             baseLog.With("component", "ResourceScheduler"),
		defaultDuration: DefaultJobDuration,
		minDuration:     MinJobDuration,
	}
}

// RoleBay marks a directory entry as a service bay rather than a mechanic.
// Bays hold one vehicle at a time, so their lanes get overlap detection.
const RoleBay = "bay"

// ResourcesFromEmployees maps directory entries to schedulable resources,
// applying the shop default capacity where an entry has none. Bay entries
// become exclusive single-slot resources.
func ResourcesFromEmployees(employees []*types.Employee, defaultCapacity int) []Resource {
	out := make([]Resource, 0, len(employees))
	for _, emp := range employees {
		if emp == nil {
			continue
		}
		if emp.Role == RoleBay {
			out = append(out, Resource{
				ID:        emp.ID,
				Name:      emp.Name,
				Capacity:  1,
				Exclusive: true,
				IsActive:  emp.IsActive,
			})
			continue
		}
		capacity := emp.Capacity
		if capacity <= 0 {
			capacity = defaultCapacity
		}
		out = append(out, Resource{
			ID:       emp.ID,
			Name:     emp.Name,
			Capacity: capacity,
			IsActive: emp.IsActive,
		})
	}
	return out
}

// UnassignedResource is the synthetic lane absorbing every job card without
// a resolvable lead mechanic. Unbounded capacity: it can never overload.
func UnassignedResource() Resource {
	return Resource{
		ID:         uuid.Nil,
		Name:       "Unassigned",
		Capacity:   0,
		IsActive:   true,
		Unassigned: true,
	}
}

// BuildSwimlanes groups job cards per resource and derives lane load. Every
// input card lands in exactly one lane: cards whose lead mechanic is unset
// or does not resolve fall back to the synthetic unassigned lane, the
// latter with a logged data-integrity anomaly.
func (s *Scheduler) BuildSwimlanes(cards []*types.JobCard, resources []Resource) []Swimlane {
	byResource := make(map[uuid.UUID]int, len(resources)+1)
	lanes := make([]Swimlane, 0, len(resources)+1)
	for _, res := range resources {
		if res.Unassigned {
			continue
		}
		byResource[res.ID] = len(lanes)
		lanes = append(lanes, Swimlane{Resource: res, Tasks: []Task{}})
	}
	unassignedIdx := len(lanes)
	lanes = append(lanes, Swimlane{Resource: UnassignedResource(), Tasks: []Task{}})

	for _, card := range cards {
		if card == nil {
			continue
		}
		idx := unassignedIdx
		if card.LeadMechanicID != nil {
			if resolved, ok := byResource[*card.LeadMechanicID]; ok {
				idx = resolved
			} else {
				s.log.Warn("lead mechanic not in resource directory, using unassigned lane",
					"job_card_id", card.ID, "job_card_number", card.JobCardNumber,
					"lead_mechanic_id", *card.LeadMechanicID)
			}
		}
		lanes[idx].Tasks = append(lanes[idx].Tasks, s.taskFor(card))
	}

	for i := range lanes {
		sortTasks(lanes[i].Tasks)
		lanes[i].UsedCapacity = len(lanes[i].Tasks)
		lanes[i].UtilizationPercentage = utilization(lanes[i].UsedCapacity, lanes[i].Resource.Capacity)
		lanes[i].IsOverloaded = lanes[i].Resource.Capacity > 0 &&
			lanes[i].UsedCapacity > lanes[i].Resource.Capacity
	}
	return lanes
}

// taskFor derives the schedule interval: the job occupies its lane from
// creation until its promised date, with a one-day floor so a promised date
// at or before creation still renders a visible block, and a three-day
// default when no promised date exists.
func (s *Scheduler) taskFor(card *types.JobCard) Task {
	start := card.CreatedAt
	end := start.Add(s.defaultDuration)
	if card.PromisedDate != nil {
		if card.PromisedDate.After(start) {
			end = *card.PromisedDate
		} else {
			end = start.Add(s.minDuration)
		}
	}
	return Task{Card: card, Start: start, End: end}
}

func sortTasks(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].Start.Equal(tasks[j].Start) {
			return tasks[i].Start.Before(tasks[j].Start)
		}
		return tasks[i].Card.JobCardNumber < tasks[j].Card.JobCardNumber
	})
}

func utilization(used, capacity int) int {
	if capacity <= 0 {
		return 0
	}
	pct := math.Round(float64(used) / float64(capacity) * 100)
	if pct > 100 {
		pct = 100
	}
	return int(pct)
}
