package schedule

import (
	"github.com/google/uuid"
)

type ConflictKind string

const (
	// ConflictCapacityExceeded: the task sits on an overloaded lane.
	ConflictCapacityExceeded ConflictKind = "capacity_exceeded"
	// ConflictOverlapping: the task's interval intersects another task on
	// an exclusive (single-slot) resource.
	ConflictOverlapping ConflictKind = "overlapping"
)

// Conflict flags one task against the tasks it collides with. Conflicts are
// reported, never auto-resolved; reassignment is the user's call.
type Conflict struct {
	Kind           ConflictKind `json:"kind"`
	ResourceID     uuid.UUID    `json:"resource_id"`
	ResourceName   string       `json:"resource_name"`
	JobCardID      uuid.UUID    `json:"job_card_id"`
	ConflictingIDs []uuid.UUID  `json:"conflicting_ids"`
}

// DetectConflicts scans the lanes for both conflict kinds. On an overloaded
// lane every task is flagged against every other task there; on exclusive
// lanes any two tasks with intersecting half-open intervals are flagged
// against each other, so back-to-back tasks do not conflict.
func (s *Scheduler) DetectConflicts(lanes []Swimlane) []Conflict {
	var out []Conflict
	for _, lane := range lanes {
		if lane.IsOverloaded {
			out = append(out, capacityConflicts(lane)...)
		}
		if lane.Resource.Exclusive {
			out = append(out, overlapConflicts(lane)...)
		}
	}
	return out
}

func capacityConflicts(lane Swimlane) []Conflict {
	out := make([]Conflict, 0, len(lane.Tasks))
	for i, task := range lane.Tasks {
		others := make([]uuid.UUID, 0, len(lane.Tasks)-1)
		for j, other := range lane.Tasks {
			if i == j {
				continue
			}
			others = append(others, other.Card.ID)
		}
		out = append(out, Conflict{
			Kind:           ConflictCapacityExceeded,
			ResourceID:     lane.Resource.ID,
			ResourceName:   lane.Resource.Name,
			JobCardID:      task.Card.ID,
			ConflictingIDs: others,
		})
	}
	return out
}

func overlapConflicts(lane Swimlane) []Conflict {
	var out []Conflict
	for i, task := range lane.Tasks {
		var others []uuid.UUID
		for j, other := range lane.Tasks {
			if i == j {
				continue
			}
			if overlaps(task, other) {
				others = append(others, other.Card.ID)
			}
		}
		if len(others) > 0 {
			out = append(out, Conflict{
				Kind:           ConflictOverlapping,
				ResourceID:     lane.Resource.ID,
				ResourceName:   lane.Resource.Name,
				JobCardID:      task.Card.ID,
				ConflictingIDs: others,
			})
		}
	}
	return out
}

// half-open intervals, so a.End == b.Start is not an overlap
func overlaps(a, b Task) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}
