package board

import (
	"sort"

	"github.com/garageboard/garageboard/internal/pkg/logger"
	"github.com/garageboard/garageboard/internal/types"
	"github.com/garageboard/garageboard/internal/workflow"
)

// Projection is the board view-model: one ordered bucket per configured
// workflow column, keyed by status.
type Projection map[types.JobStatus][]*types.JobCard

type Projector struct {
	log *logger.Logger
}

func NewProjector(baseLog *logger.Logger) *Projector {
	return &Projector{log: baseLog.With("component", "BoardProjector")}
}

// Project buckets cards by status and orders each bucket deterministically:
// priority rank, then promised date (nulls last), then newest created first.
// Cards whose status has no configured column are dropped and logged as a
// data-integrity anomaly; that is a server-data problem, not a user error.
func (p *Projector) Project(cards []*types.JobCard, model *workflow.Model) Projection {
	columns := model.ColumnsInOrder()
	out := make(Projection, len(columns))
	for _, col := range columns {
		out[col.Status] = []*types.JobCard{}
	}
	for _, card := range cards {
		if card == nil {
			continue
		}
		bucket, ok := out[card.Status]
		if !ok {
			p.log.Warn("job card has no configured workflow column, dropping from board",
				"job_card_id", card.ID, "job_card_number", card.JobCardNumber, "status", card.Status)
			continue
		}
		out[card.Status] = append(bucket, card)
	}
	for status, bucket := range out {
		sortBucket(bucket)
		out[status] = bucket
	}
	return out
}

func sortBucket(bucket []*types.JobCard) {
	sort.SliceStable(bucket, func(i, j int) bool {
		a, b := bucket[i], bucket[j]
		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra < rb
		}
		switch {
		case a.PromisedDate != nil && b.PromisedDate != nil:
			if !a.PromisedDate.Equal(*b.PromisedDate) {
				return a.PromisedDate.Before(*b.PromisedDate)
			}
		case a.PromisedDate != nil:
			return true
		case b.PromisedDate != nil:
			return false
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// ColumnLoads counts the bucket sizes and classifies each against its WIP
// limit, for the column headers.
func (p *Projector) ColumnLoads(projection Projection, model *workflow.Model) map[types.JobStatus]workflow.CapacityState {
	out := make(map[types.JobStatus]workflow.CapacityState, len(projection))
	for status, bucket := range projection {
		out[status] = model.CapacityState(status, len(bucket))
	}
	return out
}
