package metrics

import (
	"math"
	"time"

	"github.com/garageboard/garageboard/internal/schedule"
	"github.com/garageboard/garageboard/internal/types"
	"github.com/garageboard/garageboard/internal/workflow"
)

// Metrics is the dashboard KPI summary. Derived on every call from the
// current collection; nothing here is stored, so it cannot go stale
// independently of its inputs.
type Metrics struct {
	TotalJobs           int                       `json:"total_jobs"`
	CountsByStatus      map[types.JobStatus]int   `json:"counts_by_status"`
	CountsByPriority    map[types.JobPriority]int `json:"counts_by_priority"`
	OverdueCount        int                       `json:"overdue_count"`
	DueSoonCount        int                       `json:"due_soon_count"`
	EstimatedRevenue    float64                   `json:"estimated_revenue"`
	FinalizedRevenue    float64                   `json:"finalized_revenue"`
	AverageUtilization  int                       `json:"average_utilization"`
	Bottlenecks         []string                  `json:"bottlenecks"`
	BottleneckThreshold int                       `json:"bottleneck_threshold"`
}

type Aggregator struct {
	model               *workflow.Model
	dueSoonHorizon      time.Duration
	bottleneckThreshold int
	now                 func() time.Time
}

func NewAggregator(model *workflow.Model, dueSoonHorizon time.Duration, bottleneckThreshold int) *Aggregator {
	if dueSoonHorizon <= 0 {
		dueSoonHorizon = 72 * time.Hour
	}
	if bottleneckThreshold <= 0 {
		bottleneckThreshold = 80
	}
	return &Aggregator{
		model:               model,
		dueSoonHorizon:      dueSoonHorizon,
		bottleneckThreshold: bottleneckThreshold,
		now:                 time.Now,
	}
}

// Summarize computes the KPI set over the current cards and lanes. A job is
// overdue when its promised date has passed and its status is not terminal;
// due soon when the promised date falls inside the configured horizon.
func (a *Aggregator) Summarize(cards []*types.JobCard, lanes []schedule.Swimlane) Metrics {
	now := a.now()
	m := Metrics{
		CountsByStatus:      make(map[types.JobStatus]int),
		CountsByPriority:    make(map[types.JobPriority]int),
		Bottlenecks:         []string{},
		BottleneckThreshold: a.bottleneckThreshold,
	}
	for _, card := range cards {
		if card == nil {
			continue
		}
		m.TotalJobs++
		m.CountsByStatus[card.Status]++
		m.CountsByPriority[card.Priority]++
		m.EstimatedRevenue += card.EstimatedLaborCost + card.EstimatedPartsCost
		m.FinalizedRevenue += card.FinalAmount

		if card.PromisedDate != nil && !a.model.IsTerminal(card.Status) {
			switch {
			case card.PromisedDate.Before(now):
				m.OverdueCount++
			case card.PromisedDate.Sub(now) <= a.dueSoonHorizon:
				m.DueSoonCount++
			}
		}
	}

	if len(lanes) > 0 {
		sum := 0
		for _, lane := range lanes {
			sum += lane.UtilizationPercentage
			if !lane.Resource.Unassigned && lane.UtilizationPercentage >= a.bottleneckThreshold {
				m.Bottlenecks = append(m.Bottlenecks, lane.Resource.Name)
			}
		}
		m.AverageUtilization = int(math.Round(float64(sum) / float64(len(lanes))))
	}
	return m
}
