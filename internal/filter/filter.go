package filter

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garageboard/garageboard/internal/types"
)

// MechanicCriterion distinguishes "filter to this mechanic" from "filter to
// explicitly unassigned". A nil *MechanicCriterion on the Filter means no
// constraint at all.
type MechanicCriterion struct {
	ID *uuid.UUID // nil matches only cards with no lead mechanic
}

// DateRange is inclusive on both bounds; a nil bound is open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Filter is a snapshot of the quick filters plus free-text search. The zero
// value constrains nothing and matches every card.
type Filter struct {
	Statuses     []types.JobStatus
	Priorities   []types.JobPriority
	Mechanic     *MechanicCriterion
	PromisedDate *DateRange
	SearchQuery  string
}

func (f Filter) IsZero() bool {
	return len(f.Statuses) == 0 &&
		len(f.Priorities) == 0 &&
		f.Mechanic == nil &&
		f.PromisedDate == nil &&
		strings.TrimSpace(f.SearchQuery) == ""
}

// Matches applies every present criterion, AND-combined. Absent criteria
// constrain nothing.
func Matches(card *types.JobCard, f Filter) bool {
	if card == nil {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, card.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !containsPriority(f.Priorities, card.Priority) {
		return false
	}
	if f.Mechanic != nil && !mechanicMatches(card, f.Mechanic) {
		return false
	}
	if f.PromisedDate != nil && !promisedDateMatches(card, f.PromisedDate) {
		return false
	}
	if q := strings.TrimSpace(f.SearchQuery); q != "" && !searchMatches(card, q) {
		return false
	}
	return true
}

// Apply returns the cards that pass the filter, preserving input order.
func Apply(cards []*types.JobCard, f Filter) []*types.JobCard {
	if f.IsZero() {
		out := make([]*types.JobCard, len(cards))
		copy(out, cards)
		return out
	}
	out := make([]*types.JobCard, 0, len(cards))
	for _, card := range cards {
		if Matches(card, f) {
			out = append(out, card)
		}
	}
	return out
}

func containsStatus(set []types.JobStatus, s types.JobStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func containsPriority(set []types.JobPriority, p types.JobPriority) bool {
	for _, v := range set {
		if v == p {
			return true
		}
	}
	return false
}

func mechanicMatches(card *types.JobCard, c *MechanicCriterion) bool {
	if c.ID == nil {
		return card.LeadMechanicID == nil
	}
	return card.LeadMechanicID != nil && *card.LeadMechanicID == *c.ID
}

// A card with no promised date never matches a date-bounded filter.
func promisedDateMatches(card *types.JobCard, r *DateRange) bool {
	if card.PromisedDate == nil {
		return false
	}
	d := *card.PromisedDate
	if r.From != nil && d.Before(*r.From) {
		return false
	}
	if r.To != nil && d.After(*r.To) {
		return false
	}
	return true
}

func searchMatches(card *types.JobCard, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(card.JobCardNumber), q) ||
		strings.Contains(strings.ToLower(card.CustomerName), q) ||
		strings.Contains(strings.ToLower(card.VehicleDescription), q)
}
