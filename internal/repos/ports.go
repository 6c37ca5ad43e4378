package repos

import (
	"context"

	"github.com/google/uuid"

	"github.com/garageboard/garageboard/internal/filter"
	"github.com/garageboard/garageboard/internal/realtime"
	"github.com/garageboard/garageboard/internal/types"
)

// JobCardRepository is the coordination core's only write path to the remote
// store. Update returns the refreshed record so server-computed fields
// (updated_at, derived totals) flow back without a second fetch.
type JobCardRepository interface {
	Fetch(ctx context.Context, garageID uuid.UUID, f filter.Filter) ([]*types.JobCard, error)
	Update(ctx context.Context, jobCardID uuid.UUID, updates map[string]interface{}) (*types.JobCard, error)
	Subscribe(ctx context.Context, garageID uuid.UUID, onChange func(realtime.ChangeEvent)) (func(), error)
}

// EmployeeDirectory resolves mechanic ids to display names and enumerates
// the schedulable workers of a shop.
type EmployeeDirectory interface {
	NameOf(ctx context.Context, id uuid.UUID) (string, bool)
	ListActive(ctx context.Context, garageID uuid.UUID) ([]*types.Employee, error)
}
