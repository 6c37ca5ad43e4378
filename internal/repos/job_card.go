package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/garageboard/garageboard/internal/filter"
	pkgerrors "github.com/garageboard/garageboard/internal/pkg/errors"
	"github.com/garageboard/garageboard/internal/pkg/logger"
	"github.com/garageboard/garageboard/internal/realtime"
	"github.com/garageboard/garageboard/internal/realtime/bus"
	"github.com/garageboard/garageboard/internal/types"
)

type jobCardRepo struct {
	db  *gorm.DB
	bus bus.Bus
	log *logger.Logger
}

// NewJobCardRepo builds the GORM-backed JobCardRepository. Every committed
// update is published on the change bus so other sessions reconcile.
func NewJobCardRepo(db *gorm.DB, changeBus bus.Bus, baseLog *logger.Logger) JobCardRepository {
	return &jobCardRepo{
		db:  db,
		bus: changeBus,
		log: baseLog.With("repo", "JobCardRepo"),
	}
}

func (r *jobCardRepo) Fetch(ctx context.Context, garageID uuid.UUID, f filter.Filter) ([]*types.JobCard, error) {
	if garageID == uuid.Nil {
		return nil, fmt.Errorf("fetch job cards: %w: missing garage id", pkgerrors.ErrValidationFailed)
	}
	q := r.db.WithContext(ctx).
		Model(&types.JobCard{}).
		Where("garage_id = ?", garageID)
	q = applyFilter(q, f)

	var out []*types.JobCard
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("fetch job cards: %w", err)
	}
	return out, nil
}

func applyFilter(q *gorm.DB, f filter.Filter) *gorm.DB {
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if len(f.Priorities) > 0 {
		q = q.Where("priority IN ?", f.Priorities)
	}
	if f.Mechanic != nil {
		if f.Mechanic.ID == nil {
			q = q.Where("lead_mechanic_id IS NULL")
		} else {
			q = q.Where("lead_mechanic_id = ?", *f.Mechanic.ID)
		}
	}
	if f.PromisedDate != nil {
		q = q.Where("promised_date IS NOT NULL")
		if f.PromisedDate.From != nil {
			q = q.Where("promised_date >= ?", *f.PromisedDate.From)
		}
		if f.PromisedDate.To != nil {
			q = q.Where("promised_date <= ?", *f.PromisedDate.To)
		}
	}
	if f.SearchQuery != "" {
		like := "%" + f.SearchQuery + "%"
		q = q.Where(
			"job_card_number ILIKE ? OR customer_name ILIKE ? OR vehicle_description ILIKE ?",
			like, like, like,
		)
	}
	return q
}

func (r *jobCardRepo) Update(ctx context.Context, jobCardID uuid.UUID, updates map[string]interface{}) (*types.JobCard, error) {
	if jobCardID == uuid.Nil {
		return nil, fmt.Errorf("update job card: %w: missing id", pkgerrors.ErrValidationFailed)
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}

	res := r.db.WithContext(ctx).
		Model(&types.JobCard{}).
		Where("id = ?", jobCardID).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update job card %s: %w", jobCardID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("update job card %s: %w", jobCardID, pkgerrors.ErrNotFound)
	}

	var refreshed types.JobCard
	if err := r.db.WithContext(ctx).First(&refreshed, "id = ?", jobCardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("reload job card %s: %w", jobCardID, pkgerrors.ErrNotFound)
		}
		return nil, fmt.Errorf("reload job card %s: %w", jobCardID, err)
	}

	if r.bus != nil {
		event := realtime.ChangeEvent{
			Op:       realtime.OpUpdate,
			GarageID: refreshed.GarageID,
			RecordID: refreshed.ID,
			Record:   &refreshed,
		}
		if err := r.bus.Publish(ctx, event); err != nil {
			// the write is committed; other sessions catch up on next fetch
			r.log.Warn("publish change event failed", "job_card_id", jobCardID, "error", err)
		}
	}
	return &refreshed, nil
}

func (r *jobCardRepo) Subscribe(ctx context.Context, garageID uuid.UUID, onChange func(realtime.ChangeEvent)) (func(), error) {
	if r.bus == nil {
		return nil, fmt.Errorf("subscribe: no change bus configured")
	}
	return r.bus.Subscribe(ctx, garageID, onChange)
}
