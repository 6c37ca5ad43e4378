package mutation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garageboard/garageboard/internal/cache"
	pkgerrors "github.com/garageboard/garageboard/internal/pkg/errors"
	"github.com/garageboard/garageboard/internal/pkg/logger"
	"github.com/garageboard/garageboard/internal/repos"
	"github.com/garageboard/garageboard/internal/types"
	"github.com/garageboard/garageboard/internal/workflow"
)

type Outcome string

const (
	// OutcomeRejected: validation failed before any cache mutation.
	OutcomeRejected Outcome = "rejected"
	// OutcomeCommitted: the remote write succeeded; the cache holds the
	// server-refreshed record.
	OutcomeCommitted Outcome = "committed"
	// OutcomeRolledBack: the remote write failed; the cache holds the
	// pre-mutation snapshot again.
	OutcomeRolledBack Outcome = "rolled_back"
)

type Result struct {
	Outcome Outcome
	// Card is the settled record: server-refreshed on commit, restored
	// snapshot on rollback, nil on rejection.
	Card *types.JobCard
}

// Coordinator owns every user-originated job-card mutation. Each attempt
// runs Idle → Pending → Committed|RolledBack and produces exactly one
// outcome; a renderer never observes an intermediate cache state.
//
// The renderer-facing sequence per attempt: snapshot the cached record,
// swap in the optimistic projection, issue the remote write, then settle —
// keep the server-returned record on success, restore the snapshot on
// failure. Snapshot-and-swap is atomic per record, so concurrent attempts
// on the same record serialize: the later attempt snapshots the earlier
// attempt's optimistic value and rollbacks compose LIFO.
type Coordinator struct {
	cache *cache.Cache
	repo  repos.JobCardRepository
	model *workflow.Model
	log   *logger.Logger

	// onBeforeWrite lets the owning session cancel in-flight reads for the
	// collection so a stale fetch cannot clobber the optimistic write.
	onBeforeWrite func()

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewCoordinator(c *cache.Cache, repo repos.JobCardRepository, model *workflow.Model, baseLog *logger.Logger) *Coordinator {
	return &Coordinator{
		cache: c,
		repo:  repo,
		model: model,
		log:   baseLog.With("component", "MutationCoordinator"),
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// SetBeforeWriteHook registers a callback invoked after validation and
// before the optimistic cache write. Used by the session to cancel pending
// refreshes of the same collection.
func (c *Coordinator) SetBeforeWriteHook(hook func()) {
	c.onBeforeWrite = hook
}

func (c *Coordinator) ApplyStatusChange(ctx context.Context, jobCardID uuid.UUID, newStatus types.JobStatus) (Result, error) {
	if !c.model.IsKnown(newStatus) {
		return Result{Outcome: OutcomeRejected},
			fmt.Errorf("status %q has no workflow column: %w", newStatus, pkgerrors.ErrValidationFailed)
	}
	fields := map[string]interface{}{"status": newStatus}
	if c.model.IsTerminal(newStatus) && newStatus == types.StatusDelivered {
		fields["actual_completion_date"] = time.Now()
	}
	return c.apply(ctx, jobCardID, fields)
}

func (c *Coordinator) ApplyFieldUpdate(ctx context.Context, jobCardID uuid.UUID, fields map[string]interface{}) (Result, error) {
	if len(fields) == 0 {
		return Result{Outcome: OutcomeRejected},
			fmt.Errorf("empty field update: %w", pkgerrors.ErrValidationFailed)
	}
	if raw, ok := fields["status"]; ok {
		status, err := asStatus(raw)
		if err != nil || !c.model.IsKnown(status) {
			return Result{Outcome: OutcomeRejected},
				fmt.Errorf("status %v has no workflow column: %w", raw, pkgerrors.ErrValidationFailed)
		}
	}
	for key := range fields {
		if !mutableFields[key] {
			return Result{Outcome: OutcomeRejected},
				fmt.Errorf("field %q is not mutable through the coordinator: %w", key, pkgerrors.ErrValidationFailed)
		}
	}
	return c.apply(ctx, jobCardID, fields)
}

func (c *Coordinator) apply(ctx context.Context, jobCardID uuid.UUID, fields map[string]interface{}) (Result, error) {
	if c.onBeforeWrite != nil {
		c.onBeforeWrite()
	}

	lock := c.lockFor(jobCardID)
	lock.Lock()
	snapshot, ok := c.cache.Get(jobCardID)
	if !ok {
		lock.Unlock()
		return Result{Outcome: OutcomeRejected},
			fmt.Errorf("job card %s not in session cache: %w", jobCardID, pkgerrors.ErrNotFound)
	}
	optimistic, err := project(snapshot, fields)
	if err != nil {
		lock.Unlock()
		return Result{Outcome: OutcomeRejected},
			fmt.Errorf("%v: %w", err, pkgerrors.ErrValidationFailed)
	}
	c.cache.Put(optimistic)
	lock.Unlock()

	refreshed, err := c.repo.Update(ctx, jobCardID, fields)
	if err != nil {
		c.cache.Put(snapshot)
		c.log.Warn("remote write failed, optimistic change rolled back",
			"job_card_id", jobCardID, "error", err)
		return Result{Outcome: OutcomeRolledBack, Card: snapshot}, wrapRemoteErr(err)
	}

	// settle: keep server-computed fields (updated_at and friends)
	c.cache.Put(refreshed)
	return Result{Outcome: OutcomeCommitted, Card: refreshed}, nil
}

func (c *Coordinator) lockFor(id uuid.UUID) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[id] = lock
	}
	return lock
}

func wrapRemoteErr(err error) error {
	if errors.Is(err, pkgerrors.ErrNotFound) ||
		errors.Is(err, pkgerrors.ErrPermissionDenied) ||
		errors.Is(err, pkgerrors.ErrValidationFailed) {
		return err
	}
	return fmt.Errorf("%v: %w", err, pkgerrors.ErrRemoteWriteFailed)
}
