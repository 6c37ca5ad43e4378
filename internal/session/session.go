package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garageboard/garageboard/internal/board"
	"github.com/garageboard/garageboard/internal/cache"
	"github.com/garageboard/garageboard/internal/filter"
	"github.com/garageboard/garageboard/internal/metrics"
	"github.com/garageboard/garageboard/internal/mutation"
	"github.com/garageboard/garageboard/internal/pkg/logger"
	"github.com/garageboard/garageboard/internal/realtime"
	"github.com/garageboard/garageboard/internal/repos"
	"github.com/garageboard/garageboard/internal/schedule"
	"github.com/garageboard/garageboard/internal/types"
	"github.com/garageboard/garageboard/internal/workflow"
)

type Config struct {
	DefaultMechanicCapacity int
	DueSoonHorizon          time.Duration
	BottleneckThreshold     int
}

// Session is one client's live view of one shop: the shared cache plus the
// components that read and write it. Created when the shop is opened, torn
// down when the client leaves. All three views (board, timeline, calendar)
// project from the same cache, so a status change made on the board is
// visible on the timeline on the next read.
type Session struct {
	GarageID uuid.UUID

	cache       *cache.Cache
	repo        repos.JobCardRepository
	directory   repos.EmployeeDirectory
	model       *workflow.Model
	projector   *board.Projector
	scheduler   *schedule.Scheduler
	aggregator  *metrics.Aggregator
	coordinator *mutation.Coordinator
	reconciler  *realtime.Reconciler
	log         *logger.Logger
	cfg         Config

	mu            sync.Mutex
	currentFilter filter.Filter
	fetchSeq      uint64
	cancelFetch   context.CancelFunc
	unsubscribe   func()
	drainDone     chan struct{}
}

func New(garageID uuid.UUID, repo repos.JobCardRepository, directory repos.EmployeeDirectory, model *workflow.Model, cfg Config, baseLog *logger.Logger) *Session {
	if cfg.DefaultMechanicCapacity <= 0 {
		cfg.DefaultMechanicCapacity = 3
	}
	log := baseLog.With("component", "Session", "garage_id", garageID)
	c := cache.New()
	coordinator := mutation.NewCoordinator(c, repo, model, baseLog)
	s := &Session{
		GarageID:    garageID,
		cache:       c,
		repo:        repo,
		directory:   directory,
		model:       model,
		projector:   board.NewProjector(baseLog),
		scheduler:   schedule.NewScheduler(baseLog),
		aggregator:  metrics.NewAggregator(model, cfg.DueSoonHorizon, cfg.BottleneckThreshold),
		coordinator: coordinator,
		reconciler:  realtime.NewReconciler(c, baseLog),
		log:         log,
		cfg:         cfg,
	}
	// a write in flight must not be clobbered by a stale fetch landing late
	coordinator.SetBeforeWriteHook(s.cancelPendingFetch)
	return s
}

// Refresh fetches the filtered collection into the cache. A refresh issued
// while an earlier one is pending supersedes it: the earlier result is
// discarded even if its request completes. A failed fetch leaves the
// previous cache content intact; stale-but-consistent beats empty.
func (s *Session) Refresh(ctx context.Context, f filter.Filter) error {
	s.mu.Lock()
	if s.cancelFetch != nil {
		s.cancelFetch()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancelFetch = cancel
	s.fetchSeq++
	seq := s.fetchSeq
	s.currentFilter = f
	s.mu.Unlock()

	cards, err := s.repo.Fetch(fetchCtx, s.GarageID, f)
	if err != nil {
		if fetchCtx.Err() != nil && ctx.Err() == nil {
			// superseded by a newer refresh or an optimistic write
			s.log.Debug("fetch canceled, discarding", "seq", seq)
			return nil
		}
		return fmt.Errorf("refresh session: %w", err)
	}

	s.mu.Lock()
	superseded := seq != s.fetchSeq
	s.mu.Unlock()
	if superseded {
		s.log.Debug("fetch superseded, discarding result", "seq", seq)
		return nil
	}
	s.cache.ReplaceAll(cards)
	s.log.Debug("session cache refreshed", "cards", len(cards))
	return nil
}

func (s *Session) cancelPendingFetch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
	// bump the sequence so an already-resolved fetch cannot apply either
	s.fetchSeq++
}

// Connect starts the realtime change feed. Events drain on one goroutine so
// notifications apply in arrival order. A dropped feed stops delivery
// without tearing the session down; the cache stays as fresh as the last
// fetch or mutation until Connect runs again.
func (s *Session) Connect(ctx context.Context) error {
	events := make(chan realtime.ChangeEvent, 64)
	unsubscribe, err := s.repo.Subscribe(ctx, s.GarageID, func(ev realtime.ChangeEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("connect session: %w", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.reconciler.Drain(ctx, events)
	}()

	s.mu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.unsubscribe = unsubscribe
	s.drainDone = done
	s.mu.Unlock()
	return nil
}

// Disconnect stops the change feed; safe to call twice.
func (s *Session) Disconnect() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Session) ApplyStatusChange(ctx context.Context, jobCardID uuid.UUID, newStatus types.JobStatus) (mutation.Result, error) {
	return s.coordinator.ApplyStatusChange(ctx, jobCardID, newStatus)
}

func (s *Session) ApplyFieldUpdate(ctx context.Context, jobCardID uuid.UUID, fields map[string]interface{}) (mutation.Result, error) {
	return s.coordinator.ApplyFieldUpdate(ctx, jobCardID, fields)
}

// Cards returns the filtered cache content. Realtime inserts that do not
// match the active filter stay cached but out of view.
func (s *Session) Cards() []*types.JobCard {
	s.mu.Lock()
	f := s.currentFilter
	s.mu.Unlock()
	return filter.Apply(s.cache.List(), f)
}

func (s *Session) Board() board.Projection {
	return s.projector.Project(s.Cards(), s.model)
}

func (s *Session) ColumnLoads() map[types.JobStatus]workflow.CapacityState {
	return s.projector.ColumnLoads(s.Board(), s.model)
}

// Swimlanes builds the timeline lanes from the current cache and the shop's
// active mechanics.
func (s *Session) Swimlanes(ctx context.Context) ([]schedule.Swimlane, error) {
	employees, err := s.directory.ListActive(ctx, s.GarageID)
	if err != nil {
		return nil, fmt.Errorf("list schedulable mechanics: %w", err)
	}
	resources := schedule.ResourcesFromEmployees(employees, s.cfg.DefaultMechanicCapacity)
	return s.scheduler.BuildSwimlanes(s.Cards(), resources), nil
}

func (s *Session) Conflicts(ctx context.Context) ([]schedule.Conflict, error) {
	lanes, err := s.Swimlanes(ctx)
	if err != nil {
		return nil, err
	}
	return s.scheduler.DetectConflicts(lanes), nil
}

func (s *Session) Metrics(ctx context.Context) (metrics.Metrics, error) {
	lanes, err := s.Swimlanes(ctx)
	if err != nil {
		return metrics.Metrics{}, err
	}
	return s.aggregator.Summarize(s.Cards(), lanes), nil
}

// Workflow exposes the shared column model so views can read colors and WIP
// limits from one place.
func (s *Session) Workflow() *workflow.Model {
	return s.model
}
