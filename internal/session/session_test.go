package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/garageboard/garageboard/internal/filter"
	"github.com/garageboard/garageboard/internal/pkg/logger"
	"github.com/garageboard/garageboard/internal/realtime"
	"github.com/garageboard/garageboard/internal/types"
	"github.com/garageboard/garageboard/internal/workflow"
)

// scriptedRepo lets tests hold fetches open and inject change events.
type scriptedRepo struct {
	mu        sync.Mutex
	cards     []*types.JobCard
	fetchErr  error
	fetchGate chan struct{} // when set, Fetch blocks on it (or ctx)
	updateErr error
	onChange  func(realtime.ChangeEvent)
}

func (r *scriptedRepo) Fetch(ctx context.Context, _ uuid.UUID, _ filter.Filter) ([]*types.JobCard, error) {
	r.mu.Lock()
	gate := r.fetchGate
	err := r.fetchErr
	cards := make([]*types.JobCard, len(r.cards))
	copy(cards, r.cards)
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return cards, nil
}

func (r *scriptedRepo) Update(_ context.Context, id uuid.UUID, fields map[string]interface{}) (*types.JobCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	for _, c := range r.cards {
		if c.ID == id {
			refreshed := c.Clone()
			if raw, ok := fields["status"]; ok {
				if s, ok := raw.(types.JobStatus); ok {
					refreshed.Status = s
				}
			}
			refreshed.UpdatedAt = time.Now()
			return refreshed, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *scriptedRepo) Subscribe(_ context.Context, _ uuid.UUID, onChange func(realtime.ChangeEvent)) (func(), error) {
	r.mu.Lock()
	r.onChange = onChange
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.onChange = nil
		r.mu.Unlock()
	}, nil
}

func (r *scriptedRepo) push(ev realtime.ChangeEvent) {
	r.mu.Lock()
	onChange := r.onChange
	r.mu.Unlock()
	if onChange != nil {
		onChange(ev)
	}
}

type fakeDirectory struct{}

func (fakeDirectory) NameOf(context.Context, uuid.UUID) (string, bool) { return "", false }
func (fakeDirectory) ListActive(context.Context, uuid.UUID) ([]*types.Employee, error) {
	return nil, nil
}

func sessionCard(garageID uuid.UUID, number string) *types.JobCard {
	return &types.JobCard{
		ID:            uuid.New(),
		JobCardNumber: number,
		GarageID:      garageID,
		Status:        types.StatusQueued,
		Priority:      types.PriorityMedium,
		CreatedAt:     time.Now(),
	}
}

func newTestSession(repo *scriptedRepo) *Session {
	return New(uuid.New(), repo, fakeDirectory{}, workflow.Default(), Config{}, logger.NewNop())
}

func TestRefreshPopulatesCacheAndBoard(t *testing.T) {
	garageID := uuid.New()
	repo := &scriptedRepo{cards: []*types.JobCard{
		sessionCard(garageID, "JC-1"),
		sessionCard(garageID, "JC-2"),
	}}
	s := newTestSession(repo)

	if err := s.Refresh(context.Background(), filter.Filter{}); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := len(s.Cards()); got != 2 {
		t.Fatalf("cards: want=2 got=%d", got)
	}
	if got := len(s.Board()[types.StatusQueued]); got != 2 {
		t.Fatalf("queued bucket: want=2 got=%d", got)
	}
}

func TestFetchFailureKeepsPreviousCache(t *testing.T) {
	garageID := uuid.New()
	repo := &scriptedRepo{cards: []*types.JobCard{sessionCard(garageID, "JC-1")}}
	s := newTestSession(repo)
	if err := s.Refresh(context.Background(), filter.Filter{}); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	repo.mu.Lock()
	repo.fetchErr = errors.New("store unreachable")
	repo.mu.Unlock()

	if err := s.Refresh(context.Background(), filter.Filter{}); err == nil {
		t.Fatalf("failed fetch should surface an error")
	}
	if got := len(s.Cards()); got != 1 {
		t.Fatalf("stale-but-consistent beats empty: want=1 got=%d", got)
	}
}

// A newer refresh supersedes a pending one; the stale result is discarded
// even though its request completes.
func TestSupersededFetchIsDiscarded(t *testing.T) {
	garageID := uuid.New()
	stale := sessionCard(garageID, "JC-stale")
	fresh := sessionCard(garageID, "JC-fresh")

	gate := make(chan struct{})
	repo := &scriptedRepo{cards: []*types.JobCard{stale}, fetchGate: gate}
	s := newTestSession(repo)

	firstDone := make(chan error, 1)
	go func() { firstDone <- s.Refresh(context.Background(), filter.Filter{}) }()

	// wait for the first fetch to be in flight, then supersede it
	time.Sleep(20 * time.Millisecond)
	repo.mu.Lock()
	repo.cards = []*types.JobCard{fresh}
	repo.fetchGate = nil
	repo.mu.Unlock()
	if err := s.Refresh(context.Background(), filter.Filter{}); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	close(gate)

	select {
	case err := <-firstDone:
		if err != nil {
			t.Fatalf("superseded refresh should return quietly, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("first refresh did not settle")
	}

	cards := s.Cards()
	if len(cards) != 1 || cards[0].JobCardNumber != "JC-fresh" {
		t.Fatalf("cache should hold the fresh result, got %+v", cards)
	}
}

// An optimistic write cancels a pending fetch so the stale read cannot
// clobber the new value when it lands.
func TestMutationCancelsPendingFetch(t *testing.T) {
	garageID := uuid.New()
	card := sessionCard(garageID, "JC-1")
	repo := &scriptedRepo{cards: []*types.JobCard{card}}
	s := newTestSession(repo)
	if err := s.Refresh(context.Background(), filter.Filter{}); err != nil {
		t.Fatalf("prime: %v", err)
	}

	gate := make(chan struct{})
	repo.mu.Lock()
	repo.fetchGate = gate
	repo.mu.Unlock()

	pendingDone := make(chan error, 1)
	go func() { pendingDone <- s.Refresh(context.Background(), filter.Filter{}) }()
	time.Sleep(20 * time.Millisecond)

	if _, err := s.ApplyStatusChange(context.Background(), card.ID, types.StatusInProgress); err != nil {
		t.Fatalf("ApplyStatusChange: %v", err)
	}
	close(gate)

	select {
	case <-pendingDone:
	case <-time.After(time.Second):
		t.Fatalf("pending refresh did not settle")
	}

	cards := s.Cards()
	if len(cards) != 1 || cards[0].Status != types.StatusInProgress {
		t.Fatalf("stale fetch must not clobber the committed write, got %+v", cards)
	}
}

func TestConnectReconcilesPushedEvents(t *testing.T) {
	garageID := uuid.New()
	repo := &scriptedRepo{}
	s := New(garageID, repo, fakeDirectory{}, workflow.Default(), Config{}, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	card := sessionCard(garageID, "JC-pushed")
	repo.push(realtime.ChangeEvent{Op: realtime.OpInsert, GarageID: garageID, RecordID: card.ID, Record: card})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(s.Cards()) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := len(s.Cards()); got != 1 {
		t.Fatalf("pushed insert should reconcile into the cache, got=%d", got)
	}

	repo.push(realtime.ChangeEvent{Op: realtime.OpDelete, GarageID: garageID, RecordID: card.ID})
	deadline = time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(s.Cards()) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("pushed delete should reconcile out of the cache")
}

func TestDisconnectStopsDelivery(t *testing.T) {
	garageID := uuid.New()
	repo := &scriptedRepo{}
	s := New(garageID, repo, fakeDirectory{}, workflow.Default(), Config{}, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	s.Disconnect()

	repo.mu.Lock()
	gone := repo.onChange == nil
	repo.mu.Unlock()
	if !gone {
		t.Fatalf("Disconnect should tear the subscription down")
	}
}

// Cards view applies the active filter, so realtime inserts outside the
// filter stay cached but hidden.
func TestActiveFilterHidesNonMatchingInserts(t *testing.T) {
	garageID := uuid.New()
	queued := sessionCard(garageID, "JC-queued")
	repo := &scriptedRepo{cards: []*types.JobCard{queued}}
	s := newTestSession(repo)

	f := filter.Filter{Statuses: []types.JobStatus{types.StatusQueued}}
	if err := s.Refresh(context.Background(), f); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	ready := sessionCard(garageID, "JC-ready")
	ready.Status = types.StatusReady
	repo.push(realtime.ChangeEvent{Op: realtime.OpInsert, GarageID: garageID, RecordID: ready.ID, Record: ready})

	// give the drain goroutine time to apply the insert
	time.Sleep(50 * time.Millisecond)
	if got := len(s.Cards()); got != 1 {
		t.Fatalf("filtered view: want=1 visible card got=%d", got)
	}
	if got := len(s.Board()[types.StatusReady]); got != 0 {
		t.Fatalf("non-matching insert should stay hidden, got=%d in ready", got)
	}
}
