package cache

import (
	"sync"

	"github.com/google/uuid"

	"github.com/garageboard/garageboard/internal/types"
)

// Cache is the shared in-memory job-card collection for one client session.
// It is the source of truth for every view; the board, timeline and calendar
// all project from it. All writes go through the mutation coordinator or the
// realtime reconciler, never through direct map access.
//
// Values are cloned on the way in and on the way out so a caller can never
// mutate a cached record behind the coordinator's back; the rollback contract
// depends on snapshots staying frozen.
type Cache struct {
	mu    sync.RWMutex
	cards map[uuid.UUID]*types.JobCard
}

func New() *Cache {
	return &Cache{cards: make(map[uuid.UUID]*types.JobCard)}
}

func (c *Cache) Get(id uuid.UUID) (*types.JobCard, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	card, ok := c.cards[id]
	if !ok {
		return nil, false
	}
	return card.Clone(), true
}

// Put inserts or replaces a record unconditionally.
func (c *Cache) Put(card *types.JobCard) {
	if card == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cards[card.ID] = card.Clone()
}

// PutIfAbsent inserts only when no record with that id exists yet and
// reports whether it inserted. Duplicate insert notifications become no-ops.
func (c *Cache) PutIfAbsent(card *types.JobCard) bool {
	if card == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.cards[card.ID]; exists {
		return false
	}
	c.cards[card.ID] = card.Clone()
	return true
}

func (c *Cache) Remove(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.cards[id]; !exists {
		return false
	}
	delete(c.cards, id)
	return true
}

// List returns a snapshot of every cached card. Order is unspecified;
// projections sort for themselves.
func (c *Cache) List() []*types.JobCard {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*types.JobCard, 0, len(c.cards))
	for _, card := range c.cards {
		out = append(out, card.Clone())
	}
	return out
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cards)
}

// ReplaceAll swaps the whole collection for a fresh fetch result.
func (c *Cache) ReplaceAll(cards []*types.JobCard) {
	next := make(map[uuid.UUID]*types.JobCard, len(cards))
	for _, card := range cards {
		if card == nil {
			continue
		}
		next[card.ID] = card.Clone()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cards = next
}
