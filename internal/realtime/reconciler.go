package realtime

import (
	"context"

	"github.com/google/uuid"

	"github.com/garageboard/garageboard/internal/cache"
	"github.com/garageboard/garageboard/internal/pkg/logger"
)

// Reconciler merges server-pushed change notifications into the session
// cache. It never originates writes to the remote store.
//
// A notification can race with a pending optimistic write on the same
// record: whichever lands in the cache last is what renders, and the
// mutation's own settle step (refresh on success, rollback on failure) is
// the final authority. The store does not expose a per-record version
// stamp, so the window is accepted rather than fenced.
type Reconciler struct {
	cache *cache.Cache
	log   *logger.Logger
}

func NewReconciler(c *cache.Cache, baseLog *logger.Logger) *Reconciler {
	return &Reconciler{
		cache: c,
		log:   baseLog.With("component", "RealtimeReconciler"),
	}
}

// OnNotification applies one change event. Inserts are idempotent against
// duplicate delivery; updates unconditionally replace (server truth wins);
// deletes remove.
func (r *Reconciler) OnNotification(ev ChangeEvent) {
	switch ev.Op {
	case OpInsert:
		if ev.Record == nil {
			r.log.Warn("insert notification without a record, ignoring", "record_id", ev.RecordID)
			return
		}
		if !r.cache.PutIfAbsent(ev.Record) {
			r.log.Debug("duplicate insert notification, ignoring", "record_id", ev.Record.ID)
		}
	case OpUpdate:
		if ev.Record == nil {
			r.log.Warn("update notification without a record, ignoring", "record_id", ev.RecordID)
			return
		}
		r.cache.Put(ev.Record)
	case OpDelete:
		id := ev.RecordID
		if id == uuid.Nil && ev.Record != nil {
			id = ev.Record.ID
		}
		r.cache.Remove(id)
	default:
		r.log.Warn("unknown change op, ignoring", "op", ev.Op, "record_id", ev.RecordID)
	}
}

// Drain consumes events from a channel until it closes or the context ends.
// The repository's subscription feeds this channel; running it on a single
// goroutine keeps notification application ordered.
func (r *Reconciler) Drain(ctx context.Context, events <-chan ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				r.log.Info("change feed closed, reconciliation stopped until resubscribe")
				return
			}
			r.OnNotification(ev)
		}
	}
}
