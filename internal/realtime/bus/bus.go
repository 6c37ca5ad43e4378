package bus

import (
	"context"

	"github.com/google/uuid"

	"github.com/garageboard/garageboard/internal/realtime"
)

// Bus carries job-card change events between the process that commits a
// write and every session that has the shop open. The redis implementation
// spans processes; the in-memory implementation serves single-process
// deployments and tests.
type Bus interface {
	Publish(ctx context.Context, event realtime.ChangeEvent) error
	// Subscribe delivers events for one shop until the returned cancel
	// function runs or the context ends.
	Subscribe(ctx context.Context, garageID uuid.UUID, onEvent func(realtime.ChangeEvent)) (func(), error)
	Close() error
}
