package realtime

import (
	"github.com/google/uuid"

	"github.com/garageboard/garageboard/internal/types"
)

type ChangeOp string

const (
	OpInsert ChangeOp = "insert"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// ChangeEvent is one out-of-band change notification from the remote store,
// scoped to a single shop. Delete events may carry only the record id.
type ChangeEvent struct {
	Op       ChangeOp       `json:"op"`
	GarageID uuid.UUID      `json:"garage_id"`
	RecordID uuid.UUID      `json:"record_id"`
	Record   *types.JobCard `json:"record,omitempty"`
}
