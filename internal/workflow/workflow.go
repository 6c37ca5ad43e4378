package workflow

import (
	"sort"

	"github.com/garageboard/garageboard/internal/types"
)

// Column is one static workflow column. WIPLimit nil means uncapped.
type Column struct {
	Status     types.JobStatus
	WIPLimit   *int
	SortWeight int
	Color      string
}

type CapacityState string

const (
	CapacityOK       CapacityState = "ok"
	CapacityNear     CapacityState = "near"
	CapacityExceeded CapacityState = "exceeded"
)

// Model holds the workflow configuration shared by the board, timeline and
// calendar views. It is pure data: no I/O, safe for concurrent reads.
type Model struct {
	columns []Column
	byState map[types.JobStatus]Column
}

func NewModel(columns []Column) *Model {
	ordered := make([]Column, len(columns))
	copy(ordered, columns)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SortWeight < ordered[j].SortWeight
	})
	byState := make(map[types.JobStatus]Column, len(ordered))
	for _, col := range ordered {
		byState[col.Status] = col
	}
	return &Model{columns: ordered, byState: byState}
}

// Default returns the built-in six-column workflow.
func Default() *Model {
	wipInProgress := 5
	wipReady := 8
	return NewModel([]Column{
		{Status: types.StatusDraft, SortWeight: 0, Color: "#94a3b8"},
		{Status: types.StatusQueued, SortWeight: 10, Color: "#60a5fa"},
		{Status: types.StatusInProgress, WIPLimit: &wipInProgress, SortWeight: 20, Color: "#f59e0b"},
		{Status: types.StatusReady, WIPLimit: &wipReady, SortWeight: 30, Color: "#34d399"},
		{Status: types.StatusDelivered, SortWeight: 40, Color: "#10b981"},
		{Status: types.StatusCancelled, SortWeight: 50, Color: "#f87171"},
	})
}

func (m *Model) ColumnsInOrder() []Column {
	out := make([]Column, len(m.columns))
	copy(out, m.columns)
	return out
}

// ColumnFor reports the column owning a status, if one is configured.
func (m *Model) ColumnFor(status types.JobStatus) (Column, bool) {
	col, ok := m.byState[status]
	return col, ok
}

func (m *Model) IsKnown(status types.JobStatus) bool {
	_, ok := m.byState[status]
	return ok
}

// IsTerminal reports whether a status ends the scheduling lifecycle.
func (m *Model) IsTerminal(status types.JobStatus) bool {
	return status == types.StatusDelivered || status == types.StatusCancelled
}

// CapacityState classifies a column's load against its WIP limit.
// Columns without a limit are always ok.
func (m *Model) CapacityState(status types.JobStatus, count int) CapacityState {
	col, ok := m.byState[status]
	if !ok || col.WIPLimit == nil {
		return CapacityOK
	}
	limit := *col.WIPLimit
	switch {
	case count >= limit:
		return CapacityExceeded
	case count == limit-1:
		return CapacityNear
	default:
		return CapacityOK
	}
}

// ColorFor is the single status→color table every view consumes; views must
// not define their own.
func (m *Model) ColorFor(status types.JobStatus) string {
	if col, ok := m.byState[status]; ok {
		return col.Color
	}
	return "#94a3b8"
}
