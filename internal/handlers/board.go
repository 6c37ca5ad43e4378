package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garageboard/garageboard/internal/filter"
	pkgerrors "github.com/garageboard/garageboard/internal/pkg/errors"
	"github.com/garageboard/garageboard/internal/pkg/logger"
	"github.com/garageboard/garageboard/internal/session"
	"github.com/garageboard/garageboard/internal/types"
)

type BoardHandler struct {
	log      *logger.Logger
	sessions *session.Manager
}

func NewBoardHandler(log *logger.Logger, sessions *session.Manager) *BoardHandler {
	return &BoardHandler{
		log:      log.With("handler", "BoardHandler"),
		sessions: sessions,
	}
}

// GET /api/garages/:garageID/board
// Status-bucketed job cards plus per-column WIP state and colors.
func (h *BoardHandler) GetBoard(c *gin.Context) {
	s, f, ok := h.openSession(c)
	if !ok {
		return
	}
	if err := s.Refresh(c.Request.Context(), f); err != nil {
		// stale cache still renders; surface the fetch failure alongside
		h.log.Warn("board refresh failed, serving cached state", "error", err)
	}
	model := s.Workflow()
	columns := make([]gin.H, 0)
	for _, col := range model.ColumnsInOrder() {
		entry := gin.H{
			"status":      col.Status,
			"sort_weight": col.SortWeight,
			"color":       col.Color,
		}
		if col.WIPLimit != nil {
			entry["wip_limit"] = *col.WIPLimit
		}
		columns = append(columns, entry)
	}
	c.JSON(http.StatusOK, gin.H{
		"columns":      columns,
		"board":        s.Board(),
		"column_loads": s.ColumnLoads(),
	})
}

// GET /api/garages/:garageID/timeline
// Swimlanes with utilization and the detected conflicts.
func (h *BoardHandler) GetTimeline(c *gin.Context) {
	s, f, ok := h.openSession(c)
	if !ok {
		return
	}
	if err := s.Refresh(c.Request.Context(), f); err != nil {
		h.log.Warn("timeline refresh failed, serving cached state", "error", err)
	}
	lanes, err := s.Swimlanes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	conflicts, err := s.Conflicts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"swimlanes": lanes, "conflicts": conflicts})
}

// GET /api/garages/:garageID/metrics
func (h *BoardHandler) GetMetrics(c *gin.Context) {
	s, f, ok := h.openSession(c)
	if !ok {
		return
	}
	if err := s.Refresh(c.Request.Context(), f); err != nil {
		h.log.Warn("metrics refresh failed, serving cached state", "error", err)
	}
	m, err := s.Metrics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"metrics": m})
}

type statusChangeRequest struct {
	Status string `json:"status" binding:"required"`
}

// PATCH /api/garages/:garageID/job-cards/:jobCardID/status
func (h *BoardHandler) ChangeStatus(c *gin.Context) {
	s, _, ok := h.openSession(c)
	if !ok {
		return
	}
	jobCardID, err := uuid.Parse(c.Param("jobCardID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job card id"})
		return
	}
	var req statusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := s.ApplyStatusChange(c.Request.Context(), jobCardID, types.JobStatus(req.Status))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "outcome": result.Outcome})
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": result.Outcome, "job_card": result.Card})
}

type fieldUpdateRequest struct {
	Priority                *string    `json:"priority"`
	CustomerName            *string    `json:"customer_name"`
	VehicleDescription      *string    `json:"vehicle_description"`
	PromisedDate            *time.Time `json:"promised_date"`
	ClearPromisedDate       bool       `json:"clear_promised_date"`
	LeadMechanicID          *string    `json:"lead_mechanic_id"`
	ClearLeadMechanic       bool       `json:"clear_lead_mechanic"`
	EstimatedLaborCost      *float64   `json:"estimated_labor_cost"`
	EstimatedPartsCost      *float64   `json:"estimated_parts_cost"`
	FinalAmount             *float64   `json:"final_amount"`
	TotalChecklistItems     *int       `json:"total_checklist_items"`
	CompletedChecklistItems *int       `json:"completed_checklist_items"`
}

func (r fieldUpdateRequest) fields() map[string]interface{} {
	out := map[string]interface{}{}
	if r.Priority != nil {
		out["priority"] = *r.Priority
	}
	if r.CustomerName != nil {
		out["customer_name"] = *r.CustomerName
	}
	if r.VehicleDescription != nil {
		out["vehicle_description"] = *r.VehicleDescription
	}
	if r.ClearPromisedDate {
		out["promised_date"] = nil
	} else if r.PromisedDate != nil {
		out["promised_date"] = *r.PromisedDate
	}
	if r.ClearLeadMechanic {
		out["lead_mechanic_id"] = nil
	} else if r.LeadMechanicID != nil {
		out["lead_mechanic_id"] = *r.LeadMechanicID
	}
	if r.EstimatedLaborCost != nil {
		out["estimated_labor_cost"] = *r.EstimatedLaborCost
	}
	if r.EstimatedPartsCost != nil {
		out["estimated_parts_cost"] = *r.EstimatedPartsCost
	}
	if r.FinalAmount != nil {
		out["final_amount"] = *r.FinalAmount
	}
	if r.TotalChecklistItems != nil {
		out["total_checklist_items"] = *r.TotalChecklistItems
	}
	if r.CompletedChecklistItems != nil {
		out["completed_checklist_items"] = *r.CompletedChecklistItems
	}
	return out
}

// PATCH /api/garages/:garageID/job-cards/:jobCardID
func (h *BoardHandler) UpdateFields(c *gin.Context) {
	s, _, ok := h.openSession(c)
	if !ok {
		return
	}
	jobCardID, err := uuid.Parse(c.Param("jobCardID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job card id"})
		return
	}
	var req fieldUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := s.ApplyFieldUpdate(c.Request.Context(), jobCardID, req.fields())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "outcome": result.Outcome})
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": result.Outcome, "job_card": result.Card})
}

func (h *BoardHandler) openSession(c *gin.Context) (*session.Session, filter.Filter, bool) {
	garageID, err := uuid.Parse(c.Param("garageID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid garage id"})
		return nil, filter.Filter{}, false
	}
	s, err := h.sessions.Open(c.Request.Context(), garageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, filter.Filter{}, false
	}
	return s, parseFilter(c), true
}

// parseFilter reads the quick filters off the query string. "mechanic=none"
// selects explicitly-unassigned cards; omitting the param means no
// constraint.
func parseFilter(c *gin.Context) filter.Filter {
	var f filter.Filter
	for _, raw := range strings.Split(c.Query("statuses"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			f.Statuses = append(f.Statuses, types.JobStatus(raw))
		}
	}
	for _, raw := range strings.Split(c.Query("priorities"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			f.Priorities = append(f.Priorities, types.JobPriority(raw))
		}
	}
	if mech := c.Query("mechanic"); mech != "" {
		if strings.EqualFold(mech, "none") {
			f.Mechanic = &filter.MechanicCriterion{}
		} else if id, err := uuid.Parse(mech); err == nil {
			f.Mechanic = &filter.MechanicCriterion{ID: &id}
		}
	}
	from, fromErr := time.Parse(time.RFC3339, c.Query("promised_from"))
	to, toErr := time.Parse(time.RFC3339, c.Query("promised_to"))
	if fromErr == nil || toErr == nil {
		r := &filter.DateRange{}
		if fromErr == nil {
			r.From = &from
		}
		if toErr == nil {
			r.To = &to
		}
		f.PromisedDate = r
	}
	f.SearchQuery = c.Query("q")
	return f
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, pkgerrors.ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, pkgerrors.ErrRemoteWriteFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
