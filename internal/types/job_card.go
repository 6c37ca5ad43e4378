package types

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type JobStatus string

const (
	StatusDraft      JobStatus = "draft"
	StatusQueued     JobStatus = "queued"
	StatusInProgress JobStatus = "in_progress"
	StatusReady      JobStatus = "ready"
	StatusDelivered  JobStatus = "delivered"
	StatusCancelled  JobStatus = "cancelled"
)

type JobPriority string

const (
	PriorityUrgent JobPriority = "urgent"
	PriorityHigh   JobPriority = "high"
	PriorityMedium JobPriority = "medium"
	PriorityLow    JobPriority = "low"
)

// Rank orders priorities for board sorting: urgent first, low last.
// Unknown values sort after low.
func (p JobPriority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

type JobCard struct {
	ID                      uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	JobCardNumber           string         `gorm:"not null;uniqueIndex:idx_job_card_number_garage" json:"job_card_number"`
	GarageID                uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_job_card_number_garage" json:"garage_id"`
	Status                  JobStatus      `gorm:"not null;index;default:'draft'" json:"status"`
	Priority                JobPriority    `gorm:"not null;default:'medium'" json:"priority"`
	CustomerName            string         `gorm:"column:customer_name" json:"customer_name"`
	VehicleDescription      string         `gorm:"column:vehicle_description" json:"vehicle_description"`
	PromisedDate            *time.Time     `json:"promised_date,omitempty"`
	LeadMechanicID          *uuid.UUID     `gorm:"type:uuid;index" json:"lead_mechanic_id,omitempty"`
	ActualCompletionDate    *time.Time     `json:"actual_completion_date,omitempty"`
	EstimatedLaborCost      float64        `json:"estimated_labor_cost"`
	EstimatedPartsCost      float64        `json:"estimated_parts_cost"`
	FinalAmount             float64        `json:"final_amount"`
	TotalChecklistItems     int            `json:"total_checklist_items"`
	CompletedChecklistItems int            `json:"completed_checklist_items"`
	Checklist               datatypes.JSON `gorm:"type:jsonb" json:"checklist,omitempty"`
	CreatedAt               time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt               time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt               gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (JobCard) TableName() string { return "job_card" }

// Progress derives completion percent from the checklist counters.
func (jc *JobCard) Progress() int {
	if jc.TotalChecklistItems <= 0 {
		return 0
	}
	pct := float64(jc.CompletedChecklistItems) / float64(jc.TotalChecklistItems) * 100
	if pct > 100 {
		pct = 100
	}
	return int(math.Round(pct))
}

// Clone returns a deep-enough copy for snapshot/rollback: pointer fields are
// re-allocated so a later mutation of the original cannot leak into a snapshot.
func (jc *JobCard) Clone() *JobCard {
	if jc == nil {
		return nil
	}
	cp := *jc
	if jc.PromisedDate != nil {
		d := *jc.PromisedDate
		cp.PromisedDate = &d
	}
	if jc.LeadMechanicID != nil {
		m := *jc.LeadMechanicID
		cp.LeadMechanicID = &m
	}
	if jc.ActualCompletionDate != nil {
		d := *jc.ActualCompletionDate
		cp.ActualCompletionDate = &d
	}
	if jc.Checklist != nil {
		cp.Checklist = append(datatypes.JSON(nil), jc.Checklist...)
	}
	return &cp
}
