package mutation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/garageboard/garageboard/internal/types"
)

// mutableFields whitelists the columns a field update may touch. Identity,
// ownership and timestamps are server-owned.
var mutableFields = map[string]bool{
	"status":                    true,
	"priority":                  true,
	"customer_name":             true,
	"vehicle_description":       true,
	"promised_date":             true,
	"lead_mechanic_id":          true,
	"actual_completion_date":    true,
	"estimated_labor_cost":      true,
	"estimated_parts_cost":      true,
	"final_amount":              true,
	"total_checklist_items":     true,
	"completed_checklist_items": true,
	"checklist":                 true,
}

// project builds the optimistic local projection of a field update: the
// snapshot with the requested fields applied and updated_at bumped. It is
// what renders until the server settles the attempt.
func project(snapshot *types.JobCard, fields map[string]interface{}) (*types.JobCard, error) {
	card := snapshot.Clone()
	for key, raw := range fields {
		if err := applyField(card, key, raw); err != nil {
			return nil, err
		}
	}
	card.UpdatedAt = time.Now()
	return card, nil
}

func applyField(card *types.JobCard, key string, raw interface{}) error {
	switch key {
	case "status":
		v, err := asStatus(raw)
		if err != nil {
			return err
		}
		card.Status = v
	case "priority":
		switch v := raw.(type) {
		case types.JobPriority:
			card.Priority = v
		case string:
			card.Priority = types.JobPriority(v)
		default:
			return fmt.Errorf("priority: unsupported value %T", raw)
		}
	case "customer_name":
		v, ok := raw.(string)
		if !ok {
			return fmt.Errorf("customer_name: unsupported value %T", raw)
		}
		card.CustomerName = v
	case "vehicle_description":
		v, ok := raw.(string)
		if !ok {
			return fmt.Errorf("vehicle_description: unsupported value %T", raw)
		}
		card.VehicleDescription = v
	case "promised_date":
		t, err := asTimePtr(raw)
		if err != nil {
			return fmt.Errorf("promised_date: %w", err)
		}
		card.PromisedDate = t
	case "actual_completion_date":
		t, err := asTimePtr(raw)
		if err != nil {
			return fmt.Errorf("actual_completion_date: %w", err)
		}
		card.ActualCompletionDate = t
	case "lead_mechanic_id":
		id, err := asUUIDPtr(raw)
		if err != nil {
			return fmt.Errorf("lead_mechanic_id: %w", err)
		}
		card.LeadMechanicID = id
	case "estimated_labor_cost":
		v, err := asFloat(raw)
		if err != nil {
			return fmt.Errorf("estimated_labor_cost: %w", err)
		}
		card.EstimatedLaborCost = v
	case "estimated_parts_cost":
		v, err := asFloat(raw)
		if err != nil {
			return fmt.Errorf("estimated_parts_cost: %w", err)
		}
		card.EstimatedPartsCost = v
	case "final_amount":
		v, err := asFloat(raw)
		if err != nil {
			return fmt.Errorf("final_amount: %w", err)
		}
		card.FinalAmount = v
	case "total_checklist_items":
		v, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("total_checklist_items: %w", err)
		}
		card.TotalChecklistItems = v
	case "completed_checklist_items":
		v, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("completed_checklist_items: %w", err)
		}
		card.CompletedChecklistItems = v
	case "checklist":
		switch v := raw.(type) {
		case datatypes.JSON:
			card.Checklist = v
		case []byte:
			card.Checklist = datatypes.JSON(v)
		case string:
			card.Checklist = datatypes.JSON(v)
		default:
			return fmt.Errorf("checklist: unsupported value %T", raw)
		}
	default:
		return fmt.Errorf("field %q is not mutable", key)
	}
	return nil
}

func asStatus(raw interface{}) (types.JobStatus, error) {
	switch v := raw.(type) {
	case types.JobStatus:
		return v, nil
	case string:
		return types.JobStatus(v), nil
	default:
		return "", fmt.Errorf("status: unsupported value %T", raw)
	}
}

func asTimePtr(raw interface{}) (*time.Time, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case time.Time:
		t := v
		return &t, nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		t := *v
		return &t, nil
	default:
		return nil, fmt.Errorf("unsupported value %T", raw)
	}
}

func asUUIDPtr(raw interface{}) (*uuid.UUID, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case uuid.UUID:
		id := v
		return &id, nil
	case *uuid.UUID:
		if v == nil {
			return nil, nil
		}
		id := *v
		return &id, nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, err
		}
		return &id, nil
	default:
		return nil, fmt.Errorf("unsupported value %T", raw)
	}
}

func asFloat(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("unsupported value %T", raw)
	}
}

func asInt(raw interface{}) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("unsupported value %T", raw)
	}
}
