package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/garageboard/garageboard/internal/pkg/logger"
	"github.com/garageboard/garageboard/internal/types"
)

type employeeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEmployeeRepo(db *gorm.DB, baseLog *logger.Logger) EmployeeDirectory {
	return &employeeRepo{
		db:  db,
		log: baseLog.With("repo", "EmployeeRepo"),
	}
}

func (r *employeeRepo) NameOf(ctx context.Context, id uuid.UUID) (string, bool) {
	if id == uuid.Nil {
		return "", false
	}
	var emp types.Employee
	err := r.db.WithContext(ctx).
		Select("name").
		First(&emp, "id = ?", id).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Warn("employee lookup failed", "employee_id", id, "error", err)
		}
		return "", false
	}
	return emp.Name, true
}

func (r *employeeRepo) ListActive(ctx context.Context, garageID uuid.UUID) ([]*types.Employee, error) {
	var out []*types.Employee
	if garageID == uuid.Nil {
		return out, nil
	}
	err := r.db.WithContext(ctx).
		Where("garage_id = ? AND is_active = ?", garageID, true).
		Order("name ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
