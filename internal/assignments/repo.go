package assignments

import (
	"context"

	"github.com/Hazher89/oppdrag-app/pkg/db/models"
	"github.com/Hazher89/oppdrag-app/pkg/enums"
	"github.com/Hazher89/oppdrag-app/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository handles assignment persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to assignment operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create persists a new assignment row.
func (r *Repository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

// FindByID loads an assignment by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

// List returns company-scoped assignments matching the filter, newest first.
// An empty companyID lists across companies (super admin scope).
func (r *Repository) List(ctx context.Context, companyID string, filter ListFilter, params pagination.Params) ([]models.Assignment, int64, error) {
	params = params.Normalize()

	query := r.db.WithContext(ctx).Model(&models.Assignment{})
	if companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", *filter.Priority)
	}
	if filter.DriverID != nil {
		query = query.Where("driver_id = ?", *filter.DriverID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var found []models.Assignment
	err := query.
		Order("created_at DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&found).Error
	if err != nil {
		return nil, 0, err
	}
	return found, total, nil
}

// Update saves the provided assignment.
func (r *Repository) Update(ctx context.Context, assignment *models.Assignment) error {
	if assignment == nil {
		return gorm.ErrInvalidData
	}
	return r.db.WithContext(ctx).Save(assignment).Error
}

// Delete removes the assignment row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Assignment{}, "id = ?", id).Error
}

// UpdateLocation stores the latest driver position on the assignment.
func (r *Repository) UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	return r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"current_lat":         lat,
			"current_lng":         lng,
			"location_updated_at": gorm.Expr("NOW()"),
		}).Error
}

// CountActiveByDriver returns how many non-terminal assignments the driver holds.
func (r *Repository) CountActiveByDriver(ctx context.Context, driverID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("driver_id = ? AND status NOT IN ?", driverID, []enums.AssignmentStatus{
			enums.AssignmentStatusCompleted,
			enums.AssignmentStatusCancelled,
		}).
		Count(&count).Error
	return count, err
}
