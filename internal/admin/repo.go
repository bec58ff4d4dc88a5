package admin

import (
	"context"
	"time"

	"github.com/Hazher89/oppdrag-app/pkg/db/models"
	"github.com/Hazher89/oppdrag-app/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusCount is one row of the status breakdown.
type StatusCount struct {
	Status enums.AssignmentStatus `json:"status"`
	Count  int64                  `json:"count"`
}

// DriverReportRow aggregates one driver's output over a period.
type DriverReportRow struct {
	DriverID            uuid.UUID `json:"driver_id"`
	DriverName          string    `json:"driver_name"`
	TotalAssignments    int64     `json:"total_assignments"`
	Completed           int64     `json:"completed"`
	Cancelled           int64     `json:"cancelled"`
	TotalDistanceKM     float64   `json:"total_distance_km"`
	AvgCompletionHours  float64   `json:"avg_completion_hours"`
}

// CompanyOverviewRow summarizes one tenant for the super admin view.
type CompanyOverviewRow struct {
	CompanyID   string `json:"company_id"`
	Users       int64  `json:"users"`
	Drivers     int64  `json:"drivers"`
	Assignments int64  `json:"assignments"`
}

// Repository runs the aggregate queries behind the admin dashboard.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to the admin queries.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CountAssignmentsByStatus breaks down company assignments per status.
func (r *Repository) CountAssignmentsByStatus(ctx context.Context, companyID string) ([]StatusCount, error) {
	var rows []StatusCount
	query := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Select("status, COUNT(*) AS count")
	if companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}
	err := query.Group("status").Scan(&rows).Error
	return rows, err
}

// CountCompletedSince counts assignments completed at or after the cutoff.
func (r *Repository) CountCompletedSince(ctx context.Context, companyID string, since time.Time) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("status = ? AND actual_delivery_time >= ?", enums.AssignmentStatusCompleted, since)
	if companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}
	err := query.Count(&count).Error
	return count, err
}

// CountDrivers returns total and active driver counts for the company.
func (r *Repository) CountDrivers(ctx context.Context, companyID string) (total, active int64, err error) {
	base := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("role = ?", enums.UserRoleDriver)
	if companyID != "" {
		base = base.Where("company_id = ?", companyID)
	}

	if err = base.Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = base.Where("is_active").Count(&active).Error
	return total, active, err
}

// RecentAssignments returns the newest assignments for the dashboard feed.
func (r *Repository) RecentAssignments(ctx context.Context, companyID string, limit int) ([]models.Assignment, error) {
	var found []models.Assignment
	query := r.db.WithContext(ctx)
	if companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Find(&found).Error
	return found, err
}

// CompanyOverview summarizes every tenant. Super admin only; no scoping.
func (r *Repository) CompanyOverview(ctx context.Context) ([]CompanyOverviewRow, error) {
	var rows []CompanyOverviewRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			u.company_id,
			COUNT(DISTINCT u.id) AS users,
			COUNT(DISTINCT u.id) FILTER (WHERE u.role = 'driver') AS drivers,
			(SELECT COUNT(*) FROM assignments a WHERE a.company_id = u.company_id) AS assignments
		FROM users u
		GROUP BY u.company_id
		ORDER BY u.company_id
	`).Scan(&rows).Error
	return rows, err
}

// DriverReport aggregates per-driver delivery stats over the window.
func (r *Repository) DriverReport(ctx context.Context, companyID string, from, to time.Time) ([]DriverReportRow, error) {
	var rows []DriverReportRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			u.id AS driver_id,
			u.name AS driver_name,
			COUNT(a.id) AS total_assignments,
			COUNT(a.id) FILTER (WHERE a.status = 'completed') AS completed,
			COUNT(a.id) FILTER (WHERE a.status = 'cancelled') AS cancelled,
			COALESCE(SUM(a.distance_km) FILTER (WHERE a.status = 'completed'), 0) AS total_distance_km,
			COALESCE(AVG(
				EXTRACT(EPOCH FROM (a.actual_delivery_time - a.actual_pickup_time)) / 3600
			) FILTER (WHERE a.actual_delivery_time IS NOT NULL AND a.actual_pickup_time IS NOT NULL), 0) AS avg_completion_hours
		FROM users u
		LEFT JOIN assignments a
			ON a.driver_id = u.id
			AND a.created_at BETWEEN ? AND ?
		WHERE (? = '' OR u.company_id = ?) AND u.role = 'driver'
		GROUP BY u.id, u.name
		ORDER BY completed DESC, u.name ASC
	`, from, to, companyID, companyID).Scan(&rows).Error
	return rows, err
}
