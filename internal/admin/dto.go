package admin

import (
	"time"

	"github.com/google/uuid"

	"github.com/Hazher89/oppdrag-app/internal/assignments"
	"github.com/Hazher89/oppdrag-app/internal/users"
	"github.com/Hazher89/oppdrag-app/pkg/pagination"
)

// DashboardStats is the headline view for the admin dashboard.
type DashboardStats struct {
	AssignmentsByStatus []StatusCount               `json:"assignments_by_status"`
	TotalAssignments    int64                       `json:"total_assignments"`
	CompletedToday      int64                       `json:"completed_today"`
	TotalDrivers        int64                       `json:"total_drivers"`
	ActiveDrivers       int64                       `json:"active_drivers"`
	RecentAssignments   []assignments.AssignmentDTO `json:"recent_assignments"`
}

// ReportResult is the per-driver aggregate report over a window.
type ReportResult struct {
	From    time.Time         `json:"from"`
	To      time.Time         `json:"to"`
	Drivers []DriverReportRow `json:"drivers"`
}

// BulkAssignInput creates the same assignment for several drivers at once.
type BulkAssignInput struct {
	DriverIDs  []uuid.UUID                       `json:"driver_ids" validate:"required,min=1,dive,required"`
	Assignment assignments.CreateAssignmentInput `json:"assignment" validate:"required"`
}

// SkippedDriver explains why a driver was left out of a bulk assignment.
type SkippedDriver struct {
	DriverID uuid.UUID `json:"driver_id"`
	Reason   string    `json:"reason"`
}

// BulkAssignResult reports what was created and who was skipped.
type BulkAssignResult struct {
	Created []assignments.AssignmentDTO `json:"created"`
	Skipped []SkippedDriver             `json:"skipped"`
}

// CreateUserInput is the admin-side user creation payload.
type CreateUserInput struct {
	Email         string   `json:"email" validate:"required,email"`
	Password      string   `json:"password" validate:"required,min=8"`
	Name          string   `json:"name" validate:"required,min=2,max=120"`
	Phone         *string  `json:"phone,omitempty" validate:"omitempty,e164"`
	Role          string   `json:"role" validate:"required,oneof=driver admin"`
	Permissions   []string `json:"permissions,omitempty" validate:"omitempty,dive,oneof=create_assignments edit_assignments delete_assignments manage_users view_reports"`
	LicenseNumber *string  `json:"license_number,omitempty"`
	VehicleID     *string  `json:"vehicle_id,omitempty"`
}

// UpdateUserInput is the admin-side user mutation payload.
type UpdateUserInput struct {
	Name          *string   `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Phone         *string   `json:"phone,omitempty" validate:"omitempty,e164"`
	Role          *string   `json:"role,omitempty" validate:"omitempty,oneof=driver admin"`
	Permissions   *[]string `json:"permissions,omitempty" validate:"omitempty,dive,oneof=create_assignments edit_assignments delete_assignments manage_users view_reports"`
	IsActive      *bool     `json:"is_active,omitempty"`
	LicenseNumber *string   `json:"license_number,omitempty"`
	VehicleID     *string   `json:"vehicle_id,omitempty"`
}

// UserListResult bundles a page of users with pagination metadata.
type UserListResult struct {
	Users []users.UserDTO `json:"users"`
	Page  pagination.Page `json:"pagination"`
}
