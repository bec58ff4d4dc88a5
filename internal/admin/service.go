package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Hazher89/oppdrag-app/internal/assignments"
	"github.com/Hazher89/oppdrag-app/internal/users"
	"github.com/Hazher89/oppdrag-app/pkg/config"
	"github.com/Hazher89/oppdrag-app/pkg/db"
	"github.com/Hazher89/oppdrag-app/pkg/db/models"
	dbtypes "github.com/Hazher89/oppdrag-app/pkg/db/types"
	"github.com/Hazher89/oppdrag-app/pkg/enums"
	pkgerrors "github.com/Hazher89/oppdrag-app/pkg/errors"
	"github.com/Hazher89/oppdrag-app/pkg/pagination"
	"github.com/Hazher89/oppdrag-app/pkg/security"
	"github.com/Hazher89/oppdrag-app/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const recentAssignmentsLimit = 10

// Service exposes the admin dashboard and user management operations.
type Service interface {
	Dashboard(ctx context.Context, actor types.Actor) (*DashboardStats, error)
	Companies(ctx context.Context, actor types.Actor) ([]CompanyOverviewRow, error)
	Report(ctx context.Context, actor types.Actor, from, to time.Time) (*ReportResult, error)
	BulkAssign(ctx context.Context, actor types.Actor, input BulkAssignInput) (*BulkAssignResult, error)
	CreateUser(ctx context.Context, actor types.Actor, input CreateUserInput) (*users.UserDTO, error)
	ListUsers(ctx context.Context, actor types.Actor, filter users.ListFilter, params pagination.Params) (*UserListResult, error)
	UpdateUser(ctx context.Context, actor types.Actor, id uuid.UUID, input UpdateUserInput) (*users.UserDTO, error)
	DeleteUser(ctx context.Context, actor types.Actor, id uuid.UUID) error
}

type statsRepository interface {
	CountAssignmentsByStatus(ctx context.Context, companyID string) ([]StatusCount, error)
	CountCompletedSince(ctx context.Context, companyID string, since time.Time) (int64, error)
	CountDrivers(ctx context.Context, companyID string) (total, active int64, err error)
	RecentAssignments(ctx context.Context, companyID string, limit int) ([]models.Assignment, error)
	DriverReport(ctx context.Context, companyID string, from, to time.Time) ([]DriverReportRow, error)
	CompanyOverview(ctx context.Context) ([]CompanyOverviewRow, error)
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListByCompany(ctx context.Context, companyID string, filter users.ListFilter, params pagination.Params) ([]models.User, int64, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type assignmentService interface {
	Create(ctx context.Context, actor types.Actor, input assignments.CreateAssignmentInput) (*assignments.AssignmentDTO, error)
}

type activeAssignmentCounter interface {
	CountActiveByDriver(ctx context.Context, driverID uuid.UUID) (int64, error)
}

type service struct {
	stats       statsRepository
	users       userRepository
	assignments assignmentService
	active      activeAssignmentCounter
	passwordCfg config.PasswordConfig
}

// ServiceParams bundles the dependencies required to build the admin service.
type ServiceParams struct {
	Stats          statsRepository
	Users          userRepository
	Assignments    assignmentService
	ActiveCounter  activeAssignmentCounter
	PasswordConfig config.PasswordConfig
}

// NewService constructs an admin service.
func NewService(params ServiceParams) (Service, error) {
	if params.Stats == nil {
		return nil, fmt.Errorf("stats repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Assignments == nil {
		return nil, fmt.Errorf("assignment service is required")
	}
	if params.ActiveCounter == nil {
		return nil, fmt.Errorf("assignment counter is required")
	}
	return &service{
		stats:       params.Stats,
		users:       params.Users,
		assignments: params.Assignments,
		active:      params.ActiveCounter,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *service) Dashboard(ctx context.Context, actor types.Actor) (*DashboardStats, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	byStatus, err := s.stats.CountAssignmentsByStatus(ctx, actor.CompanyScope())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count assignments")
	}
	var total int64
	for _, row := range byStatus {
		total += row.Count
	}

	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)
	completedToday, err := s.stats.CountCompletedSince(ctx, actor.CompanyScope(), startOfDay)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count completed today")
	}

	totalDrivers, activeDrivers, err := s.stats.CountDrivers(ctx, actor.CompanyScope())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count drivers")
	}

	recent, err := s.stats.RecentAssignments(ctx, actor.CompanyScope(), recentAssignmentsLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recent assignments")
	}
	recentDTOs := make([]assignments.AssignmentDTO, 0, len(recent))
	for i := range recent {
		recentDTOs = append(recentDTOs, *assignments.FromModel(&recent[i]))
	}

	return &DashboardStats{
		AssignmentsByStatus: byStatus,
		TotalAssignments:    total,
		CompletedToday:      completedToday,
		TotalDrivers:        totalDrivers,
		ActiveDrivers:       activeDrivers,
		RecentAssignments:   recentDTOs,
	}, nil
}

func (s *service) Companies(ctx context.Context, actor types.Actor) ([]CompanyOverviewRow, error) {
	if !actor.IsSuperAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "super admin role required")
	}

	rows, err := s.stats.CompanyOverview(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "company overview")
	}
	return rows, nil
}

func (s *service) Report(ctx context.Context, actor types.Actor, from, to time.Time) (*ReportResult, error) {
	if !actor.HasPermission(enums.PermissionViewReports) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "missing view_reports permission")
	}
	if !from.Before(to) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "report window is empty")
	}

	rows, err := s.stats.DriverReport(ctx, actor.CompanyScope(), from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "driver report")
	}

	return &ReportResult{
		From:    from,
		To:      to,
		Drivers: rows,
	}, nil
}

func (s *service) BulkAssign(ctx context.Context, actor types.Actor, input BulkAssignInput) (*BulkAssignResult, error) {
	if !actor.HasPermission(enums.PermissionCreateAssignments) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "missing create_assignments permission")
	}

	result := &BulkAssignResult{
		Created: []assignments.AssignmentDTO{},
		Skipped: []SkippedDriver{},
	}

	seen := map[uuid.UUID]struct{}{}
	for _, driverID := range input.DriverIDs {
		if _, ok := seen[driverID]; ok {
			continue
		}
		seen[driverID] = struct{}{}

		perDriver := input.Assignment
		perDriver.DriverID = driverID

		created, err := s.assignments.Create(ctx, actor, perDriver)
		if err != nil {
			// Invalid drivers are reported, not fatal: the rest of the
			// batch still goes through.
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeValidation {
				result.Skipped = append(result.Skipped, SkippedDriver{
					DriverID: driverID,
					Reason:   typed.Message(),
				})
				continue
			}
			return nil, err
		}
		result.Created = append(result.Created, *created)
	}

	return result, nil
}

func (s *service) CreateUser(ctx context.Context, actor types.Actor, input CreateUserInput) (*users.UserDTO, error) {
	if !actor.HasPermission(enums.PermissionManageUsers) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "missing manage_users permission")
	}

	role, err := enums.ParseUserRole(input.Role)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	permissions, err := enums.ParsePermissions(input.Permissions)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:         strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash:  hash,
		Name:          strings.TrimSpace(input.Name),
		Phone:         input.Phone,
		Role:          role,
		CompanyID:     actor.CompanyID,
		Permissions:   enums.PermissionStrings(permissions),
		LicenseNumber: input.LicenseNumber,
		VehicleID:     input.VehicleID,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	return users.FromModel(user), nil
}

func (s *service) ListUsers(ctx context.Context, actor types.Actor, filter users.ListFilter, params pagination.Params) (*UserListResult, error) {
	if !actor.HasPermission(enums.PermissionManageUsers) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "missing manage_users permission")
	}

	found, total, err := s.users.ListByCompany(ctx, actor.CompanyScope(), filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}

	dtos := make([]users.UserDTO, 0, len(found))
	for i := range found {
		dtos = append(dtos, *users.FromModel(&found[i]))
	}

	return &UserListResult{
		Users: dtos,
		Page:  pagination.BuildPage(params, total),
	}, nil
}

func (s *service) UpdateUser(ctx context.Context, actor types.Actor, id uuid.UUID, input UpdateUserInput) (*users.UserDTO, error) {
	if !actor.HasPermission(enums.PermissionManageUsers) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "missing manage_users permission")
	}

	user, err := s.loadCompanyUser(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if user.Role == enums.UserRoleSuperAdmin && actor.Role != enums.UserRoleSuperAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot modify a super admin")
	}

	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Phone != nil {
		user.Phone = input.Phone
	}
	if input.Role != nil {
		role, err := enums.ParseUserRole(*input.Role)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
		}
		user.Role = role
	}
	if input.Permissions != nil {
		permissions, err := enums.ParsePermissions(*input.Permissions)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		user.Permissions = dbtypes.StringArray(enums.PermissionStrings(permissions))
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if input.LicenseNumber != nil {
		user.LicenseNumber = input.LicenseNumber
	}
	if input.VehicleID != nil {
		user.VehicleID = input.VehicleID
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update user")
	}
	return users.FromModel(user), nil
}

func (s *service) DeleteUser(ctx context.Context, actor types.Actor, id uuid.UUID) error {
	if !actor.HasPermission(enums.PermissionManageUsers) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "missing manage_users permission")
	}
	if actor.ID == id {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot delete your own account")
	}

	user, err := s.loadCompanyUser(ctx, actor, id)
	if err != nil {
		return err
	}

	if user.Role == enums.UserRoleDriver {
		active, err := s.active.CountActiveByDriver(ctx, user.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count active assignments")
		}
		if active > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "driver still has active assignments").
				WithDetails(map[string]any{"active_assignments": active})
		}
	}

	if err := s.users.Delete(ctx, user.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete user")
	}
	return nil
}

func (s *service) loadCompanyUser(ctx context.Context, actor types.Actor, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if !actor.CanAccessCompany(user.CompanyID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return user, nil
}
