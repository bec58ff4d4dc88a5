package assignments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Hazher89/oppdrag-app/internal/notify"
	"github.com/Hazher89/oppdrag-app/internal/realtime"
	"github.com/Hazher89/oppdrag-app/pkg/db/models"
	"github.com/Hazher89/oppdrag-app/pkg/enums"
	pkgerrors "github.com/Hazher89/oppdrag-app/pkg/errors"
	"github.com/Hazher89/oppdrag-app/pkg/logger"
	"github.com/Hazher89/oppdrag-app/pkg/pagination"
	"github.com/Hazher89/oppdrag-app/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListResult bundles a page of assignments with pagination metadata.
type ListResult struct {
	Assignments []AssignmentDTO `json:"assignments"`
	Page        pagination.Page `json:"pagination"`
}

// PDFDescriptor captures the stored document metadata attached to an assignment.
type PDFDescriptor struct {
	FileName string
	FilePath string
	FileSize int64
}

// Service exposes assignment operations.
type Service interface {
	Create(ctx context.Context, actor types.Actor, input CreateAssignmentInput) (*AssignmentDTO, error)
	List(ctx context.Context, actor types.Actor, filter ListFilter, params pagination.Params) (*ListResult, error)
	GetByID(ctx context.Context, actor types.Actor, id uuid.UUID) (*AssignmentDTO, error)
	Update(ctx context.Context, actor types.Actor, id uuid.UUID, input UpdateAssignmentInput) (*AssignmentDTO, error)
	UpdateStatus(ctx context.Context, actor types.Actor, id uuid.UUID, input UpdateStatusInput) (*AssignmentDTO, error)
	UpdateLocation(ctx context.Context, actor types.Actor, id uuid.UUID, input UpdateLocationInput) error
	AttachPDF(ctx context.Context, actor types.Actor, id uuid.UUID, pdf PDFDescriptor) (*AssignmentDTO, error)
	Delete(ctx context.Context, actor types.Actor, id uuid.UUID) error
}

type assignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	List(ctx context.Context, companyID string, filter ListFilter, params pagination.Params) ([]models.Assignment, int64, error)
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error
}

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type publisher interface {
	PublishToUser(userID uuid.UUID, event realtime.Event)
}

type notifier interface {
	SendEmail(ctx context.Context, msg notify.EmailMessage) error
}

type fileRemover interface {
	RemoveByPublicURL(publicURL string) error
}

type service struct {
	repo     assignmentRepository
	users    userRepository
	events   publisher
	notifier notifier
	files    fileRemover
	logg     *logger.Logger
}

// ServiceParams bundles the dependencies required to build the service.
type ServiceParams struct {
	Repo     assignmentRepository
	Users    userRepository
	Events   publisher
	Notifier notifier
	Files    fileRemover
	Logger   *logger.Logger
}

// NewService constructs an assignment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("assignment repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event publisher is required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if params.Files == nil {
		return nil, fmt.Errorf("file remover is required")
	}
	return &service{
		repo:     params.Repo,
		users:    params.Users,
		events:   params.Events,
		notifier: params.Notifier,
		files:    params.Files,
		logg:     params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, actor types.Actor, input CreateAssignmentInput) (*AssignmentDTO, error) {
	if !actor.HasPermission(enums.PermissionCreateAssignments) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "missing create_assignments permission")
	}

	driver, err := s.loadDriver(ctx, actor, input.DriverID)
	if err != nil {
		return nil, err
	}

	priority := enums.AssignmentPriorityMedium
	if input.Priority != "" {
		parsed, err := enums.ParseAssignmentPriority(input.Priority)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid priority")
		}
		priority = parsed
	}

	assignment := &models.Assignment{
		Title:                 strings.TrimSpace(input.Title),
		Description:           strings.TrimSpace(input.Description),
		DriverID:              driver.ID,
		AssignedByID:          actor.ID,
		CompanyID:             driver.CompanyID,
		Status:                enums.AssignmentStatusPending,
		Priority:              priority,
		PickupLocation:        input.PickupLocation,
		DeliveryLocation:      input.DeliveryLocation,
		ScheduledPickupTime:   input.ScheduledPickupTime,
		ScheduledDeliveryTime: input.ScheduledDeliveryTime,
		Notes:                 input.Notes,
		EstimatedDurationMins: input.EstimatedDurationMins,
		DistanceKM:            input.DistanceKM,
	}

	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create assignment")
	}

	dto := FromModel(assignment)
	dto.DriverName = driver.Name

	s.events.PublishToUser(driver.ID, realtime.Event{
		Type:    realtime.EventAssignmentCreated,
		Payload: dto,
	})
	if s.notifyByEmail(ctx, driver.Email, assignment, "Nytt oppdrag tildelt", fmt.Sprintf("Du har fått et nytt oppdrag: %s", assignment.Title)) {
		assignment.NotifiedAssigned = true
		s.markNotified(ctx, assignment)
	}

	return dto, nil
}

func (s *service) List(ctx context.Context, actor types.Actor, filter ListFilter, params pagination.Params) (*ListResult, error) {
	if !actor.IsAdmin() {
		id := actor.ID
		filter.DriverID = &id
	}

	found, total, err := s.repo.List(ctx, actor.CompanyScope(), filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list assignments")
	}

	dtos := make([]AssignmentDTO, 0, len(found))
	for i := range found {
		dtos = append(dtos, *FromModel(&found[i]))
	}

	return &ListResult{
		Assignments: dtos,
		Page:        pagination.BuildPage(params, total),
	}, nil
}

func (s *service) GetByID(ctx context.Context, actor types.Actor, id uuid.UUID) (*AssignmentDTO, error) {
	assignment, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return FromModel(assignment), nil
}

func (s *service) Update(ctx context.Context, actor types.Actor, id uuid.UUID, input UpdateAssignmentInput) (*AssignmentDTO, error) {
	if !actor.HasPermission(enums.PermissionEditAssignments) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "missing edit_assignments permission")
	}

	assignment, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if assignment.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "assignment is already closed")
	}

	if input.DriverID != nil && *input.DriverID != assignment.DriverID {
		driver, err := s.loadDriver(ctx, actor, *input.DriverID)
		if err != nil {
			return nil, err
		}
		assignment.DriverID = driver.ID
	}

	if input.Title != nil {
		assignment.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		assignment.Description = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		parsed, err := enums.ParseAssignmentPriority(*input.Priority)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid priority")
		}
		assignment.Priority = parsed
	}
	if input.PickupLocation != nil {
		assignment.PickupLocation = *input.PickupLocation
	}
	if input.DeliveryLocation != nil {
		assignment.DeliveryLocation = *input.DeliveryLocation
	}
	if input.ScheduledPickupTime != nil {
		assignment.ScheduledPickupTime = input.ScheduledPickupTime
	}
	if input.ScheduledDeliveryTime != nil {
		assignment.ScheduledDeliveryTime = input.ScheduledDeliveryTime
	}
	if input.Notes != nil {
		assignment.Notes = input.Notes
	}
	if input.EstimatedDurationMins != nil {
		assignment.EstimatedDurationMins = input.EstimatedDurationMins
	}
	if input.DistanceKM != nil {
		assignment.DistanceKM = input.DistanceKM
	}

	if err := s.repo.Update(ctx, assignment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update assignment")
	}

	dto := FromModel(assignment)
	s.events.PublishToUser(assignment.DriverID, realtime.Event{
		Type:    realtime.EventAssignmentUpdated,
		Payload: dto,
	})
	return dto, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor types.Actor, id uuid.UUID, input UpdateStatusInput) (*AssignmentDTO, error) {
	assignment, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	target, err := enums.ParseAssignmentStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}

	if target == assignment.Status {
		return FromModel(assignment), nil
	}
	if !assignment.Status.CanTransitionTo(target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move assignment from %s to %s", assignment.Status, target))
	}
	if target == enums.AssignmentStatusCancelled && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can cancel assignments")
	}

	now := time.Now().UTC()
	assignment.Status = target

	// Actual timestamps are recorded once and never overwritten.
	if target == enums.AssignmentStatusInProgress && assignment.ActualPickupTime == nil {
		assignment.ActualPickupTime = &now
	}
	if target == enums.AssignmentStatusCompleted && assignment.ActualDeliveryTime == nil {
		assignment.ActualDeliveryTime = &now
	}

	if input.Notes != nil && strings.TrimSpace(*input.Notes) != "" {
		switch {
		case target == enums.AssignmentStatusCompleted:
			assignment.CompletionNotes = input.Notes
		case !actor.IsAdmin():
			assignment.DriverNotes = input.Notes
		default:
			assignment.Notes = input.Notes
		}
	}

	if err := s.repo.Update(ctx, assignment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update status")
	}

	dto := FromModel(assignment)
	event := realtime.Event{Type: realtime.EventAssignmentStatus, Payload: dto}
	s.events.PublishToUser(assignment.DriverID, event)
	if assignment.AssignedByID != actor.ID {
		s.events.PublishToUser(assignment.AssignedByID, event)
	}

	switch target {
	case enums.AssignmentStatusInProgress:
		if !assignment.NotifiedStarted && s.notifyAssigner(ctx, assignment, "Oppdrag startet", fmt.Sprintf("Oppdraget %s er startet.", assignment.Title)) {
			assignment.NotifiedStarted = true
			s.markNotified(ctx, assignment)
		}
	case enums.AssignmentStatusCompleted:
		if !assignment.NotifiedCompleted && s.notifyAssigner(ctx, assignment, "Oppdrag fullført", fmt.Sprintf("Oppdraget %s er fullført.", assignment.Title)) {
			assignment.NotifiedCompleted = true
			s.markNotified(ctx, assignment)
		}
	}

	return dto, nil
}

func (s *service) UpdateLocation(ctx context.Context, actor types.Actor, id uuid.UUID, input UpdateLocationInput) error {
	assignment, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return err
	}
	if assignment.DriverID != actor.ID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the assigned driver can report location")
	}
	if assignment.Status != enums.AssignmentStatusInProgress {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "assignment is not in progress")
	}

	if err := s.repo.UpdateLocation(ctx, id, input.Lat, input.Lng); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update location")
	}

	s.events.PublishToUser(assignment.AssignedByID, realtime.Event{
		Type: realtime.EventAssignmentLocation,
		Payload: map[string]any{
			"assignment_id": assignment.ID,
			"lat":           input.Lat,
			"lng":           input.Lng,
		},
	})
	return nil
}

func (s *service) AttachPDF(ctx context.Context, actor types.Actor, id uuid.UUID, pdf PDFDescriptor) (*AssignmentDTO, error) {
	if !actor.HasPermission(enums.PermissionEditAssignments) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "missing edit_assignments permission")
	}

	assignment, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	assignment.PDFFileName = &pdf.FileName
	assignment.PDFFilePath = &pdf.FilePath
	assignment.PDFFileSize = &pdf.FileSize

	if err := s.repo.Update(ctx, assignment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach pdf")
	}
	return FromModel(assignment), nil
}

func (s *service) Delete(ctx context.Context, actor types.Actor, id uuid.UUID) error {
	if !actor.HasPermission(enums.PermissionDeleteAssignments) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "missing delete_assignments permission")
	}

	assignment, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return err
	}
	if assignment.Status == enums.AssignmentStatusInProgress {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "assignment is in progress")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete assignment")
	}

	if assignment.PDFFilePath != nil {
		if err := s.files.RemoveByPublicURL(*assignment.PDFFilePath); err != nil && s.logg != nil {
			logCtx := s.logg.WithField(ctx, "assignment_id", assignment.ID.String())
			s.logg.Warn(logCtx, "failed to remove attached pdf")
		}
	}

	s.events.PublishToUser(assignment.DriverID, realtime.Event{
		Type:    realtime.EventAssignmentDeleted,
		Payload: map[string]any{"assignment_id": assignment.ID},
	})
	return nil
}

func (s *service) loadVisible(ctx context.Context, actor types.Actor, id uuid.UUID) (*models.Assignment, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup assignment")
	}
	if !actor.CanAccessCompany(assignment.CompanyID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
	}
	if !actor.IsAdmin() && assignment.DriverID != actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "assignment belongs to another driver")
	}
	return assignment, nil
}

func (s *service) loadDriver(ctx context.Context, actor types.Actor, driverID uuid.UUID) (*models.User, error) {
	driver, err := s.users.FindByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup driver")
	}
	if !actor.CanAccessCompany(driver.CompanyID) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver belongs to another company")
	}
	if driver.Role != enums.UserRoleDriver {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is not a driver")
	}
	if !driver.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver is inactive")
	}
	return driver, nil
}

// notifyByEmail reports whether the notification was delivered.
func (s *service) notifyByEmail(ctx context.Context, to string, assignment *models.Assignment, subject, body string) bool {
	msg := notify.EmailMessage{
		To:      to,
		Subject: subject,
		Body:    body,
	}
	if err := s.notifier.SendEmail(ctx, msg); err != nil {
		if s.logg != nil {
			ctx = s.logg.WithField(ctx, "assignment_id", assignment.ID.String())
			s.logg.Warn(ctx, "failed to send assignment notification")
		}
		return false
	}
	return true
}

func (s *service) notifyAssigner(ctx context.Context, assignment *models.Assignment, subject, body string) bool {
	assigner, err := s.users.FindByID(ctx, assignment.AssignedByID)
	if err != nil {
		if s.logg != nil {
			ctx = s.logg.WithField(ctx, "assignment_id", assignment.ID.String())
			s.logg.Warn(ctx, "failed to look up assigner for notification")
		}
		return false
	}
	return s.notifyByEmail(ctx, assigner.Email, assignment, subject, body)
}

// markNotified persists the delivery flag. Delivery already happened, so a
// failed flag write is logged, not returned.
func (s *service) markNotified(ctx context.Context, assignment *models.Assignment) {
	if err := s.repo.Update(ctx, assignment); err != nil && s.logg != nil {
		ctx = s.logg.WithField(ctx, "assignment_id", assignment.ID.String())
		s.logg.Warn(ctx, "failed to record notification state")
	}
}
