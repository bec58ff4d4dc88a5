package assignments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Hazher89/oppdrag-app/internal/notify"
	"github.com/Hazher89/oppdrag-app/internal/realtime"
	"github.com/Hazher89/oppdrag-app/pkg/db/models"
	"github.com/Hazher89/oppdrag-app/pkg/enums"
	pkgerrors "github.com/Hazher89/oppdrag-app/pkg/errors"
	"github.com/Hazher89/oppdrag-app/pkg/pagination"
	"github.com/Hazher89/oppdrag-app/pkg/types"
)

type fakeAssignmentRepo struct {
	byID        map[uuid.UUID]*models.Assignment
	listed      []models.Assignment
	listFilter  ListFilter
	deleted     []uuid.UUID
	lastLat     float64
	lastLng     float64
	locationSet bool
}

func newFakeAssignmentRepo(rows ...*models.Assignment) *fakeAssignmentRepo {
	repo := &fakeAssignmentRepo{byID: map[uuid.UUID]*models.Assignment{}}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		repo.byID[row.ID] = row
	}
	return repo
}

func (f *fakeAssignmentRepo) Create(ctx context.Context, a *models.Assignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	f.byID[a.ID] = a
	return nil
}

func (f *fakeAssignmentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	row, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeAssignmentRepo) List(ctx context.Context, companyID string, filter ListFilter, params pagination.Params) ([]models.Assignment, int64, error) {
	f.listFilter = filter
	return f.listed, int64(len(f.listed)), nil
}

func (f *fakeAssignmentRepo) Update(ctx context.Context, a *models.Assignment) error {
	f.byID[a.ID] = a
	return nil
}

func (f *fakeAssignmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAssignmentRepo) UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	f.lastLat, f.lastLng = lat, lng
	f.locationSet = true
	return nil
}

type fakeUserRepo struct {
	byID map[uuid.UUID]*models.User
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

type recordedEvent struct {
	userID uuid.UUID
	event  realtime.Event
}

type fakePublisher struct {
	events []recordedEvent
}

func (f *fakePublisher) PublishToUser(userID uuid.UUID, event realtime.Event) {
	f.events = append(f.events, recordedEvent{userID: userID, event: event})
}

type fakeNotifier struct {
	emails  []notify.EmailMessage
	sendErr error
}

func (f *fakeNotifier) SendEmail(ctx context.Context, msg notify.EmailMessage) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.emails = append(f.emails, msg)
	return nil
}

func adminActor(companyID string) types.Actor {
	return types.Actor{
		ID:        uuid.New(),
		Role:      enums.UserRoleAdmin,
		CompanyID: companyID,
		Name:      "Kari Admin",
		Permissions: []string{
			"create_assignments",
			"edit_assignments",
			"delete_assignments",
			"manage_users",
			"view_reports",
		},
	}
}

func driverActor(id uuid.UUID, companyID string) types.Actor {
	return types.Actor{ID: id, Role: enums.UserRoleDriver, CompanyID: companyID, Name: "Ola Sjåfør"}
}

func activeDriver(companyID string) *models.User {
	return &models.User{
		ID:        uuid.New(),
		Email:     "driver@example.com",
		Name:      "Ola Sjåfør",
		Role:      enums.UserRoleDriver,
		CompanyID: companyID,
		IsActive:  true,
	}
}

type fakeFileRemover struct {
	removed []string
}

func (f *fakeFileRemover) RemoveByPublicURL(publicURL string) error {
	f.removed = append(f.removed, publicURL)
	return nil
}

func buildService(t *testing.T, repo *fakeAssignmentRepo, users *fakeUserRepo) (Service, *fakePublisher, *fakeNotifier) {
	t.Helper()
	events := &fakePublisher{}
	notifier := &fakeNotifier{}
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Users:    users,
		Events:   events,
		Notifier: notifier,
		Files:    &fakeFileRemover{},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, events, notifier
}

func TestCreateAssignsPendingAndNotifies(t *testing.T) {
	driver := activeDriver("acme")
	repo := newFakeAssignmentRepo()
	svc, events, notifier := buildService(t, repo, &fakeUserRepo{byID: map[uuid.UUID]*models.User{driver.ID: driver}})

	created, err := svc.Create(context.Background(), adminActor("acme"), CreateAssignmentInput{
		Title:       "Levering Oslo",
		Description: "Pakke til sentrum",
		DriverID:    driver.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != enums.AssignmentStatusPending {
		t.Fatalf("expected pending got %s", created.Status)
	}
	if created.Priority != enums.AssignmentPriorityMedium {
		t.Fatalf("expected medium priority got %s", created.Priority)
	}
	if created.DriverName != driver.Name {
		t.Fatalf("expected driver name %q got %q", driver.Name, created.DriverName)
	}
	if len(events.events) != 1 || events.events[0].event.Type != realtime.EventAssignmentCreated {
		t.Fatalf("expected one assignment.created event got %+v", events.events)
	}
	if events.events[0].userID != driver.ID {
		t.Fatal("expected event published to driver")
	}
	if len(notifier.emails) != 1 || notifier.emails[0].To != driver.Email {
		t.Fatalf("expected one email to driver got %+v", notifier.emails)
	}
	if !repo.byID[created.ID].NotifiedAssigned {
		t.Fatal("expected delivered notification recorded on the row")
	}
}

func TestCreateSkipsNotifiedFlagWhenEmailFails(t *testing.T) {
	driver := activeDriver("acme")
	repo := newFakeAssignmentRepo()
	events := &fakePublisher{}
	notifier := &fakeNotifier{sendErr: context.DeadlineExceeded}
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Users:    &fakeUserRepo{byID: map[uuid.UUID]*models.User{driver.ID: driver}},
		Events:   events,
		Notifier: notifier,
		Files:    &fakeFileRemover{},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	created, err := svc.Create(context.Background(), adminActor("acme"), CreateAssignmentInput{
		Title:       "Levering",
		Description: "Test",
		DriverID:    driver.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if repo.byID[created.ID].NotifiedAssigned {
		t.Fatal("expected no delivery flag when the email failed")
	}
}

func TestCreateRejectsForeignDriver(t *testing.T) {
	driver := activeDriver("other-company")
	repo := newFakeAssignmentRepo()
	svc, _, _ := buildService(t, repo, &fakeUserRepo{byID: map[uuid.UUID]*models.User{driver.ID: driver}})

	_, err := svc.Create(context.Background(), adminActor("acme"), CreateAssignmentInput{
		Title:       "Levering",
		Description: "Test",
		DriverID:    driver.ID,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}
}

func TestCreateRequiresPermission(t *testing.T) {
	repo := newFakeAssignmentRepo()
	svc, _, _ := buildService(t, repo, &fakeUserRepo{byID: map[uuid.UUID]*models.User{}})

	_, err := svc.Create(context.Background(), driverActor(uuid.New(), "acme"), CreateAssignmentInput{
		Title:       "Levering",
		Description: "Test",
		DriverID:    uuid.New(),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden got %v", err)
	}
}

func TestListScopesDriversToOwnAssignments(t *testing.T) {
	repo := newFakeAssignmentRepo()
	svc, _, _ := buildService(t, repo, &fakeUserRepo{byID: map[uuid.UUID]*models.User{}})

	driverID := uuid.New()
	if _, err := svc.List(context.Background(), driverActor(driverID, "acme"), ListFilter{}, pagination.Params{}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.listFilter.DriverID == nil || *repo.listFilter.DriverID != driverID {
		t.Fatal("expected list filter pinned to the acting driver")
	}

	if _, err := svc.List(context.Background(), adminActor("acme"), ListFilter{}, pagination.Params{}); err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if repo.listFilter.DriverID != nil {
		t.Fatal("expected admin list to stay unfiltered by driver")
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	driverID := uuid.New()
	adminID := uuid.New()
	assignment := &models.Assignment{
		ID:           uuid.New(),
		Title:        "Levering",
		DriverID:     driverID,
		AssignedByID: adminID,
		CompanyID:    "acme",
		Status:       enums.AssignmentStatusAccepted,
	}
	repo := newFakeAssignmentRepo(assignment)
	svc, events, _ := buildService(t, repo, &fakeUserRepo{byID: map[uuid.UUID]*models.User{}})

	actor := driverActor(driverID, "acme")
	updated, err := svc.UpdateStatus(context.Background(), actor, assignment.ID, UpdateStatusInput{Status: "in_progress"})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != enums.AssignmentStatusInProgress {
		t.Fatalf("expected in_progress got %s", updated.Status)
	}
	if updated.ActualPickupTime == nil {
		t.Fatal("expected actual pickup time to be recorded")
	}
	if len(events.events) != 2 {
		t.Fatalf("expected status event for driver and assigner got %d", len(events.events))
	}

	// The pickup timestamp must survive the completion transition untouched.
	pickupAt := *updated.ActualPickupTime
	completed, err := svc.UpdateStatus(context.Background(), actor, assignment.ID, UpdateStatusInput{Status: "completed"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.ActualDeliveryTime == nil {
		t.Fatal("expected actual delivery time to be recorded")
	}
	if completed.ActualPickupTime == nil || !completed.ActualPickupTime.Equal(pickupAt) {
		t.Fatal("expected pickup time to be preserved")
	}
}

func TestUpdateStatusNotifiesAssigner(t *testing.T) {
	driverID := uuid.New()
	assigner := &models.User{
		ID:        uuid.New(),
		Email:     "admin@example.com",
		Name:      "Kari Admin",
		Role:      enums.UserRoleAdmin,
		CompanyID: "acme",
		IsActive:  true,
	}
	assignment := &models.Assignment{
		ID:           uuid.New(),
		Title:        "Levering",
		DriverID:     driverID,
		AssignedByID: assigner.ID,
		CompanyID:    "acme",
		Status:       enums.AssignmentStatusAccepted,
	}
	repo := newFakeAssignmentRepo(assignment)
	svc, _, notifier := buildService(t, repo, &fakeUserRepo{byID: map[uuid.UUID]*models.User{assigner.ID: assigner}})

	actor := driverActor(driverID, "acme")
	if _, err := svc.UpdateStatus(context.Background(), actor, assignment.ID, UpdateStatusInput{Status: "in_progress"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(notifier.emails) != 1 || notifier.emails[0].To != assigner.Email {
		t.Fatalf("expected start email to assigner got %+v", notifier.emails)
	}
	if !repo.byID[assignment.ID].NotifiedStarted {
		t.Fatal("expected start notification recorded")
	}

	if _, err := svc.UpdateStatus(context.Background(), actor, assignment.ID, UpdateStatusInput{Status: "completed"}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(notifier.emails) != 2 {
		t.Fatalf("expected completion email got %+v", notifier.emails)
	}
	if !repo.byID[assignment.ID].NotifiedCompleted {
		t.Fatal("expected completion notification recorded")
	}
}

func TestUpdateStatusRejectsBackwardMove(t *testing.T) {
	driverID := uuid.New()
	assignment := &models.Assignment{
		ID:           uuid.New(),
		DriverID:     driverID,
		AssignedByID: uuid.New(),
		CompanyID:    "acme",
		Status:       enums.AssignmentStatusInProgress,
	}
	repo := newFakeAssignmentRepo(assignment)
	svc, _, _ := buildService(t, repo, &fakeUserRepo{byID: map[uuid.UUID]*models.User{}})

	_, err := svc.UpdateStatus(context.Background(), driverActor(driverID, "acme"), assignment.ID, UpdateStatusInput{Status: "accepted"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
}

func TestUpdateStatusCancelRequiresAdmin(t *testing.T) {
	driverID := uuid.New()
	assignment := &models.Assignment{
		ID:           uuid.New(),
		DriverID:     driverID,
		AssignedByID: uuid.New(),
		CompanyID:    "acme",
		Status:       enums.AssignmentStatusPending,
	}
	repo := newFakeAssignmentRepo(assignment)
	svc, _, _ := buildService(t, repo, &fakeUserRepo{byID: map[uuid.UUID]*models.User{}})

	_, err := svc.UpdateStatus(context.Background(), driverActor(driverID, "acme"), assignment.ID, UpdateStatusInput{Status: "cancelled"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden got %v", err)
	}

	admin := adminActor("acme")
	cancelled, err := svc.UpdateStatus(context.Background(), admin, assignment.ID, UpdateStatusInput{Status: "cancelled"})
	if err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
	if cancelled.Status != enums.AssignmentStatusCancelled {
		t.Fatalf("expected cancelled got %s", cancelled.Status)
	}
}

func TestUpdateStatusNotesRouting(t *testing.T) {
	driverID := uuid.New()
	assignment := &models.Assignment{
		ID:           uuid.New(),
		DriverID:     driverID,
		AssignedByID: uuid.New(),
		CompanyID:    "acme",
		Status:       enums.AssignmentStatusInProgress,
	}
	repo := newFakeAssignmentRepo(assignment)
	svc, _, _ := buildService(t, repo, &fakeUserRepo{byID: map[uuid.UUID]*models.User{}})

	note := "Levert ved døra"
	completed, err := svc.UpdateStatus(context.Background(), driverActor(driverID, "acme"), assignment.ID, UpdateStatusInput{
		Status: "completed",
		Notes:  &note,
	})
	if err != nil {
		t.Fatalf("complete with notes: %v", err)
	}
	if completed.CompletionNotes == nil || *completed.CompletionNotes != note {
		t.Fatalf("expected completion notes %q got %+v", note, completed.CompletionNotes)
	}
	if completed.DriverNotes != nil {
		t.Fatal("expected driver notes untouched on completion")
	}
}

func TestUpdateLocationOnlyAssignedDriverInProgress(t *testing.T) {
	driverID := uuid.New()
	adminID := uuid.New()
	assignment := &models.Assignment{
		ID:           uuid.New(),
		DriverID:     driverID,
		AssignedByID: adminID,
		CompanyID:    "acme",
		Status:       enums.AssignmentStatusInProgress,
	}
	repo := newFakeAssignmentRepo(assignment)
	svc, events, _ := buildService(t, repo, &fakeUserRepo{byID: map[uuid.UUID]*models.User{}})

	err := svc.UpdateLocation(context.Background(), driverActor(driverID, "acme"), assignment.ID, UpdateLocationInput{Lat: 59.91, Lng: 10.75})
	if err != nil {
		t.Fatalf("update location: %v", err)
	}
	if !repo.locationSet || repo.lastLat != 59.91 || repo.lastLng != 10.75 {
		t.Fatalf("expected location persisted got lat=%v lng=%v", repo.lastLat, repo.lastLng)
	}
	if len(events.events) != 1 || events.events[0].userID != adminID {
		t.Fatalf("expected location event for the assigner got %+v", events.events)
	}

	err = svc.UpdateLocation(context.Background(), adminActor("acme"), assignment.ID, UpdateLocationInput{Lat: 1, Lng: 1})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for non-driver got %v", err)
	}
}

func TestUpdateLocationRequiresInProgress(t *testing.T) {
	driverID := uuid.New()
	assignment := &models.Assignment{
		ID:           uuid.New(),
		DriverID:     driverID,
		AssignedByID: uuid.New(),
		CompanyID:    "acme",
		Status:       enums.AssignmentStatusPending,
	}
	repo := newFakeAssignmentRepo(assignment)
	svc, _, _ := buildService(t, repo, &fakeUserRepo{byID: map[uuid.UUID]*models.User{}})

	err := svc.UpdateLocation(context.Background(), driverActor(driverID, "acme"), assignment.ID, UpdateLocationInput{Lat: 1, Lng: 1})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
}

func TestGetByIDHidesOtherCompanies(t *testing.T) {
	assignment := &models.Assignment{
		ID:           uuid.New(),
		DriverID:     uuid.New(),
		AssignedByID: uuid.New(),
		CompanyID:    "other",
		Status:       enums.AssignmentStatusPending,
	}
	repo := newFakeAssignmentRepo(assignment)
	svc, _, _ := buildService(t, repo, &fakeUserRepo{byID: map[uuid.UUID]*models.User{}})

	_, err := svc.GetByID(context.Background(), adminActor("acme"), assignment.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign company got %v", err)
	}
}

func TestDeleteRefusesInProgress(t *testing.T) {
	assignment := &models.Assignment{
		ID:           uuid.New(),
		DriverID:     uuid.New(),
		AssignedByID: uuid.New(),
		CompanyID:    "acme",
		Status:       enums.AssignmentStatusInProgress,
	}
	repo := newFakeAssignmentRepo(assignment)
	svc, _, _ := buildService(t, repo, &fakeUserRepo{byID: map[uuid.UUID]*models.User{}})

	err := svc.Delete(context.Background(), adminActor("acme"), assignment.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
}

func TestDeleteRequiresExplicitGrantForAdmins(t *testing.T) {
	assignment := &models.Assignment{
		ID:           uuid.New(),
		DriverID:     uuid.New(),
		AssignedByID: uuid.New(),
		CompanyID:    "acme",
		Status:       enums.AssignmentStatusPending,
	}
	repo := newFakeAssignmentRepo(assignment)
	svc, _, _ := buildService(t, repo, &fakeUserRepo{byID: map[uuid.UUID]*models.User{}})

	ungranted := types.Actor{ID: uuid.New(), Role: enums.UserRoleAdmin, CompanyID: "acme"}
	err := svc.Delete(context.Background(), ungranted, assignment.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for admin without delete_assignments got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatal("expected no deletion")
	}
}

func TestDeletePublishesToDriver(t *testing.T) {
	driverID := uuid.New()
	assignment := &models.Assignment{
		ID:           uuid.New(),
		DriverID:     driverID,
		AssignedByID: uuid.New(),
		CompanyID:    "acme",
		Status:       enums.AssignmentStatusPending,
	}
	repo := newFakeAssignmentRepo(assignment)
	svc, events, _ := buildService(t, repo, &fakeUserRepo{byID: map[uuid.UUID]*models.User{}})

	if err := svc.Delete(context.Background(), adminActor("acme"), assignment.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != assignment.ID {
		t.Fatal("expected row deleted")
	}
	if len(events.events) != 1 || events.events[0].event.Type != realtime.EventAssignmentDeleted || events.events[0].userID != driverID {
		t.Fatalf("expected assignment.deleted event for driver got %+v", events.events)
	}
}

func TestDeleteRemovesAttachedPDF(t *testing.T) {
	pdfURL := "/uploads/pdfs/fraktbrev.pdf"
	assignment := &models.Assignment{
		ID:           uuid.New(),
		DriverID:     uuid.New(),
		AssignedByID: uuid.New(),
		CompanyID:    "acme",
		Status:       enums.AssignmentStatusCompleted,
		PDFFilePath:  &pdfURL,
	}
	repo := newFakeAssignmentRepo(assignment)
	files := &fakeFileRemover{}
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Users:    &fakeUserRepo{byID: map[uuid.UUID]*models.User{}},
		Events:   &fakePublisher{},
		Notifier: &fakeNotifier{},
		Files:    files,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.Delete(context.Background(), adminActor("acme"), assignment.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(files.removed) != 1 || files.removed[0] != pdfURL {
		t.Fatalf("expected attached pdf removed got %v", files.removed)
	}
}
