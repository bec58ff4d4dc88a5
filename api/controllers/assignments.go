package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Hazher89/oppdrag-app/api/middleware"
	"github.com/Hazher89/oppdrag-app/api/responses"
	"github.com/Hazher89/oppdrag-app/api/validators"
	"github.com/Hazher89/oppdrag-app/internal/assignments"
	"github.com/Hazher89/oppdrag-app/internal/uploads"
	"github.com/Hazher89/oppdrag-app/pkg/enums"
	pkgerrors "github.com/Hazher89/oppdrag-app/pkg/errors"
	"github.com/Hazher89/oppdrag-app/pkg/logger"
	"github.com/Hazher89/oppdrag-app/pkg/types"
)

func requireActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (types.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
		return types.Actor{}, false
	}
	return actor, true
}

// AssignmentCreate dispatches a new assignment to a driver.
func AssignmentCreate(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var input assignments.CreateAssignmentInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// AssignmentList returns the assignments visible to the actor.
func AssignmentList(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter, err := parseAssignmentFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), actor, filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AssignmentGet returns one assignment by id.
func AssignmentGet(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.PathUUID(chi.URLParam(r, "assignmentID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		found, err := svc.GetByID(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, found)
	}
}

// AssignmentUpdate mutates the admin-editable fields.
func AssignmentUpdate(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.PathUUID(chi.URLParam(r, "assignmentID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input assignments.UpdateAssignmentInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), actor, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// AssignmentUpdateStatus moves the assignment through its lifecycle.
func AssignmentUpdateStatus(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.PathUUID(chi.URLParam(r, "assignmentID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input assignments.UpdateStatusInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateStatus(r.Context(), actor, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// AssignmentUpdateLocation stores the driver's live position.
func AssignmentUpdateLocation(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.PathUUID(chi.URLParam(r, "assignmentID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input assignments.UpdateLocationInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UpdateLocation(r.Context(), actor, id, input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "location updated"})
	}
}

// AssignmentUploadPDF receives a multipart PDF and attaches it.
func AssignmentUploadPDF(svc assignments.Service, store *uploads.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.PathUUID(chi.URLParam(r, "assignmentID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := r.ParseMultipartForm(store.MaxSize(uploads.KindAssignmentPDF)); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file field is required"))
			return
		}
		defer file.Close()

		stored, err := store.Save(uploads.KindAssignmentPDF, header.Filename, file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.AttachPDF(r.Context(), actor, id, assignments.PDFDescriptor{
			FileName: stored.FileName,
			FilePath: stored.PublicURL,
			FileSize: stored.Size,
		})
		if err != nil {
			// The orphaned file is useless once the attach fails.
			_ = store.Remove(stored.Path)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// AssignmentDelete removes an assignment.
func AssignmentDelete(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.PathUUID(chi.URLParam(r, "assignmentID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func parseAssignmentFilter(r *http.Request) (assignments.ListFilter, error) {
	var filter assignments.ListFilter

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := enums.ParseAssignmentStatus(raw)
		if err != nil {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("priority"); raw != "" {
		priority, err := enums.ParseAssignmentPriority(raw)
		if err != nil {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "invalid priority filter")
		}
		filter.Priority = &priority
	}

	driverID, err := validators.ParseQueryUUID(r, "driver_id")
	if err != nil {
		return filter, err
	}
	filter.DriverID = driverID

	from, err := validators.ParseQueryTime(r, "from")
	if err != nil {
		return filter, err
	}
	filter.From = from

	to, err := validators.ParseQueryTime(r, "to")
	if err != nil {
		return filter, err
	}
	filter.To = to

	return filter, nil
}
