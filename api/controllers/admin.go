package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Hazher89/oppdrag-app/api/responses"
	"github.com/Hazher89/oppdrag-app/api/validators"
	"github.com/Hazher89/oppdrag-app/internal/admin"
	"github.com/Hazher89/oppdrag-app/internal/users"
	"github.com/Hazher89/oppdrag-app/pkg/enums"
	pkgerrors "github.com/Hazher89/oppdrag-app/pkg/errors"
	"github.com/Hazher89/oppdrag-app/pkg/logger"
)

const defaultReportWindow = 30 * 24 * time.Hour

// AdminDashboard returns the headline stats for the actor's company.
func AdminDashboard(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		stats, err := svc.Dashboard(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// AdminCompanies returns the cross-tenant overview for super admins.
func AdminCompanies(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		rows, err := svc.Companies(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"companies": rows})
	}
}

// AdminReport returns the per-driver aggregate report. The window defaults
// to the trailing thirty days when from/to are omitted.
func AdminReport(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		fromPtr, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		toPtr, err := validators.ParseQueryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		to := time.Now().UTC()
		if toPtr != nil {
			to = *toPtr
		}
		from := to.Add(-defaultReportWindow)
		if fromPtr != nil {
			from = *fromPtr
		}

		report, err := svc.Report(r.Context(), actor, from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// AdminBulkAssign fans one assignment template out to several drivers.
func AdminBulkAssign(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var input admin.BulkAssignInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.BulkAssign(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// AdminUserCreate provisions a user inside the actor's company.
func AdminUserCreate(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var input admin.CreateUserInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateUser(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// AdminUserList returns the company's users.
func AdminUserList(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
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

		filter, err := parseUserFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListUsers(r.Context(), actor, filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminUserUpdate mutates a company user.
func AdminUserUpdate(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.PathUUID(chi.URLParam(r, "userID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input admin.UpdateUserInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateUser(r.Context(), actor, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// AdminUserDelete removes a company user.
func AdminUserDelete(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		id, err := validators.PathUUID(chi.URLParam(r, "userID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteUser(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func parseUserFilter(r *http.Request) (users.ListFilter, error) {
	var filter users.ListFilter

	if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
		role, err := enums.ParseUserRole(raw)
		if err != nil {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "invalid role filter")
		}
		filter.Role = &role
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("is_active")); raw != "" {
		switch raw {
		case "true":
			active := true
			filter.IsActive = &active
		case "false":
			active := false
			filter.IsActive = &active
		default:
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "is_active must be true or false")
		}
	}
	filter.Search = strings.TrimSpace(r.URL.Query().Get("search"))

	return filter, nil
}
