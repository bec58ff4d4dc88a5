package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/Hazher89/oppdrag-app/pkg/auth"
	"github.com/Hazher89/oppdrag-app/pkg/config"
	"github.com/Hazher89/oppdrag-app/pkg/db/models"
	dbtypes "github.com/Hazher89/oppdrag-app/pkg/db/types"
	"github.com/Hazher89/oppdrag-app/pkg/enums"
	"github.com/Hazher89/oppdrag-app/pkg/logger"
	"github.com/Hazher89/oppdrag-app/pkg/types"
)

var authCfg = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "oppdrag",
	ExpirationMinutes: 60,
}

type stubLoader struct {
	byID map[uuid.UUID]*models.User
}

func (s *stubLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}

func mintToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(authCfg, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:    userID,
		Role:      enums.UserRoleDriver,
		CompanyID: "acme",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthResolvesActor(t *testing.T) {
	user := &models.User{
		ID:          uuid.New(),
		Name:        "Ola Sjåfør",
		Role:        enums.UserRoleDriver,
		CompanyID:   "acme",
		IsActive:    true,
		Permissions: dbtypes.StringArray{"view_reports"},
	}
	loader := &stubLoader{byID: map[uuid.UUID]*models.User{user.ID: user}}

	var seen types.Actor
	var ok bool
	handler := Auth(authCfg, loader, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, ok = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+mintToken(t, user.ID))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", w.Code)
	}
	if !ok {
		t.Fatal("expected actor in context")
	}
	if seen.ID != user.ID || seen.Name != "Ola Sjåfør" || seen.CompanyID != "acme" {
		t.Fatalf("unexpected actor %+v", seen)
	}
	if len(seen.Permissions) != 1 || seen.Permissions[0] != "view_reports" {
		t.Fatalf("expected permissions carried over got %v", seen.Permissions)
	}
}

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	loader := &stubLoader{byID: map[uuid.UUID]*models.User{}}
	handler := Auth(authCfg, loader, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	r := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", w.Code)
	}

	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer not.a.token")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token got %d", w.Code)
	}
}

func TestAuthRejectsDeactivatedUser(t *testing.T) {
	user := &models.User{
		ID:        uuid.New(),
		Role:      enums.UserRoleDriver,
		CompanyID: "acme",
		IsActive:  false,
	}
	loader := &stubLoader{byID: map[uuid.UUID]*models.User{user.ID: user}}
	handler := Auth(authCfg, loader, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+mintToken(t, user.ID))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deactivated user got %d", w.Code)
	}
}

func TestAuthRejectsDeletedUser(t *testing.T) {
	loader := &stubLoader{byID: map[uuid.UUID]*models.User{}}
	handler := Auth(authCfg, loader, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+mintToken(t, uuid.New()))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user got %d", w.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	r := httptest.NewRequest("GET", "/", nil)
	r = r.WithContext(WithActor(r.Context(), types.Actor{ID: uuid.New(), Role: enums.UserRoleAdmin, CompanyID: "acme"}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected admin through got %d", w.Code)
	}

	r = httptest.NewRequest("GET", "/", nil)
	r = r.WithContext(WithActor(r.Context(), types.Actor{ID: uuid.New(), Role: enums.UserRoleDriver, CompanyID: "acme"}))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for driver got %d", w.Code)
	}

	r = httptest.NewRequest("GET", "/", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without actor got %d", w.Code)
	}
}

func TestRequireSuperAdmin(t *testing.T) {
	handler := RequireSuperAdmin(quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	r := httptest.NewRequest("GET", "/", nil)
	r = r.WithContext(WithActor(r.Context(), types.Actor{ID: uuid.New(), Role: enums.UserRoleSuperAdmin}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected super admin through got %d", w.Code)
	}

	r = httptest.NewRequest("GET", "/", nil)
	r = r.WithContext(WithActor(r.Context(), types.Actor{ID: uuid.New(), Role: enums.UserRoleAdmin, CompanyID: "acme"}))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for plain admin got %d", w.Code)
	}

	r = httptest.NewRequest("GET", "/", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without actor got %d", w.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	handler := RequirePermission(enums.PermissionViewReports, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	granted := types.Actor{ID: uuid.New(), Role: enums.UserRoleDriver, CompanyID: "acme", Permissions: []string{"view_reports"}}
	r := httptest.NewRequest("GET", "/", nil)
	r = r.WithContext(WithActor(r.Context(), granted))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected permission holder through got %d", w.Code)
	}

	// Only super admins hold permissions implicitly.
	super := types.Actor{ID: uuid.New(), Role: enums.UserRoleSuperAdmin, CompanyID: "hq"}
	r = httptest.NewRequest("GET", "/", nil)
	r = r.WithContext(WithActor(r.Context(), super))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected super admin through got %d", w.Code)
	}

	// A regular admin without the grant is rejected like anyone else.
	admin := types.Actor{ID: uuid.New(), Role: enums.UserRoleAdmin, CompanyID: "acme"}
	r = httptest.NewRequest("GET", "/", nil)
	r = r.WithContext(WithActor(r.Context(), admin))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for ungranted admin got %d", w.Code)
	}

	plain := types.Actor{ID: uuid.New(), Role: enums.UserRoleDriver, CompanyID: "acme"}
	r = httptest.NewRequest("GET", "/", nil)
	r = r.WithContext(WithActor(r.Context(), plain))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without permission got %d", w.Code)
	}
}
