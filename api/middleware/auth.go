package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Hazher89/oppdrag-app/api/responses"
	pkgAuth "github.com/Hazher89/oppdrag-app/pkg/auth"
	"github.com/Hazher89/oppdrag-app/pkg/config"
	"github.com/Hazher89/oppdrag-app/pkg/db/models"
	pkgerrors "github.com/Hazher89/oppdrag-app/pkg/errors"
	"github.com/Hazher89/oppdrag-app/pkg/logger"
	"github.com/Hazher89/oppdrag-app/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActorLoader resolves the acting user from storage so revoked or deactivated
// accounts lose access immediately, not at token expiry.
type ActorLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Auth validates a bearer token, loads the user, and seeds the request context
// with the resolved actor.
func Auth(cfg config.JWTConfig, loader ActorLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			actor, err := ResolveActor(r.Context(), loader, claims)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    actor.ID.String(),
					"actor_role": string(actor.Role),
					"company_id": actor.CompanyID,
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ResolveActor turns validated claims into an actor backed by a live user row.
func ResolveActor(ctx context.Context, loader ActorLoader, claims *pkgAuth.AccessTokenClaims) (types.Actor, error) {
	user, err := loader.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "account no longer exists")
		}
		return types.Actor{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if !user.IsActive {
		return types.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "account is deactivated")
	}

	return types.Actor{
		ID:          user.ID,
		Role:        user.Role,
		CompanyID:   user.CompanyID,
		Permissions: append([]string(nil), []string(user.Permissions)...),
		Name:        user.Name,
	}, nil
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
