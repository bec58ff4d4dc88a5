package routes

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Hazher89/oppdrag-app/api/controllers"
	"github.com/Hazher89/oppdrag-app/api/middleware"
	"github.com/Hazher89/oppdrag-app/internal/admin"
	"github.com/Hazher89/oppdrag-app/internal/assignments"
	"github.com/Hazher89/oppdrag-app/internal/auth"
	"github.com/Hazher89/oppdrag-app/internal/chat"
	"github.com/Hazher89/oppdrag-app/internal/realtime"
	"github.com/Hazher89/oppdrag-app/internal/uploads"
	"github.com/Hazher89/oppdrag-app/pkg/config"
	"github.com/Hazher89/oppdrag-app/pkg/db"
	"github.com/Hazher89/oppdrag-app/pkg/enums"
	"github.com/Hazher89/oppdrag-app/pkg/logger"
	"github.com/Hazher89/oppdrag-app/pkg/metrics"
	pkgredis "github.com/Hazher89/oppdrag-app/pkg/redis"
)

// Deps carries everything the router mounts.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Database *db.Client
	Redis    *pkgredis.Client

	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPMetrics

	ActorLoader middleware.ActorLoader
	Uploads     *uploads.Store
	Hub         *realtime.Hub

	AuthService       auth.Service
	AssignmentService assignments.Service
	ChatService       chat.Service
	AdminService      admin.Service
}

// New assembles the full HTTP surface.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID(d.Logger))
	r.Use(middleware.Recoverer(d.Logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Logging(d.Logger, d.HTTPMetrics))

	r.Get("/healthz", controllers.HealthLive(d.Config))
	r.Get("/readyz", controllers.HealthReady(d.Config, d.Database, d.Redis, d.Logger))
	r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))

	r.Get("/ws", controllers.Websocket(d.Config, d.Hub, d.ActorLoader, d.ChatService, d.Logger))

	uploadsDir := http.Dir(filepath.Clean(d.Config.Uploads.BaseDir))
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(uploadsDir)))

	rl := d.Config.AuthRateLimit
	loginLimit := middleware.NewAuthRateLimitPolicy("login", rl.LoginWindow, rl.LoginIPLimit, rl.LoginEmailLimit)
	registerLimit := middleware.NewAuthRateLimitPolicy("register", rl.RegisterWindow, rl.RegisterIPLimit, rl.RegisterEmailLimit)
	codeLimit := middleware.NewAuthRateLimitPolicy("code", rl.CodeWindow, rl.CodeIPLimit, rl.CodeEmailLimit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerLimit, d.Redis, d.Logger)).
				Post("/register", controllers.Register(d.AuthService, d.Logger))
			r.With(middleware.AuthRateLimit(loginLimit, d.Redis, d.Logger)).
				Post("/login", controllers.Login(d.AuthService, d.Logger))

			r.Group(func(r chi.Router) {
				r.Use(middleware.AuthRateLimit(codeLimit, d.Redis, d.Logger))
				r.Post("/verify-email", controllers.VerifyEmail(d.AuthService, d.Logger))
				r.Post("/resend-code", controllers.ResendVerificationCode(d.AuthService, d.Logger))
				r.Post("/forgot-password", controllers.ForgotPassword(d.AuthService, d.Logger))
				r.Post("/reset-password", controllers.ResetPassword(d.AuthService, d.Logger))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(d.Config.JWT, d.ActorLoader, d.Logger))
				r.Get("/profile", controllers.Profile(d.AuthService, d.Logger))
				r.Put("/profile", controllers.UpdateProfile(d.AuthService, d.Logger))
				r.Put("/change-password", controllers.ChangePassword(d.AuthService, d.Logger))
				r.Put("/device-token", controllers.UpdateDeviceToken(d.AuthService, d.Logger))
				r.Post("/logout", controllers.Logout(d.AuthService, d.Logger))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(d.Config.JWT, d.ActorLoader, d.Logger))

			r.Route("/assignments", func(r chi.Router) {
				r.Post("/", controllers.AssignmentCreate(d.AssignmentService, d.Logger))
				r.Get("/", controllers.AssignmentList(d.AssignmentService, d.Logger))
				r.Route("/{assignmentID}", func(r chi.Router) {
					r.Get("/", controllers.AssignmentGet(d.AssignmentService, d.Logger))
					r.Put("/", controllers.AssignmentUpdate(d.AssignmentService, d.Logger))
					r.Delete("/", controllers.AssignmentDelete(d.AssignmentService, d.Logger))
					r.Patch("/status", controllers.AssignmentUpdateStatus(d.AssignmentService, d.Logger))
					r.Patch("/location", controllers.AssignmentUpdateLocation(d.AssignmentService, d.Logger))
					r.Post("/pdf", controllers.AssignmentUploadPDF(d.AssignmentService, d.Uploads, d.Logger))
				})
			})

			r.Route("/chat", func(r chi.Router) {
				r.Post("/conversations", controllers.ConversationCreate(d.ChatService, d.Logger))
				r.Get("/conversations", controllers.ConversationList(d.ChatService, d.Logger))
				r.Get("/unread-count", controllers.UnreadTotal(d.ChatService, d.Logger))
				r.Post("/upload", controllers.ChatFileUpload(d.Uploads, d.Logger))
				r.Get("/users", controllers.ContactList(d.ChatService, d.Logger))
				r.Route("/conversations/{conversationID}", func(r chi.Router) {
					r.Get("/", controllers.ConversationGet(d.ChatService, d.Logger))
					r.Delete("/", controllers.ConversationDelete(d.ChatService, d.Logger))
					r.Get("/messages", controllers.MessageList(d.ChatService, d.Logger))
					r.Post("/messages", controllers.MessageSend(d.ChatService, d.Logger))
					r.Put("/read", controllers.ConversationMarkRead(d.ChatService, d.Logger))
				})
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin(d.Logger))

				r.Get("/dashboard", controllers.AdminDashboard(d.AdminService, d.Logger))
				r.With(middleware.RequireSuperAdmin(d.Logger)).
					Get("/companies", controllers.AdminCompanies(d.AdminService, d.Logger))
				r.With(middleware.RequirePermission(enums.PermissionViewReports, d.Logger)).
					Get("/reports", controllers.AdminReport(d.AdminService, d.Logger))
				r.With(middleware.RequirePermission(enums.PermissionCreateAssignments, d.Logger)).
					Post("/assignments/bulk", controllers.AdminBulkAssign(d.AdminService, d.Logger))

				r.Route("/users", func(r chi.Router) {
					r.Use(middleware.RequirePermission(enums.PermissionManageUsers, d.Logger))
					r.Post("/", controllers.AdminUserCreate(d.AdminService, d.Logger))
					r.Get("/", controllers.AdminUserList(d.AdminService, d.Logger))
					r.Put("/{userID}", controllers.AdminUserUpdate(d.AdminService, d.Logger))
					r.Delete("/{userID}", controllers.AdminUserDelete(d.AdminService, d.Logger))
				})
			})
		})
	})

	return r
}
