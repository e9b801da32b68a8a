package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/financehub/finance-hub/internal/api/auth"
	"github.com/financehub/finance-hub/internal/container"
	"github.com/financehub/finance-hub/internal/types"
)

// SetupRouter builds the full route tree. Server-wide middleware (request ID,
// logging, recoverer) is applied before this router is mounted in main.go.
func SetupRouter(c *container.Container, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	authenticate := auth.Authenticate(logger, c.Config.JWT)
	requireAdmin := auth.RequireRole(logger, c.RolesRepo, types.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {

		// Public routes
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", c.AuthHandler.Register)
			r.Post("/auth/login", c.AuthHandler.Login)
			r.Post("/auth/refresh", c.AuthHandler.RefreshSession)

			// Idempotent bootstrap, callable before any account exists.
			r.Post("/admin/create-admin", c.AdminHandler.CreateAdmin)
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/auth/logout", c.AuthHandler.Logout)
			r.Get("/auth/session", c.AuthHandler.GetSession)

			r.Get("/user/profile", c.ProfileHandler.GetUserProfile)
			r.Put("/user/profile", c.ProfileHandler.UpdateUserProfile)

			r.Get("/settings", c.SettingsHandler.GetSettings)
			r.Put("/settings", c.SettingsHandler.UpdateSettings)

			r.Route("/connections", func(r chi.Router) {
				r.Get("/", c.ConnectionHandler.ListConnections)
				r.Post("/", c.ConnectionHandler.CreateConnection)
				r.Get("/{connectionID}", c.ConnectionHandler.GetConnection)
				r.Put("/{connectionID}", c.ConnectionHandler.UpdateConnection)
				r.Delete("/{connectionID}", c.ConnectionHandler.DeleteConnection)
				r.Post("/{connectionID}/refresh", c.ConnectionHandler.RefreshConnection)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", c.TransactionHandler.ListTransactions)
				r.Post("/", c.TransactionHandler.CreateTransaction)
				r.Get("/{transactionID}", c.TransactionHandler.GetTransaction)
				r.Put("/{transactionID}", c.TransactionHandler.UpdateTransaction)
				r.Delete("/{transactionID}", c.TransactionHandler.DeleteTransaction)
			})

			r.Route("/automations", func(r chi.Router) {
				r.Get("/", c.AutomationHandler.ListAutomations)
				r.Post("/", c.AutomationHandler.CreateAutomation)
				r.Get("/{automationID}", c.AutomationHandler.GetAutomation)
				r.Put("/{automationID}", c.AutomationHandler.UpdateAutomation)
				r.Delete("/{automationID}", c.AutomationHandler.DeleteAutomation)
				r.Post("/{automationID}/execute", c.AutomationHandler.ExecuteAutomation)
			})

			r.Get("/roles", c.RolesHandler.ListOwnRoles)

			r.Post("/security/log-event", c.SecurityLogHandler.LogEvent)
			r.Get("/security/logs", c.SecurityLogHandler.ListSecurityLogs)
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(requireAdmin)

			r.Get("/admin/users", c.ProfileHandler.ListUsers)
			r.Get("/admin/roles", c.RolesHandler.ListAllRoles)
			r.Post("/admin/roles", c.RolesHandler.AssignRole)
			r.Delete("/admin/roles/{roleID}", c.RolesHandler.RemoveRole)
		})
	})

	return r
}
