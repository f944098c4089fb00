package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/expenseflow/expenseflow/internal/alerts"
	"github.com/expenseflow/expenseflow/internal/auth"
	"github.com/expenseflow/expenseflow/internal/cache"
	"github.com/expenseflow/expenseflow/internal/categories"
	"github.com/expenseflow/expenseflow/internal/dashboard"
	"github.com/expenseflow/expenseflow/internal/departments"
	"github.com/expenseflow/expenseflow/internal/expenses"
	"github.com/expenseflow/expenseflow/internal/observability"
	"github.com/expenseflow/expenseflow/internal/reports"
	"github.com/expenseflow/expenseflow/internal/tags"
	"github.com/expenseflow/expenseflow/internal/users"
	"github.com/expenseflow/expenseflow/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	Auth *auth.Middleware

	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	ExpensesHandler    *expenses.Handler
	DepartmentsHandler *departments.Handler
	TagsHandler        *tags.Handler
	CategoriesHandler  *categories.Handler
	DashboardHandler   *dashboard.Handler
	AlertsHandler      *alerts.Handler
	ReportsHandler     *reports.Handler
	CacheHandler       *cache.Handler
	JobHandler         *jobs.Handler

	Metrics   *observability.Metrics
	UploadDir string
}

// NewRouter constructs the chi.Router for the JSON API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	// Login and the write surfaces get a tighter per-IP budget than the
	// global limiter in MiddlewareStack.
	loginLimiter := httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
	writeLimiter := httprate.Limit(30, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(r chi.Router) {
			r.Use(loginLimiter)
			params.AuthHandler.MountRoutes(r)
		})

		api.Group(func(authed chi.Router) {
			authed.Use(params.Auth.RequireAuth)

			authed.Route("/expenses", func(r chi.Router) {
				params.ExpensesHandler.MountRoutes(r)
				r.Group(func(admin chi.Router) {
					admin.Use(params.Auth.RequireAdmin, writeLimiter)
					params.ExpensesHandler.MountAdminRoutes(admin)
				})
			})

			authed.Route("/departments", func(r chi.Router) {
				params.DepartmentsHandler.MountRoutes(r)
				r.Group(func(admin chi.Router) {
					admin.Use(params.Auth.RequireAdmin)
					params.DepartmentsHandler.MountAdminRoutes(admin)
				})
			})

			authed.Route("/alerts", func(r chi.Router) {
				params.AlertsHandler.MountRoutes(r)
				r.Group(func(admin chi.Router) {
					admin.Use(params.Auth.RequireAdmin)
					params.AlertsHandler.MountAdminRoutes(admin)
				})
			})

			authed.Route("/tags", params.TagsHandler.MountRoutes)
			authed.Route("/categories", params.CategoriesHandler.MountRoutes)
			authed.Route("/dashboard", params.DashboardHandler.MountRoutes)
			authed.Route("/reports", params.ReportsHandler.MountRoutes)

			authed.Group(func(admin chi.Router) {
				admin.Use(params.Auth.RequireAdmin)
				admin.Route("/users", func(r chi.Router) {
					r.Use(writeLimiter)
					params.UsersHandler.MountRoutes(r)
				})
				admin.Route("/cache", params.CacheHandler.MountRoutes)
				if params.JobHandler != nil {
					admin.Route("/jobs", params.JobHandler.MountRoutes)
				}
			})
		})
	})

	if params.UploadDir != "" {
		fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(params.UploadDir)))
		r.Handle("/uploads/*", receiptCacheHandler(fileServer))
	}

	return r
}

// receiptCacheHandler wraps the receipt file server with Cache-Control
// headers. Stored receipts never change once written.
func receiptCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
