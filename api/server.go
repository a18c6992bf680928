/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. CORS:          Cross-origin requests for frontend
  3. RequestLogger: Structured request logs (httplog, ECS schema)
  4. Recoverer:     Panic recovery (500 instead of crash)
  5. Heartbeat:     GET /healthz for load balancers

ROUTE GROUPS:
  /api/payroll/*        Stateless compute, personal totals, month close
  /api/subjects/*       Subjects, their shifts and payroll
  /api/shifts/*         Shift deletion
  /api/teams/*          Team totals
  /api/holidays/*       Holiday calendar
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"io"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

// RouterOptions configures cross-cutting middleware.
type RouterOptions struct {
	AllowedOrigins []string
	Logger         *slog.Logger
	LogLevel       slog.Level
}

// NewLogger builds a JSON slog logger whose attributes follow the ECS
// schema, matching the request logs.
func NewLogger(w io.Writer, level slog.Level, env string) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(env != "production")
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "wage-engine"),
		slog.String("env", env),
	)
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = h.Logger
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/healthz"))

	r.Route("/api", func(r chi.Router) {
		r.Route("/payroll", func(r chi.Router) {
			r.Post("/compute", h.ComputePayroll)
			r.Get("/personal", h.GetPersonalPayroll)
			r.Get("/runs", h.ListPayrollRuns)
			r.Post("/close", h.ClosePayroll)
		})

		r.Route("/subjects", func(r chi.Router) {
			r.Get("/", h.ListSubjects)
			r.Post("/", h.CreateSubject)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSubject)
				r.Put("/", h.UpdateSubject)
				r.Delete("/", h.DeleteSubject)
				r.Get("/shifts", h.ListShifts)
				r.Post("/shifts", h.CreateShift)
				r.Get("/payroll", h.GetSubjectPayroll)
				r.Get("/payroll/payslip.pdf", h.GetPayslip)
				r.Get("/payroll/payroll.xlsx", h.GetWorkbook)
			})
		})

		r.Route("/shifts", func(r chi.Router) {
			r.Delete("/{id}", h.DeleteShift)
		})

		r.Route("/teams", func(r chi.Router) {
			r.Get("/{team}/payroll", h.GetTeamPayroll)
			r.Get("/{team}/payroll.xlsx", h.GetTeamWorkbook)
		})

		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Post("/defaults", h.AddDefaultHolidays)
			r.Delete("/{id}", h.DeleteHoliday)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
