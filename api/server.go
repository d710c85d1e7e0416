/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     One zap line per request (method, path, status, duration)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the counter front end

ROUTE GROUPS:
  /api/locations/*                    Registry, movements, counts, reports
  /api/history, /api/export/*         Cross-location audit queries
  /api/admin/*                        Events from user administration
  /api/scenarios/*                    Demo data

SECURITY NOTE:
  No authentication middleware. The actor headers are trusted; put the
  server behind something that sets them.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderActorID, HeaderActorName},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/locations", func(r chi.Router) {
			r.Get("/", h.ListLocations)
			r.Post("/", h.CreateLocation)

			r.Route("/{loc}", func(r chi.Router) {
				r.Post("/deactivate", h.DeactivateLocation)
				r.Post("/receive", h.Receive)
				r.Post("/returns", h.Return)
				r.Get("/export/inventory.csv", h.ExportLocationInventory)
				r.Get("/export/counts.csv", h.ExportCounts)

				r.Route("/cases", func(r chi.Router) {
					r.Get("/", h.ListCases)
					r.Post("/", h.CreateCase)

					r.Route("/{code}", func(r chi.Router) {
						r.Get("/", h.GetCase)
						r.Put("/", h.RenameCase)
						r.Delete("/", h.ArchiveCase)

						r.Post("/move", h.Move)
						r.Post("/sell", h.Sell)
						r.Post("/missing", h.MarkMissing)
						r.Post("/relocate", h.Relocate)

						r.Get("/history", h.CaseHistory)
						r.Get("/counts", h.ListCounts)
						r.Post("/counts", h.RecordCount)

						r.Get("/reports/daily", h.DailyReport)
						r.Get("/reports/count-sheet", h.CountSheet)
						r.Get("/reports/variance", h.CountVariance)

						r.Get("/export/inventory.csv", h.ExportCaseInventory)
						r.Get("/export/activity.xlsx", h.ExportActivityLog)
						r.Get("/export/count-sheet.xlsx", h.ExportCountSheet)
					})
				})
			})
		})

		r.Get("/history", h.ListHistory)
		r.Get("/export/history.csv", h.ExportHistory)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/events", h.RecordAdminEvent)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}

// requestLogger writes one structured line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("actor_id", r.Header.Get(HeaderActorID)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
