package app

import (
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	httpxmiddleware "markdesk-server/internal/httpx/middleware"
	"markdesk-server/internal/httpx/response"
)

// ServerStats holds server statistics for health checks.
type ServerStats struct {
	Status              string           `json:"status"`
	Uptime              string           `json:"uptime"`
	Goroutines          int              `json:"goroutines"`
	MemoryMB            uint64           `json:"memoryMB"`
	Environment         string           `json:"environment"`
	WorkspaceConfigured bool             `json:"workspaceConfigured"`
	Counters            map[string]int64 `json:"counters"`
}

// Router builds the full HTTP routing tree.
func (a *ServerApp) Router() (http.Handler, error) {
	if a == nil {
		return nil, errors.New("server app is nil")
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(httpxmiddleware.Observe(a.Metrics))
	r.Use(httpxmiddleware.Recover)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.Config.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5, "application/json"))

	r.Get("/health", a.Health)
	r.Method(http.MethodGet, "/metrics", a.Metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(chimw.RequestSize(a.Config.MaxRequestBytes))
		r.Use(a.Limiter.Middleware(a.rateLimited))

		a.SettingsHandler.Routes(r)
		a.FileHandler.Routes(r)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return r, nil
}

// Health handles GET /health.
func (a *ServerApp) Health(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	_, configured := a.Registry.Get()
	stats := ServerStats{
		Status:              "ok",
		Uptime:              time.Since(a.startedAt).Round(time.Second).String(),
		Goroutines:          runtime.NumGoroutine(),
		MemoryMB:            memStats.Alloc / 1024 / 1024,
		Environment:         a.Config.Env,
		WorkspaceConfigured: configured,
		Counters:            a.Metrics.Snapshot(),
	}

	response.JSON(w, http.StatusOK, stats)
}

func (a *ServerApp) rateLimited(w http.ResponseWriter, r *http.Request) {
	a.Metrics.RecordRateLimitHit()
	response.TooManyRequests(w, r)
}
