package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/syllog-ai/syllog/internal/api/handlers"
	mw "github.com/syllog-ai/syllog/internal/api/middleware"
	"github.com/syllog-ai/syllog/internal/config"
	"github.com/syllog-ai/syllog/internal/domain"
	"github.com/syllog-ai/syllog/internal/kb"
	"github.com/syllog-ai/syllog/internal/reason"
	"github.com/syllog-ai/syllog/internal/service"
	"github.com/syllog-ai/syllog/internal/store"
)

// App holds the router and the shared knowledge base services.
type App struct {
	Router    *chi.Mux
	Engine    *service.EngineService
	Cases     *service.CaseService
	startTime time.Time
	metrics   *mw.MetricsCollector
}

// NewApp wires stores, services, and handlers into a router. db may be nil,
// in which case snapshot and case endpoints run without persistence.
func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	base := kb.NewWithConfig(logger, kb.Config{
		MaxContexts:          config.MaxContexts(),
		UncertaintyThreshold: config.UncertaintyThreshold(),
		CacheSize:            config.QueryCacheSize(),
	})
	registry := reason.NewRegistry(logger)

	// Stores
	var snapshotStore domain.SnapshotStore
	var caseStore domain.CaseStore
	if db != nil {
		snapshotStore = store.NewSnapshotStore(db)
		caseStore = store.NewCaseStore(db)
	}

	// Services
	engineSvc := service.NewEngineService(base, registry, logger)
	snapshotSvc := service.NewSnapshotService(base, snapshotStore, logger)
	caseSvc := service.NewCaseService(base, caseStore, logger)

	// Handlers
	kbHandler := handlers.NewKBHandler(engineSvc)
	reasonHandler := handlers.NewReasonHandler(engineSvc)
	snapshotHandler := handlers.NewSnapshotHandler(snapshotSvc)
	caseHandler := handlers.NewCaseHandler(caseSvc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Engine:    engineSvc,
		Cases:     caseSvc,
		startTime: time.Now(),
		metrics:   mw.NewMetricsCollector(),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.metrics.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		// Facts
		r.Route("/facts", func(r chi.Router) {
			r.Get("/", kbHandler.ListFacts)
			r.Post("/", kbHandler.AddFact)
			r.Post("/probabilistic", kbHandler.AddProbabilisticFact)
			r.Post("/temporal", kbHandler.AddTemporalFact)
			r.Delete("/{name}", kbHandler.RetractFact)
		})

		// Rules
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", kbHandler.ListRules)
			r.Post("/", kbHandler.AddRule)
		})

		// Context-scoped facts
		r.Post("/contexts/{context}/facts", kbHandler.AddContextFact)

		// Training examples for rule induction
		r.Post("/examples", kbHandler.AddExample)

		// Queries and reasoning
		r.Get("/query", kbHandler.Query)
		r.Get("/statistics", kbHandler.Statistics)
		r.Post("/reason", reasonHandler.Reason)
		r.Get("/strategies", reasonHandler.Strategies)

		// Snapshots
		r.Route("/snapshots", func(r chi.Router) {
			r.Get("/", snapshotHandler.List)
			r.Route("/{name}", func(r chi.Router) {
				r.Post("/", snapshotHandler.Save)
				r.Post("/restore", snapshotHandler.Restore)
				r.Delete("/", snapshotHandler.Delete)
			})
		})

		// Case library for analogical reasoning
		r.Route("/cases", func(r chi.Router) {
			r.Post("/", caseHandler.Create)
			r.Post("/nearest", caseHandler.Nearest)
			r.Get("/{id}", caseHandler.Get)
			r.Delete("/{id}", caseHandler.Delete)
		})
	})

	return app
}

// NewRouter returns just the chi.Mux for callers that do not need the App.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if db == nil {
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "storage": "none"})
			return
		}

		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)
		stats := app.Engine.Statistics()
		requests, errs := app.metrics.Totals()

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  requests,
			"error_count":    errs,
			"routes":         app.metrics.PerRoute(),
			"goroutines":     runtime.NumGoroutine(),
			"knowledge_base": stats,
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores satisfy interfaces at compile time.
var (
	_ domain.SnapshotStore = (*store.SnapshotStore)(nil)
	_ domain.CaseStore     = (*store.CaseStore)(nil)
)
