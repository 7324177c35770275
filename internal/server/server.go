// Package server assembles the engine and its HTTP surface.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/pagegrid/pagegrid/internal/dispatch"
	"github.com/pagegrid/pagegrid/internal/handler"
	"github.com/pagegrid/pagegrid/internal/history"
	"github.com/pagegrid/pagegrid/internal/persist"
	"github.com/pagegrid/pagegrid/internal/slot"
	"github.com/pagegrid/pagegrid/internal/types"
	"github.com/pagegrid/pagegrid/internal/wire"
)

// Config holds server configuration.
type Config struct {
	ListenAddr string
	Dispatcher *dispatch.Dispatcher
	Backend    persist.Backend
	Slots      *slot.Registry
	History    history.Store
	Log        zerolog.Logger
}

// slotProvider resolves slot configuration per entity by looking up the
// entity's type in the backend. Types are cached; an entity never changes
// type mid-session.
type slotProvider struct {
	backend  persist.Backend
	registry *slot.Registry

	mu    sync.RWMutex
	types map[string]string
}

// NewSlotProvider builds the dispatch.SlotProvider used in production.
func NewSlotProvider(backend persist.Backend, registry *slot.Registry) dispatch.SlotProvider {
	return &slotProvider{
		backend:  backend,
		registry: registry,
		types:    make(map[string]string),
	}
}

func (p *slotProvider) ConfigFor(ctx context.Context, entityID, slotName string) (types.SlotConfig, bool) {
	p.mu.RLock()
	entityType, ok := p.types[entityID]
	p.mu.RUnlock()

	if !ok {
		t, err := p.backend.EntityType(ctx, entityID)
		if err != nil {
			// Unknown entity or empty type: no configuration, mutation
			// proceeds unchecked.
			return types.SlotConfig{}, false
		}
		entityType = t
		p.mu.Lock()
		p.types[entityID] = t
		p.mu.Unlock()
	}
	if entityType == "" {
		return types.SlotConfig{}, false
	}
	return p.registry.ConfigFor(entityType, slotName)
}

// Run starts the HTTP server with all routes registered and shuts it down
// when ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(cfg.Log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	eh := handler.NewEntityHandler(cfg.Dispatcher, cfg.Backend, cfg.Slots)
	oh := handler.NewOperationHandler(cfg.Dispatcher)
	hh := handler.NewHistoryHandler(cfg.History)
	sh := handler.NewSlotConfigHandler(cfg.Slots)
	wh := wire.NewHandler(cfg.Dispatcher, cfg.Log)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/entities/{entityID}", eh.Get)
		r.Put("/entities/{entityID}", eh.Save)
		r.Post("/entities/{entityID}/operations", oh.Publish)
		r.Post("/entities/{entityID}/operations/batch", oh.PublishBatch)
		r.Get("/entities/{entityID}/history", hh.Query)
		r.Get("/entity-types", sh.ListEntityTypes)
		r.Get("/entity-types/{entityType}/slots", sh.ListSlots)
	})
	r.Get("/v1/feed", wh.ServeHTTP)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	cfg.Log.Info().Str("addr", cfg.ListenAddr).Msg("starting server")
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// requestLogger logs one line per request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}
