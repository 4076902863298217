// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/helloakshay27/hi-society-assets/internal/assetapi"
	"github.com/helloakshay27/hi-society-assets/internal/form"
	"github.com/helloakshay27/hi-society-assets/internal/handler"
	"github.com/helloakshay27/hi-society-assets/internal/notify"
	"github.com/helloakshay27/hi-society-assets/internal/prefs"
	"github.com/helloakshay27/hi-society-assets/internal/wire"
)

const (
	sessionMaxAge      = 4 * time.Hour
	sessionIdleTimeout = 30 * time.Minute
	cleanupInterval    = 5 * time.Minute
)

// Config holds server configuration.
type Config struct {
	Port     int
	Upstream *assetapi.Client
	Prefs    prefs.Store
}

// Run starts the HTTP server with all routes registered. It blocks
// until the context is cancelled or the listener fails.
func Run(ctx context.Context, cfg Config) error {
	sessions := form.NewManager(sessionMaxAge, sessionIdleTimeout)
	bus := notify.New(256)
	bus.Subscribe("log", notify.NewLogConsumer())
	bus.Start(ctx)

	fh := handler.NewFormHandler(sessions, cfg.Upstream, bus)
	lh := handler.NewLookupHandler(cfg.Upstream)
	ph := handler.NewPrefsHandler(cfg.Prefs)
	ws := wire.NewHandler(sessions, bus)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/assets/{assetID}/form", fh.Create)

		r.Route("/forms", func(r chi.Router) {
			r.Get("/live", ws.ServeHTTP)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", fh.Get)
				r.Delete("/", fh.Close)
				r.Post("/fields", fh.ApplyField)
				r.Post("/custom-fields", fh.AddCustomField)
				r.Delete("/custom-fields", fh.RemoveCustomField)
				r.Post("/measures", fh.SetMeasures)
				r.Post("/attachments/{bucket}", fh.QueueAttachment)
				r.Get("/attachments/{bucket}", fh.ListAttachments)
				r.Delete("/attachments/{bucket}/{fileID}", fh.RemoveAttachment)
				r.Post("/validate", fh.Validate)
				r.Post("/submit", fh.Submit)
			})
		})

		r.Get("/attachments/{id}/download", fh.DownloadAttachment)
		r.Get("/lookups/locations", lh.Locations)
		r.Get("/lookups/{kind}", lh.Get)
		r.Get("/prefs", ph.All)
		r.Put("/prefs/{key}", ph.Set)
	})

	// Expired sessions are swept in the background; Get also drops them
	// lazily on access.
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sessions.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("starting server on %s", addr)

	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
		bus.Wait()
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
