package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"frpops/internal/domain/auth"
	"frpops/internal/domain/directory"
	"frpops/internal/platform/config"
	"frpops/internal/platform/metrics"
	"frpops/internal/platform/store"
	adminhandler "frpops/internal/transport/http/handlers/admin"
	authhandler "frpops/internal/transport/http/handlers/auth"
	"frpops/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	Store   store.Client
	Manager *directory.Manager
	Router  http.Handler
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store open failed: %w", err)
	}

	manager := directory.NewManager(client)
	if cfg.SeedRootPassword != "" {
		hash, err := auth.HashPassword(cfg.SeedRootPassword)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		if err := manager.EnsureRootUser(ctx, cfg.SeedRootUsername, hash); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("seed failed: %w", err)
		}
	}
	if err := manager.Load(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	collector := metrics.New()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx); err != nil {
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metricsz", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(collector.Snapshot())
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authHandler := authhandler.NewHandler(client, cfg.JWTSecret, cfg.SessionTTL)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)
		r.Get("/me", authHandler.HandleMe)

		adminHandler := adminhandler.NewHandler(manager, client)
		adminHandler.RegisterRoutes(r)
	})

	return &App{Config: cfg, Store: client, Manager: manager, Router: router}, nil
}

func (a *App) Close() {
	_ = a.Store.Close()
}

func Run() {
	cfg := config.Load()
	app, err := New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	log.Printf("frpops server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, app.Router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (store.Client, error) {
	switch cfg.StoreDriver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.DatabaseURL)
	case "sqlite":
		return store.NewSQLite(ctx, cfg.SQLitePath)
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
