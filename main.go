package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"enclaveai-backend/internal/api"
	"enclaveai-backend/internal/audit"
	"enclaveai-backend/internal/backend"
	"enclaveai-backend/internal/cloud"
	"enclaveai-backend/internal/config"
	"enclaveai-backend/internal/data"
	"enclaveai-backend/internal/profile"
	"enclaveai-backend/internal/session"
	"enclaveai-backend/internal/storage"
	"enclaveai-backend/internal/storage/memory"
	"enclaveai-backend/internal/storage/redis"
	"enclaveai-backend/internal/storage/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	durable, err := openDurableStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open session store: %v", err)
	}
	defer durable.Close()

	volatile := memory.New()
	defer volatile.Close()

	backendClient, err := backend.Connect(ctx, cfg.Backend, cfg.DBMaxConnections(), 2*time.Minute)
	if err != nil {
		log.Fatalf("Failed to connect to backend: %v", err)
	}
	defer backendClient.Close()
	log.Println("Backend connection established")

	var cloudClient *cloud.Client
	if cfg.Cloud.Region != "" {
		cloudClient, err = cloud.New(ctx, cfg.Cloud)
		if err != nil {
			log.Fatalf("Failed to initialize model provider client: %v", err)
		}
		log.Printf("Model provider client ready (region %s)", cloudClient.Region())
	} else {
		log.Println("Model provider not configured, admin instance views disabled")
	}

	sessions := session.New(session.Config{
		Durable:        durable,
		Volatile:       volatile,
		Duration:       cfg.SessionDuration(),
		OverrideSecret: []byte(cfg.Session.OverrideSecret),
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	if len(cfg.CORSAllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.CORSAllowedOrigins,
			AllowCredentials: true,
		}))
	}
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	api.RegisterRoutes(e.Group("/api"), api.Deps{
		Sessions:         sessions,
		Backend:          backendClient,
		Profiles:         profile.New(backendClient, sessions),
		Data:             data.New(backendClient, sessions),
		Cloud:            cloudClient,
		Audit:            audit.New(backendClient),
		EmergencyKeyHash: cfg.Session.EmergencyKeyHash,
	})

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("Starting server on %s", cfg.ServerAddr)
	if err := e.Start(cfg.ServerAddr); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}

// openDurableStore picks the configured session store backend
func openDurableStore(ctx context.Context, cfg *config.Config) (storage.KV, error) {
	switch cfg.Session.Store {
	case "redis":
		log.Printf("Using redis session store")
		return redis.New(ctx, cfg.Session.RedisURL)
	default:
		log.Printf("Using sqlite session store at %s", cfg.Session.SQLitePath)
		return sqlite.Open(cfg.Session.SQLitePath)
	}
}
