package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"shiftboard/api/internal/app"
	"shiftboard/api/internal/cache"
	"shiftboard/api/internal/config"
	"shiftboard/api/internal/editor"
	"shiftboard/api/internal/export"
	"shiftboard/api/internal/search"
	"shiftboard/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)

	manager := editor.New(dataStore, cfg.WriteTimeout)
	if err := manager.Load(ctx); err != nil {
		log.Fatalf("initial matrix load failed: %v", err)
	}
	go manager.Run(ctx, cfg.RefreshInterval)

	// Redis is optional; without it schedule reads hit the editor directly.
	var responseCache *cache.RedisCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		responseCache, err = cache.New(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			log.Printf("WARNING: redis unavailable, running uncached: %v", err)
			responseCache = nil
		} else {
			defer responseCache.Close()
		}
	}

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts)

	exportService := export.NewService(manager)

	service := app.New(cfg, dataStore, manager, responseCache, searchService, exportService)
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Shiftboard API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
