package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/staysync/staysync/internal/api"
	"github.com/staysync/staysync/internal/auth"
	"github.com/staysync/staysync/internal/catalog"
	"github.com/staysync/staysync/internal/config"
	"github.com/staysync/staysync/internal/inventory"
	"github.com/staysync/staysync/internal/media"
	"github.com/staysync/staysync/internal/metrics"
	"github.com/staysync/staysync/internal/property"
	"github.com/staysync/staysync/internal/store"
	"github.com/staysync/staysync/internal/validate"
)

// tokenPurgeInterval is how often expired revoked tokens are dropped from the ledger.
const tokenPurgeInterval = time.Hour

func newServeCmd(a *app) *cobra.Command {
	var addr, adminEmail string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Addr = addr
			}
			return a.serve(cmd.Context(), adminEmail)
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides config)")
	cmd.Flags().StringVarP(&adminEmail, "admin", "u", "admin@staysync.local", "admin email created on first run")
	return cmd
}

// mediaStorage builds the configured image backend. The handler serves local
// files and is nil for S3, whose objects are served from the bucket.
func mediaStorage(ctx context.Context, cfg config.Media) (media.Storage, http.Handler, error) {
	switch cfg.Backend {
	case config.MediaS3:
		s, err := media.NewS3(ctx, media.S3Options{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PublicURL: cfg.S3.PublicURL,
		})
		return s, nil, err
	default:
		l, err := media.NewLocal(cfg.Dir, cfg.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		return l, l.Handler(), nil
	}
}

func (a *app) serve(ctx context.Context, adminEmail string) error {
	database, err := a.openLedger()
	if err != nil {
		return err
	}
	defer database.Close()
	slog.Info("database ready", "path", a.cfg.LedgerPath)

	docs, err := a.openDocs(database)
	if err != nil {
		return err
	}
	slog.Info("document store ready", "dir", a.cfg.DataDir, "backups", docs.BackupDir())

	jwtSecret := a.cfg.JWTSecret
	if jwtSecret == "" {
		// Generated and persisted on first run.
		jwtSecret, err = store.GetJWTSecret(ctx, database)
		if err != nil {
			return fmt.Errorf("loading JWT secret: %w", err)
		}
	}

	images, imageHandler, err := mediaStorage(ctx, a.cfg.Media)
	if err != nil {
		return fmt.Errorf("setting up media storage: %w", err)
	}

	v := validate.New()
	users := auth.NewService(docs, v)
	cat := catalog.NewService(docs, v)
	inv := inventory.NewManager(docs, cat, v, images)
	props := property.NewService(docs, inv, v, images)

	if err := bootstrapAdmin(ctx, users, adminEmail); err != nil {
		return err
	}

	apiRouter := api.NewRouter(api.Deps{
		DB:          database,
		JWTSecret:   jwtSecret,
		TokenExpiry: a.cfg.TokenExpiry,
		Users:       users,
		Catalog:     cat,
		Inventory:   inv,
		Properties:  props,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok\n"))
	})
	if imageHandler != nil {
		mux.Handle("GET "+a.cfg.Media.BaseURL+"/", imageHandler)
	}

	server := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           metrics.Middleware(api.LoggingMiddleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go purgeTokens(ctx, database)

	// fang cancels ctx on SIGINT/SIGTERM.
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", a.cfg.Addr, "media", a.cfg.Media.Backend)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}

// purgeTokens drops expired entries from the revoked token list until ctx ends.
func purgeTokens(ctx context.Context, database *sql.DB) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.PurgeExpiredTokens(ctx, database, now)
			if err != nil {
				slog.Error("purging revoked tokens failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("purged expired revoked tokens", "count", n)
			}
		}
	}
}
