package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"modpanel/api/auth"
	"modpanel/api/config"
	"modpanel/api/cron"
	"modpanel/api/function"
	"modpanel/api/handler"
	"modpanel/api/hub"
	"modpanel/api/storage"
	"modpanel/api/store"
)

var Version = "dev"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cfg := config.Load()

	db := store.New()
	if err := db.Seed(cfg.AdminUser, cfg.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("seed")
	}

	sessions := auth.NewSessions()
	sessions.OnSeen = db.Touch

	var files function.FileStore
	if cfg.S3Endpoint != "" {
		s3, err := storage.NewFiles(context.Background(), storage.Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("s3")
		}
		files = s3
		log.Info().Str("endpoint", cfg.S3Endpoint).Str("bucket", cfg.S3Bucket).Msg("uploads stored in s3")
	}
	exec := function.NewExecutor(files)

	// Parse allowed origins: always include localhost, plus configured extras.
	allowedOrigins := []string{"http://localhost:5000", "http://localhost:3000"}
	if cfg.AllowedOrigins != "" {
		for _, o := range strings.Split(cfg.AllowedOrigins, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws := hub.New(allowedOrigins)
	go ws.Run(ctx)

	keeper := cron.New(db, exec, cfg.Retention)
	if err := keeper.Start(cfg.HousekeepingSchedule); err != nil {
		log.Fatal().Err(err).Msg("housekeeping")
	}

	h := handler.New(db, sessions, exec, ws, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: true,
	}))
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"version":"` + Version + `"}`))
	})
	r.Mount("/", h.Router())

	srv := &http.Server{
		Addr:    cfg.BindAddr + ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("admin", cfg.AdminUser).Msgf("modpanel dev backend %s listening", Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")
	keeper.Stop()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	srv.Shutdown(shutdownCtx)
	cancel()
}
