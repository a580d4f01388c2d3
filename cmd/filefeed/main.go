package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"filefeed/internal/api"
	"filefeed/internal/config"
	"filefeed/internal/event"
	"filefeed/internal/ingest"
	"filefeed/internal/transport"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	configPath := flag.String("config", "config.yml", "path to pipeline config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	sender, closeSender := buildSender(cfg)
	defer closeSender()

	service, err := ingest.New(cfg, sender)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build pipeline")
	}
	if err := service.Start(); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.FileFolderPath).Msg("failed to start pipeline")
	}

	router := setupRouter()
	api.NewAPI(service).RegisterRoutes(router)

	const (
		readHeaderTimeout = 5 * time.Second
		shutdownTimeout   = 10 * time.Second
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdownSignal()

	gracefulShutdown(srv, service, shutdownTimeout)
}

func setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(api.ZerologLogger())
	return r
}

// buildSender picks the live websocket transport when a target is
// configured, otherwise an in-memory buffer so the pipeline can run
// (and be inspected) without a receiving system.
func buildSender(cfg config.Config) (event.Sender, func()) {
	if cfg.TargetURL == "" {
		log.Warn().Msg("no targetURL configured, buffering segments in memory")
		return event.NewBuffer(), func() {}
	}
	ws, err := transport.DialWS(cfg.TargetURL)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.TargetURL).Msg("failed to reach event target")
	}
	return ws, func() {
		if err := ws.Close(); err != nil {
			log.Warn().Err(err).Msg("sender close warning")
		}
	}
}

func waitForShutdownSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")
}

func gracefulShutdown(srv *http.Server, service *ingest.Service, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown warning")
	}

	if !service.Stop(ctx) {
		log.Warn().Msg("in-flight tasks did not finish before timeout")
	}
	log.Info().Msg("pipeline exited cleanly")
}
