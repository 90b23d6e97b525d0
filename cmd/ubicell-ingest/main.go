package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	gormdb "ubicell-ingest/internal/adapters/gorm"
	natspub "ubicell-ingest/internal/adapters/nats"
	"ubicell-ingest/internal/config"
	"ubicell-ingest/internal/core/devices"
	"ubicell-ingest/internal/core/ingest"
	"ubicell-ingest/internal/core/llm"
	api "ubicell-ingest/internal/delivery/http"

	"github.com/rs/zerolog"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().
		Str("svc", "ubicell-ingest").Logger()

	cfg := config.MustLoad()
	log.Info().Str("listen", cfg.ListenAddr).Msg("boot")

	db, err := gormdb.New(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect")
	}

	store := devices.NewStore(db, log)

	// Both the classifier and the publisher are optional; nil disables them.
	var classifier ingest.Classifier
	if c := llm.New(cfg.LLMAPIURL, cfg.LLMAPIKey, cfg.LLMModel, log); c != nil {
		classifier = c
	}

	var publisher ingest.AlertPublisher
	if cfg.NATSURL != "" {
		pub, err := natspub.NewPublisher(cfg.NATSURL, cfg.AlertSubject, cfg.AlertStream, log)
		if err != nil {
			log.Fatal().Err(err).Msg("nats connect")
		}
		defer pub.Close()
		publisher = pub
	}

	importer := ingest.NewImporter(store, classifier, publisher, log)

	handler := api.New(store, importer, cfg.MaxImportRows, log)
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: handler}

	// graceful-shutdown
	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("listen", cfg.ListenAddr).Msg("HTTP up")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http")
		}
	}()

	<-ctx.Done()
	_ = srv.Shutdown(context.Background())
	log.Info().Msg("bye")
}
