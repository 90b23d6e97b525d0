// One-shot seeder: loads Ubicell CSV exports into the database and records a
// KPI snapshot. With no file arguments it seeds the demo fleet instead.
package main

import (
	"context"
	"os"

	gormdb "ubicell-ingest/internal/adapters/gorm"
	"ubicell-ingest/internal/config"
	"ubicell-ingest/internal/core/devices"
	"ubicell-ingest/internal/core/ingest"

	"github.com/rs/zerolog"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().
		Str("svc", "ubicell-seed").Logger()

	cfg := config.MustLoad()

	db, err := gormdb.New(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect")
	}

	store := devices.NewStore(db, log)
	ctx := context.Background()

	if len(os.Args) < 2 {
		if err := store.SeedDemoData(ctx); err != nil {
			log.Fatal().Err(err).Msg("seed demo data")
		}
		return
	}

	importer := ingest.NewImporter(store, nil, nil, log)

	for _, path := range os.Args[1:] {
		f, err := os.Open(path)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("open csv")
			continue
		}
		rows, err := ingest.ReadCSV(f)
		f.Close()
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("parse csv")
			continue
		}

		res, err := importer.Import(ctx, rows, false)
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("import")
		}
		log.Info().
			Str("file", path).
			Int("devices", res.DevicesInserted).
			Int("alerts", res.AlertsInserted).
			Int("errors", len(res.Errors)).
			Msg("file imported")
		for _, msg := range res.Errors {
			log.Warn().Str("file", path).Msg(msg)
		}
	}

	if _, err := store.SnapshotKPIs(ctx); err != nil {
		log.Fatal().Err(err).Msg("kpi snapshot")
	}
	log.Info().Msg("seeding complete")
}
