package ingest

import (
	"context"
	"fmt"

	"ubicell-ingest/internal/core/devices"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DeviceStore is the slice of the repository the importer needs.
type DeviceStore interface {
	UpsertDevice(ctx context.Context, dev *devices.Device) error
	InsertAlert(ctx context.Context, a *devices.Alert) error
}

// AlertPublisher fans inserted alert events out to interested consumers.
// Publishing is best-effort; failures never affect the import.
type AlertPublisher interface {
	PublishAlert(a devices.Alert) error
}

// Result is the aggregate outcome of one import batch.
type Result struct {
	BatchID         string   `json:"batch_id"`
	DevicesInserted int      `json:"devices_inserted"`
	AlertsInserted  int      `json:"alerts_inserted"`
	Errors          []string `json:"errors"`
}

// Importer runs raw rows through normalize → infer → persist. Rows are
// processed in input order, each one isolated: a bad row lands in the error
// list and the batch carries on. Only a missing store is fatal.
type Importer struct {
	store      DeviceStore
	classifier Classifier
	publisher  AlertPublisher
	lg         zerolog.Logger
}

func NewImporter(store DeviceStore, classifier Classifier, publisher AlertPublisher, lg zerolog.Logger) *Importer {
	return &Importer{
		store:      store,
		classifier: classifier,
		publisher:  publisher,
		lg:         lg.With().Str("component", "importer").Logger(),
	}
}

// Import persists a batch of raw rows and reports counts plus per-row errors.
func (imp *Importer) Import(ctx context.Context, rows []Row, useAI bool) (Result, error) {
	res := Result{
		BatchID: uuid.NewString(),
		Errors:  []string{},
	}
	if imp.store == nil {
		return res, fmt.Errorf("import: no device store configured")
	}

	lg := imp.lg.With().Str("batch_id", res.BatchID).Logger()
	lg.Info().Int("rows", len(rows)).Bool("use_ai", useAI).Msg("import started")

	for i, row := range rows {
		dev := NormalizeRow(row)
		if dev.DeviceID == "" {
			// NormalizeRow synthesizes an ID, so this only trips on an
			// empty row.
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: no resolvable device id", i+1))
			continue
		}

		if err := imp.store.UpsertDevice(ctx, &dev); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d (%s): %v", i+1, dev.DeviceID, err))
			continue
		}
		res.DevicesInserted++

		alert := InferAlert(ctx, dev, row, useAI, imp.classifier)
		if alert == nil {
			continue
		}
		if err := imp.store.InsertAlert(ctx, alert); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d (%s): %v", i+1, dev.DeviceID, err))
			continue
		}
		res.AlertsInserted++

		if imp.publisher != nil {
			if err := imp.publisher.PublishAlert(*alert); err != nil {
				lg.Warn().Err(err).Str("device_id", alert.DeviceID).Msg("alert publish failed")
			}
		}
	}

	lg.Info().
		Int("devices", res.DevicesInserted).
		Int("alerts", res.AlertsInserted).
		Int("errors", len(res.Errors)).
		Msg("import finished")
	return res, nil
}
