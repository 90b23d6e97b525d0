// JSON REST surface for the ingestion service: CSV import, device and alert
// queries, fleet statistics and demo seeding.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ubicell-ingest/internal/core/devices"
	"ubicell-ingest/internal/core/ingest"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handler struct {
	store    *devices.Store
	importer *ingest.Importer
	maxRows  int
	lg       zerolog.Logger
}

// importRequest carries parsed tabular rows plus the AI-inference flag.
// Row values may be of any JSON type; they are stringified before import.
type importRequest struct {
	Rows  []map[string]any `json:"rows"`
	UseAI bool             `json:"use_ai"`
}

type importResponse struct {
	Success         bool     `json:"success"`
	BatchID         string   `json:"batch_id"`
	DevicesInserted int      `json:"devices_inserted"`
	AlertsInserted  int      `json:"alerts_inserted"`
	Errors          []string `json:"errors"`
	Warning         string   `json:"warning,omitempty"`
}

func New(store *devices.Store, importer *ingest.Importer, maxRows int, lg zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h := &Handler{store: store, importer: importer, maxRows: maxRows, lg: lg}

	// --- API Routes ---
	r.Route("/import", func(r chi.Router) {
		r.Post("/csv", h.handleImport)
	})
	r.Route("/devices", func(r chi.Router) {
		r.Get("/", h.handleListDevices)
		r.Get("/{deviceID}", h.handleGetDevice)
		r.Get("/{deviceID}/alerts", h.handleDeviceAlerts)
	})
	r.Route("/alerts", func(r chi.Router) {
		r.Get("/", h.handleListAlerts)
	})
	r.Route("/stats", func(r chi.Router) {
		r.Get("/devices", h.handleDeviceStats)
		r.Get("/alerts", h.handleAlertStats)
		r.Get("/kpis", h.handleLatestKPIs)
		r.Get("/kpis/history", h.handleKPIHistory)
		r.Post("/kpis", h.handleSnapshotKPIs)
	})
	r.Route("/admin", func(r chi.Router) {
		r.Post("/seed", h.handleSeed)
	})

	// --- Swagger Docs Route ---
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/index.html", http.StatusMovedPermanently)
	})
	r.Get("/docs/*", httpSwagger.WrapHandler)

	return r
}

// handleImport ingests a batch of tabular rows.
// @Summary      Import device rows
// @Description  Normalizes arbitrary tabular rows, infers alert events and upserts them into the store.
// @Tags         import
// @Accept       json
// @Produce      json
// @Param        batch  body      importRequest  true  "Rows and options"
// @Success      200    {object}  importResponse
// @Failure      400    {string}  string "Bad Request"
// @Failure      500    {string}  string "Internal Server Error"
// @Router       /import/csv [post]
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var req importRequest
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "body must be {\"rows\":[...], \"use_ai\":bool}", http.StatusBadRequest)
		return
	}
	if len(req.Rows) == 0 {
		http.Error(w, "no rows provided for import", http.StatusBadRequest)
		return
	}

	warning := ""
	rawRows := req.Rows
	if len(rawRows) > h.maxRows {
		warning = fmt.Sprintf("only first %d rows were processed (%d total provided)", h.maxRows, len(rawRows))
		h.lg.Warn().Int("max", h.maxRows).Int("provided", len(rawRows)).Msg("import truncated")
		rawRows = rawRows[:h.maxRows]
	}

	rows := make([]ingest.Row, 0, len(rawRows))
	for _, raw := range rawRows {
		if len(raw) == 0 {
			continue
		}
		row := make(ingest.Row, len(raw))
		for k, v := range raw {
			row[k] = stringify(v)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		http.Error(w, "no valid rows found after normalization", http.StatusBadRequest)
		return
	}

	res, err := h.importer.Import(r.Context(), rows, req.UseAI)
	if err != nil {
		h.lg.Error().Err(err).Msg("import")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, importResponse{
		Success:         true,
		BatchID:         res.BatchID,
		DevicesInserted: res.DevicesInserted,
		AlertsInserted:  res.AlertsInserted,
		Errors:          res.Errors,
		Warning:         warning,
	})
}

// stringify flattens a decoded JSON value to the string form the normalizer
// expects. nil becomes the empty string.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// handleListDevices lists all devices, most recently updated first.
// @Summary      List devices
// @Tags         devices
// @Produce      json
// @Success      200  {array}   devices.Device
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /devices [get]
func (h *Handler) handleListDevices(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListDevices(r.Context())
	if err != nil {
		h.lg.Error().Err(err).Msg("list devices")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, list)
}

// handleGetDevice returns one device by its controller ID.
// @Summary      Get a device
// @Tags         devices
// @Produce      json
// @Param        deviceID  path      string  true  "Device ID"
// @Success      200  {object}  devices.Device
// @Failure      404  {string}  string "Not Found"
// @Router       /devices/{deviceID} [get]
func (h *Handler) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	dev, err := h.store.GetDevice(r.Context(), deviceID)
	if errors.Is(err, devices.ErrNotFound) {
		http.Error(w, "device '"+deviceID+"' not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.lg.Error().Err(err).Msg("get device")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dev)
}

// handleDeviceAlerts lists alert history for one device.
// @Summary      List alerts for a device
// @Tags         devices
// @Produce      json
// @Param        deviceID  path      string  true  "Device ID"
// @Success      200  {array}   devices.Alert
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /devices/{deviceID}/alerts [get]
func (h *Handler) handleDeviceAlerts(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListAlerts(r.Context(), devices.AlertFilter{
		DeviceID: chi.URLParam(r, "deviceID"),
	})
	if err != nil {
		h.lg.Error().Err(err).Msg("device alerts")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, list)
}

// handleListAlerts lists alerts, newest first, with optional filters.
// @Summary      List alerts
// @Tags         alerts
// @Produce      json
// @Param        device_id  query     string  false  "Filter by device"
// @Param        type       query     string  false  "Filter by alert type"
// @Param        severity   query     string  false  "Filter by severity"
// @Param        status     query     string  false  "Filter by status"
// @Success      200  {array}   devices.Alert
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /alerts [get]
func (h *Handler) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.store.ListAlerts(r.Context(), devices.AlertFilter{
		DeviceID:  q.Get("device_id"),
		AlertType: q.Get("type"),
		Severity:  q.Get("severity"),
		Status:    q.Get("status"),
	})
	if err != nil {
		h.lg.Error().Err(err).Msg("list alerts")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, list)
}

// handleDeviceStats summarizes the fleet by node status.
// @Summary      Device statistics
// @Tags         stats
// @Produce      json
// @Success      200  {object}  devices.DeviceStats
// @Router       /stats/devices [get]
func (h *Handler) handleDeviceStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.DeviceStatistics(r.Context())
	if err != nil {
		h.lg.Error().Err(err).Msg("device stats")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, st)
}

// handleAlertStats summarizes alert volume and breakdowns.
// @Summary      Alert statistics
// @Tags         stats
// @Produce      json
// @Success      200  {object}  devices.AlertStats
// @Router       /stats/alerts [get]
func (h *Handler) handleAlertStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.AlertStatistics(r.Context())
	if err != nil {
		h.lg.Error().Err(err).Msg("alert stats")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, st)
}

// handleLatestKPIs returns the most recent KPI snapshot.
// @Summary      Latest KPI snapshot
// @Tags         stats
// @Produce      json
// @Success      200  {object}  devices.Kpi
// @Failure      404  {string}  string "Not Found"
// @Router       /stats/kpis [get]
func (h *Handler) handleLatestKPIs(w http.ResponseWriter, r *http.Request) {
	k, err := h.store.LatestKPIs(r.Context())
	if errors.Is(err, devices.ErrNotFound) {
		http.Error(w, "no KPI snapshots yet", http.StatusNotFound)
		return
	}
	if err != nil {
		h.lg.Error().Err(err).Msg("latest kpis")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, k)
}

// handleKPIHistory returns recent KPI snapshots.
// @Summary      KPI history
// @Tags         stats
// @Produce      json
// @Param        limit  query     int  false  "Max snapshots (default 24)"
// @Success      200  {array}   devices.Kpi
// @Router       /stats/kpis/history [get]
func (h *Handler) handleKPIHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.store.KPIHistory(r.Context(), limit)
	if err != nil {
		h.lg.Error().Err(err).Msg("kpi history")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, list)
}

// handleSnapshotKPIs derives and stores a fresh KPI snapshot.
// @Summary      Take a KPI snapshot
// @Tags         stats
// @Produce      json
// @Success      200  {object}  devices.Kpi
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /stats/kpis [post]
func (h *Handler) handleSnapshotKPIs(w http.ResponseWriter, r *http.Request) {
	k, err := h.store.SnapshotKPIs(r.Context())
	if err != nil {
		h.lg.Error().Err(err).Msg("snapshot kpis")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, k)
}

// handleSeed populates an empty database with demo data.
// @Summary      Seed demo data
// @Tags         admin
// @Produce      json
// @Success      200  {string}  string "OK"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /admin/seed [post]
func (h *Handler) handleSeed(w http.ResponseWriter, r *http.Request) {
	if err := h.store.SeedDemoData(r.Context()); err != nil {
		h.lg.Error().Err(err).Msg("seed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
