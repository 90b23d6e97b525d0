package devices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// Store is the gorm-backed repository for devices, alerts and KPI snapshots.
// Alert rows are insert-only: re-importing the same source data produces new
// alert rows on purpose (every import is a fresh observation), while device
// rows stay unique per DeviceID.
type Store struct {
	db *gorm.DB
	lg zerolog.Logger
}

func NewStore(db *gorm.DB, lg zerolog.Logger) *Store {
	return &Store{
		db: db,
		lg: lg.With().Str("component", "store").Logger(),
	}
}

// UpsertDevice inserts the device or, when DeviceID already exists, updates
// the row in place. Only fields carried by dev are overwritten; fields absent
// from the incoming record keep their stored value. LastUpdate is refreshed
// either way.
func (s *Store) UpsertDevice(ctx context.Context, dev *Device) error {
	if dev.DeviceID == "" {
		return fmt.Errorf("device id is required for upsert")
	}

	now := time.Now().UTC()
	dev.LastUpdate = now

	set := dev.changeSet()
	set["last_update"] = now

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.Assignments(set),
	}).Create(dev).Error
	if err != nil {
		return fmt.Errorf("upsert device %s: %w", dev.DeviceID, err)
	}
	return nil
}

// changeSet collects the populated columns of a device record. Empty strings
// mean the source row never carried the field, so they are left out.
func (d *Device) changeSet() map[string]any {
	set := make(map[string]any)
	cols := map[string]string{
		"node_name":        d.NodeName,
		"latitude":         d.Latitude,
		"longitude":        d.Longitude,
		"alert_type":       d.AlertType,
		"alert_value":      d.AlertValue,
		"alert_duration":   d.AlertDuration,
		"burn_hours":       d.BurnHours,
		"light_status":     d.LightStatus,
		"node_status":      d.NodeStatus,
		"network_type":     d.NetworkType,
		"firmware_version": d.FirmwareVersion,
		"hardware_version": d.HardwareVersion,
		"install_date":     d.InstallDate,
		"utility":          d.Utility,
		"timezone":         d.Timezone,
		"tags":             d.Tags,
	}
	for col, v := range cols {
		if v != "" {
			set[col] = v
		}
	}
	return set
}

// InsertAlert appends one alert event. No deduplication happens here.
func (s *Store) InsertAlert(ctx context.Context, a *Alert) error {
	if a.AlertType == "" {
		return fmt.Errorf("alert type is required")
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	if a.Severity == "" {
		a.Severity = SeverityMedium
	}
	if a.Status == "" {
		a.Status = StatusActive
	}
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("insert alert for %s: %w", a.DeviceID, err)
	}
	return nil
}

// ---- device queries ----

func (s *Store) ListDevices(ctx context.Context) ([]Device, error) {
	var out []Device
	err := s.db.WithContext(ctx).Order("last_update DESC").Find(&out).Error
	return out, err
}

func (s *Store) GetDevice(ctx context.Context, deviceID string) (*Device, error) {
	var dev Device
	err := s.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&dev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dev, nil
}

func (s *Store) DevicesByStatus(ctx context.Context, status string) ([]Device, error) {
	var out []Device
	err := s.db.WithContext(ctx).Where("node_status = ?", status).Find(&out).Error
	return out, err
}

func (s *Store) DevicesWithAlerts(ctx context.Context) ([]Device, error) {
	var out []Device
	err := s.db.WithContext(ctx).
		Where("alert_type IS NOT NULL AND alert_type != ''").
		Find(&out).Error
	return out, err
}

func (s *Store) CountDevices(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Device{}).Count(&n).Error
	return n, err
}

// ---- alert queries ----

// AlertFilter narrows ListAlerts. Zero values mean "any".
type AlertFilter struct {
	DeviceID  string
	AlertType string
	Severity  string
	Status    string
}

func (s *Store) ListAlerts(ctx context.Context, f AlertFilter) ([]Alert, error) {
	q := s.db.WithContext(ctx).Order("timestamp DESC")
	if f.DeviceID != "" {
		q = q.Where("device_id = ?", f.DeviceID)
	}
	if f.AlertType != "" {
		q = q.Where("alert_type = ?", f.AlertType)
	}
	if f.Severity != "" {
		q = q.Where("severity = ?", f.Severity)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var out []Alert
	err := q.Find(&out).Error
	return out, err
}

func (s *Store) ActiveAlerts(ctx context.Context) ([]Alert, error) {
	return s.ListAlerts(ctx, AlertFilter{Status: StatusActive})
}

// ---- statistics ----

// DeviceStatistics counts the fleet by node status. A node is offline when it
// last reported OFFLINE or POWER LOSS; those tokens come verbatim from the
// Ubicell export.
func (s *Store) DeviceStatistics(ctx context.Context) (*DeviceStats, error) {
	var st DeviceStats
	db := s.db.WithContext(ctx).Model(&Device{})
	if err := db.Count(&st.Total).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&Device{}).
		Where("node_status = ?", "ONLINE").Count(&st.Online).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&Device{}).
		Where("node_status IN ?", []string{"OFFLINE", "POWER LOSS"}).Count(&st.Offline).Error; err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) AlertStatistics(ctx context.Context) (*AlertStats, error) {
	var st AlertStats
	if err := s.db.WithContext(ctx).Model(&Alert{}).Count(&st.Total).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&Alert{}).
		Where("status = ?", StatusActive).Count(&st.Active).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&Alert{}).
		Where("status = ?", StatusResolved).Count(&st.Resolved).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&Alert{}).
		Select("alert_type, count(*) as count").
		Group("alert_type").Scan(&st.ByType).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&Alert{}).
		Select("severity, count(*) as count").
		Group("severity").Scan(&st.BySeverity).Error; err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) LatestKPIs(ctx context.Context) (*Kpi, error) {
	var k Kpi
	err := s.db.WithContext(ctx).Order("timestamp DESC").First(&k).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (s *Store) KPIHistory(ctx context.Context, limit int) ([]Kpi, error) {
	if limit <= 0 {
		limit = 24
	}
	var out []Kpi
	err := s.db.WithContext(ctx).Order("timestamp DESC").Limit(limit).Find(&out).Error
	return out, err
}

// SnapshotKPIs derives a fresh KPI row from the current device and alert
// tables and inserts it.
func (s *Store) SnapshotKPIs(ctx context.Context) (*Kpi, error) {
	devStats, err := s.DeviceStatistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("device statistics: %w", err)
	}
	alertStats, err := s.AlertStatistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("alert statistics: %w", err)
	}

	countActiveByType := func(alertType string) (int64, error) {
		var n int64
		err := s.db.WithContext(ctx).Model(&Alert{}).
			Where("alert_type = ? AND status = ?", alertType, StatusActive).
			Count(&n).Error
		return n, err
	}
	powerLoss, err := countActiveByType("Power Loss")
	if err != nil {
		return nil, err
	}
	tilt, err := countActiveByType("Sudden Tilt")
	if err != nil {
		return nil, err
	}
	lowVoltage, err := countActiveByType("Low Voltage")
	if err != nil {
		return nil, err
	}

	healthScore := 0
	if devStats.Total > 0 {
		healthScore = int(devStats.Online * 100 / devStats.Total)
	}
	feederEfficiency := 100 - int(alertStats.Active)*2
	if feederEfficiency < 75 {
		feederEfficiency = 75
	}

	k := Kpi{
		Timestamp:            time.Now().UTC(),
		AvgResolutionTime:    24,
		FeederEfficiency:     feederEfficiency,
		NetworkStatusOnline:  int(devStats.Online),
		NetworkStatusOffline: int(devStats.Offline),
		ActiveAlertsCount:    int(alertStats.Active),
		DeviceHealthScore:    healthScore,
		TotalDevices:         int(devStats.Total),
		OnlineDevices:        int(devStats.Online),
		OfflineDevices:       int(devStats.Offline),
		PowerLossCount:       int(powerLoss),
		TiltAlertCount:       int(tilt),
		LowVoltageCount:      int(lowVoltage),
	}
	if err := s.db.WithContext(ctx).Create(&k).Error; err != nil {
		return nil, fmt.Errorf("insert kpi snapshot: %w", err)
	}
	s.lg.Info().
		Int("total_devices", k.TotalDevices).
		Int("active_alerts", k.ActiveAlertsCount).
		Msg("KPI snapshot recorded")
	return &k, nil
}
