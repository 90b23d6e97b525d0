package devices

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlog "gorm.io/gorm/logger"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlog.Default.LogMode(gormlog.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Device{}, &Alert{}, &Kpi{}))
	return NewStore(db, zerolog.Nop())
}

func TestUpsertDeviceInsertsThenUpdates(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertDevice(ctx, &Device{
		DeviceID:   "BAL000001",
		NodeName:   "Main St Light",
		NodeStatus: "ONLINE",
	}))

	require.NoError(t, s.UpsertDevice(ctx, &Device{
		DeviceID:   "BAL000001",
		NodeStatus: "POWER LOSS",
	}))

	n, err := s.CountDevices(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	dev, err := s.GetDevice(ctx, "BAL000001")
	require.NoError(t, err)
	assert.Equal(t, "POWER LOSS", dev.NodeStatus)
	// Field absent from the second record keeps its stored value.
	assert.Equal(t, "Main St Light", dev.NodeName)
	assert.False(t, dev.LastUpdate.IsZero())
}

func TestUpsertDeviceIdempotentAcrossReimports(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.UpsertDevice(ctx, &Device{
			DeviceID: "BAL000002",
			NodeName: "Second St Light",
		}))
	}

	n, err := s.CountDevices(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUpsertDeviceRequiresID(t *testing.T) {
	s := testStore(t)
	err := s.UpsertDevice(context.Background(), &Device{NodeName: "nameless"})
	require.Error(t, err)
}

func TestInsertAlertDefaultsAndValidation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	err := s.InsertAlert(ctx, &Alert{DeviceID: "X"})
	require.Error(t, err, "alert type must be non-empty")

	a := &Alert{DeviceID: "X", AlertType: "Power Loss"}
	require.NoError(t, s.InsertAlert(ctx, a))
	assert.Equal(t, SeverityMedium, a.Severity)
	assert.Equal(t, StatusActive, a.Status)
	assert.False(t, a.Timestamp.IsZero())
}

func TestInsertAlertAllowsDuplicates(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	ts := time.Date(2025, time.March, 14, 14, 30, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		require.NoError(t, s.InsertAlert(ctx, &Alert{
			DeviceID:  "BAL000001",
			AlertType: "Power Loss",
			Timestamp: ts,
		}))
	}

	alerts, err := s.ListAlerts(ctx, AlertFilter{DeviceID: "BAL000001"})
	require.NoError(t, err)
	assert.Len(t, alerts, 2)
}

func TestListAlertsFilters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	seed := []Alert{
		{DeviceID: "A", AlertType: "Power Loss", Severity: SeverityHigh, Status: StatusActive},
		{DeviceID: "A", AlertType: "Low Voltage", Severity: SeverityMedium, Status: StatusResolved},
		{DeviceID: "B", AlertType: "Sudden Tilt", Severity: SeverityCritical, Status: StatusActive},
	}
	for i := range seed {
		require.NoError(t, s.InsertAlert(ctx, &seed[i]))
	}

	byDevice, err := s.ListAlerts(ctx, AlertFilter{DeviceID: "A"})
	require.NoError(t, err)
	assert.Len(t, byDevice, 2)

	byType, err := s.ListAlerts(ctx, AlertFilter{AlertType: "Sudden Tilt"})
	require.NoError(t, err)
	assert.Len(t, byType, 1)

	bySeverity, err := s.ListAlerts(ctx, AlertFilter{Severity: SeverityHigh})
	require.NoError(t, err)
	assert.Len(t, bySeverity, 1)

	active, err := s.ActiveAlerts(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestDeviceStatistics(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, dev := range []Device{
		{DeviceID: "A", NodeStatus: "ONLINE"},
		{DeviceID: "B", NodeStatus: "ONLINE"},
		{DeviceID: "C", NodeStatus: "OFFLINE"},
		{DeviceID: "D", NodeStatus: "POWER LOSS"},
	} {
		d := dev
		require.NoError(t, s.UpsertDevice(ctx, &d))
	}

	st, err := s.DeviceStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), st.Total)
	assert.Equal(t, int64(2), st.Online)
	assert.Equal(t, int64(2), st.Offline)
}

func TestAlertStatistics(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	seed := []Alert{
		{DeviceID: "A", AlertType: "Power Loss", Severity: SeverityHigh, Status: StatusActive},
		{DeviceID: "B", AlertType: "Power Loss", Severity: SeverityHigh, Status: StatusResolved},
		{DeviceID: "C", AlertType: "Low Voltage", Severity: SeverityMedium, Status: StatusActive},
	}
	for i := range seed {
		require.NoError(t, s.InsertAlert(ctx, &seed[i]))
	}

	st, err := s.AlertStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Total)
	assert.Equal(t, int64(2), st.Active)
	assert.Equal(t, int64(1), st.Resolved)

	byType := make(map[string]int64)
	for _, tc := range st.ByType {
		byType[tc.AlertType] = tc.Count
	}
	assert.Equal(t, int64(2), byType["Power Loss"])
	assert.Equal(t, int64(1), byType["Low Voltage"])
}

func TestSnapshotKPIs(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, dev := range []Device{
		{DeviceID: "A", NodeStatus: "ONLINE"},
		{DeviceID: "B", NodeStatus: "POWER LOSS"},
	} {
		d := dev
		require.NoError(t, s.UpsertDevice(ctx, &d))
	}
	require.NoError(t, s.InsertAlert(ctx, &Alert{
		DeviceID: "B", AlertType: "Power Loss", Severity: SeverityHigh, Status: StatusActive,
	}))

	k, err := s.SnapshotKPIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, k.TotalDevices)
	assert.Equal(t, 1, k.OnlineDevices)
	assert.Equal(t, 1, k.OfflineDevices)
	assert.Equal(t, 1, k.ActiveAlertsCount)
	assert.Equal(t, 1, k.PowerLossCount)
	assert.Equal(t, 50, k.DeviceHealthScore)
	assert.Equal(t, 98, k.FeederEfficiency)

	latest, err := s.LatestKPIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, k.TotalDevices, latest.TotalDevices)

	hist, err := s.KPIHistory(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestSeedDemoData(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.SeedDemoData(ctx))

	n, err := s.CountDevices(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), n)

	alerts, err := s.ListAlerts(ctx, AlertFilter{})
	require.NoError(t, err)
	for _, a := range alerts {
		assert.NotEmpty(t, a.AlertType)
	}

	// Second run is a no-op.
	require.NoError(t, s.SeedDemoData(ctx))
	n, err = s.CountDevices(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), n)
}
