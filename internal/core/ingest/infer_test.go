package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"ubicell-ingest/internal/core/devices"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityLookupTable(t *testing.T) {
	assert.Equal(t, devices.SeverityHigh, SeverityFor("Power Loss"))
	assert.Equal(t, devices.SeverityCritical, SeverityFor("Sudden Tilt"))
	assert.Equal(t, devices.SeverityMedium, SeverityFor("Low Voltage"))
	assert.Equal(t, devices.SeverityLow, SeverityFor("Without GPS Location"))
}

func TestSeverityKeywordScan(t *testing.T) {
	assert.Equal(t, devices.SeverityCritical, SeverityFor("Emergency Shutdown"))
	assert.Equal(t, devices.SeverityCritical, SeverityFor("Sudden Surge"))
	assert.Equal(t, devices.SeverityHigh, SeverityFor("Lamp Failure"))
	// Critical keywords outrank everything else in the scan.
	assert.Equal(t, devices.SeverityCritical, SeverityFor("Critically Low Battery"))
}

func TestSeverityDefaultsToMedium(t *testing.T) {
	assert.Equal(t, devices.SeverityMedium, SeverityFor("Flickering"))
}

func TestInferAlertFromPowerLossStatus(t *testing.T) {
	dev := NormalizeRow(Row{
		"DevEUI":      "BAL000001",
		"Node Status": "POWER LOSS",
		"Node Name":   "Main St Light",
	})
	alert := InferAlert(context.Background(), dev, Row{}, false, nil)

	require.NotNil(t, alert)
	assert.Equal(t, "BAL000001", alert.DeviceID)
	assert.Equal(t, "Power Loss", alert.AlertType)
	assert.Equal(t, devices.SeverityHigh, alert.Severity)
	assert.Equal(t, devices.StatusActive, alert.Status)
	assert.Equal(t, "Power Loss detected on Main St Light", alert.Description)
}

func TestInferAlertStatusHeuristics(t *testing.T) {
	cases := []struct {
		nodeStatus string
		alertType  string
	}{
		{"OFFLINE", "Power Loss"},
		{"power loss detected", "Power Loss"},
		{"Tilt Warning", "Sudden Tilt"},
		{"low voltage", "Low Voltage"},
	}
	for _, tc := range cases {
		alert := InferAlert(context.Background(),
			devices.Device{DeviceID: "X", NodeStatus: tc.nodeStatus}, Row{}, false, nil)
		require.NotNil(t, alert, "status %q", tc.nodeStatus)
		assert.Equal(t, tc.alertType, alert.AlertType, "status %q", tc.nodeStatus)
	}
}

func TestInferAlertExplicitTypeWins(t *testing.T) {
	alert := InferAlert(context.Background(),
		devices.Device{DeviceID: "X", AlertType: "Low Voltage", NodeStatus: "OFFLINE"},
		Row{}, false, nil)
	require.NotNil(t, alert)
	assert.Equal(t, "Low Voltage", alert.AlertType)
	// Status still tracks node status, not the alert type.
	assert.Equal(t, devices.StatusActive, alert.Status)
}

func TestInferAlertResolvedWhenOnline(t *testing.T) {
	alert := InferAlert(context.Background(),
		devices.Device{DeviceID: "X", AlertType: "Low Voltage", NodeStatus: "ONLINE"},
		Row{}, false, nil)
	require.NotNil(t, alert)
	assert.Equal(t, devices.StatusResolved, alert.Status)
}

func TestInferAlertSuppressesGPSFlag(t *testing.T) {
	alert := InferAlert(context.Background(),
		devices.Device{DeviceID: "X", AlertType: "Without GPS Location", NodeStatus: "ONLINE"},
		Row{}, false, nil)
	assert.Nil(t, alert)
}

func TestInferAlertNoIndicators(t *testing.T) {
	alert := InferAlert(context.Background(),
		devices.Device{DeviceID: "X", NodeStatus: "ONLINE"}, Row{}, false, nil)
	assert.Nil(t, alert)
}

type stubClassifier struct {
	cls    Classification
	err    error
	called bool
}

func (s *stubClassifier) Classify(ctx context.Context, _ StatusSummary) (Classification, error) {
	s.called = true
	return s.cls, s.err
}

func TestInferAlertUsesClassifier(t *testing.T) {
	cls := &stubClassifier{cls: Classification{AlertType: "Dimming Fault", Severity: devices.SeverityHigh}}
	alert := InferAlert(context.Background(),
		devices.Device{DeviceID: "X", NodeStatus: "DEGRADED"}, Row{}, true, cls)

	require.True(t, cls.called)
	require.NotNil(t, alert)
	assert.Equal(t, "Dimming Fault", alert.AlertType)
	assert.Equal(t, devices.SeverityHigh, alert.Severity)
}

func TestInferAlertClassifierSkippedWhenTypeKnown(t *testing.T) {
	cls := &stubClassifier{cls: Classification{AlertType: "Ignored"}}
	alert := InferAlert(context.Background(),
		devices.Device{DeviceID: "X", AlertType: "Power Loss"}, Row{}, true, cls)

	assert.False(t, cls.called)
	require.NotNil(t, alert)
	assert.Equal(t, "Power Loss", alert.AlertType)
}

func TestInferAlertClassifierFailureIsSilent(t *testing.T) {
	cls := &stubClassifier{err: errors.New("service unavailable")}
	alert := InferAlert(context.Background(),
		devices.Device{DeviceID: "X", NodeStatus: "DEGRADED"}, Row{}, true, cls)

	assert.True(t, cls.called)
	assert.Nil(t, alert)
}

func TestResolveTimestampTwelveHourFormat(t *testing.T) {
	row := Row{"Timestamp": "03/14/2025 02:30PM"}
	got := ResolveTimestamp(row, time.Now())

	want := time.Date(2025, time.March, 14, 14, 30, 0, 0, time.Local)
	assert.True(t, got.Equal(want), "got %v", got)
}

func TestResolveTimestampISO(t *testing.T) {
	row := Row{"datetime": "2025-03-14 09:15:00"}
	got := ResolveTimestamp(row, time.Now())

	want := time.Date(2025, time.March, 14, 9, 15, 0, 0, time.Local)
	assert.True(t, got.Equal(want), "got %v", got)
}

func TestResolveTimestampFallsBackToNow(t *testing.T) {
	now := time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)

	got := ResolveTimestamp(Row{"Timestamp": "not a date"}, now)
	assert.True(t, got.Equal(now))

	got = ResolveTimestamp(Row{"Node Name": "no timestamp here"}, now)
	assert.True(t, got.Equal(now))
}

func TestInferAlertTimestampFromRow(t *testing.T) {
	alert := InferAlert(context.Background(),
		devices.Device{DeviceID: "X", AlertType: "Power Loss"},
		Row{"Timestamp": "03/14/2025 02:30PM"}, false, nil)

	require.NotNil(t, alert)
	want := time.Date(2025, time.March, 14, 14, 30, 0, 0, time.Local)
	assert.True(t, alert.Timestamp.Equal(want), "got %v", alert.Timestamp)
}
