package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ubicell-ingest/internal/core/devices"
)

// AlertWithoutGPS is informational only: devices flagged with it still get
// upserted, but no alert event is generated.
const AlertWithoutGPS = "Without GPS Location"

// Classification is the result of an external alert classification. An empty
// AlertType means "no alert".
type Classification struct {
	AlertType string `json:"alertType"`
	Severity  string `json:"severity"`
}

// StatusSummary describes the operational fields handed to a Classifier.
type StatusSummary struct {
	NodeStatus  string `json:"nodeStatus"`
	BurnHours   string `json:"burnHours"`
	LightStatus string `json:"lightStatus"`
	NetworkType string `json:"networkType"`
}

// Classifier is an optional external service deciding whether a device's
// status fields imply an alert.
type Classifier interface {
	Classify(ctx context.Context, summary StatusSummary) (Classification, error)
}

// severityByType is consulted before the keyword scan for well-known types.
var severityByType = map[string]string{
	"Power Loss":    devices.SeverityHigh,
	"Sudden Tilt":   devices.SeverityCritical,
	"Low Voltage":   devices.SeverityMedium,
	AlertWithoutGPS: devices.SeverityLow,
}

// SeverityFor resolves an alert type to a severity: explicit table first,
// then a keyword scan where critical keywords outrank high ones, medium last.
func SeverityFor(alertType string) string {
	if sev, ok := severityByType[alertType]; ok {
		return sev
	}
	lower := strings.ToLower(alertType)
	for _, kw := range []string{"critical", "sudden", "emergency"} {
		if strings.Contains(lower, kw) {
			return devices.SeverityCritical
		}
	}
	for _, kw := range []string{"power loss", "failure"} {
		if strings.Contains(lower, kw) {
			return devices.SeverityHigh
		}
	}
	return devices.SeverityMedium
}

// inferTypeFromStatus applies the node-status heuristics. First match wins.
func inferTypeFromStatus(nodeStatus string) string {
	status := strings.ToLower(nodeStatus)
	switch {
	case strings.Contains(status, "power loss"), strings.Contains(status, "offline"):
		return "Power Loss"
	case strings.Contains(status, "tilt"):
		return "Sudden Tilt"
	case strings.Contains(status, "voltage"):
		return "Low Voltage"
	}
	return ""
}

// alertStatusFor marks an alert active while the device still reports a
// power-loss/offline condition, resolved otherwise.
func alertStatusFor(nodeStatus string) string {
	status := strings.ToLower(nodeStatus)
	if strings.Contains(status, "power loss") || strings.Contains(status, "offline") {
		return devices.StatusActive
	}
	return devices.StatusResolved
}

// timestampColumns are the raw-row aliases checked for an event time.
var timestampColumns = []string{
	"timestamp", "time", "datetime", "date", "eventtime", "reportedat", "lastseen",
}

// timestampLayouts in trial order. The 12-hour Ubicell export format comes
// first; the rest match what the historical seeders accepted.
var timestampLayouts = []string{
	"1/2/2006 3:04PM",
	"02-01-2006 15:04",
	"2006-01-02 15:04:05",
	"1/2/2006 15:04",
	time.RFC3339,
}

// ResolveTimestamp finds a timestamp-like column in the raw row and parses
// it. Absence or an unparseable value falls back to the current time.
func ResolveTimestamp(row Row, now time.Time) time.Time {
	for key, raw := range row {
		folded := foldKey(key)
		for _, alias := range timestampColumns {
			if folded != alias {
				continue
			}
			v := CleanValue(raw)
			if v == "" {
				continue
			}
			for _, layout := range timestampLayouts {
				if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
					return t
				}
			}
		}
	}
	return now
}

// InferAlert decides whether a normalized device record implies an alert
// event. It returns nil when nothing qualifies. Classification failures are
// collapsed to "no alert" here, deliberately: the optional external path must
// never fail a row.
func InferAlert(ctx context.Context, dev devices.Device, row Row, useAI bool, cls Classifier) *devices.Alert {
	alertType := dev.AlertType
	severity := ""

	if alertType == "" {
		alertType = inferTypeFromStatus(dev.NodeStatus)
	}
	if alertType == "" && useAI && cls != nil {
		if c, err := cls.Classify(ctx, StatusSummary{
			NodeStatus:  dev.NodeStatus,
			BurnHours:   dev.BurnHours,
			LightStatus: dev.LightStatus,
			NetworkType: dev.NetworkType,
		}); err == nil {
			alertType = c.AlertType
			severity = c.Severity
		}
	}

	if alertType == "" || alertType == AlertWithoutGPS {
		return nil
	}
	if severity == "" {
		severity = SeverityFor(alertType)
	}

	name := dev.NodeName
	if name == "" {
		name = dev.DeviceID
	}

	return &devices.Alert{
		DeviceID:    dev.DeviceID,
		Timestamp:   ResolveTimestamp(row, time.Now()),
		AlertType:   alertType,
		AlertValue:  dev.AlertValue,
		Severity:    severity,
		Status:      alertStatusFor(dev.NodeStatus),
		Latitude:    dev.Latitude,
		Longitude:   dev.Longitude,
		Description: fmt.Sprintf("%s detected on %s", alertType, name),
	}
}
