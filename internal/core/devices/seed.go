package devices

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Baltimore bounding box used for generated coordinates.
const (
	seedLatMin = 39.25
	seedLatMax = 39.35
	seedLonMin = -76.68
	seedLonMax = -76.54
)

// SeedDemoData populates an empty database with a demo fleet of 100 devices
// plus matching alert events and an initial KPI snapshot. It is a no-op when
// devices already exist.
func (s *Store) SeedDemoData(ctx context.Context) error {
	n, err := s.CountDevices(ctx)
	if err != nil {
		return fmt.Errorf("count devices: %w", err)
	}
	if n > 0 {
		s.lg.Info().Int64("devices", n).Msg("data already seeded, skipping")
		return nil
	}

	s.lg.Info().Msg("seeding demo data")

	alertTypes := []string{"Power Loss", "Sudden Tilt", "Low Voltage", ""}
	nodeStatuses := []string{"ONLINE", "OFFLINE", "POWER LOSS"}
	networkTypes := []string{"LTE", "LTE-M"}

	for i := 0; i < 100; i++ {
		lat := fmt.Sprintf("%.6f", seedLatMin+rand.Float64()*(seedLatMax-seedLatMin))
		lon := fmt.Sprintf("%.6f", seedLonMin+rand.Float64()*(seedLonMax-seedLonMin))
		alertType := alertTypes[rand.Intn(len(alertTypes))]
		nodeStatus := "ONLINE"
		if alertType != "" {
			nodeStatus = nodeStatuses[rand.Intn(2)+1]
		}
		lightStatus := "ON"
		if nodeStatus != "ONLINE" {
			lightStatus = "OFF"
		}
		deviceID := fmt.Sprintf("BAL%06d", i+1)
		nodeName := fmt.Sprintf("Baltimore Node %d", i+1)

		dev := Device{
			DeviceID:        deviceID,
			NodeName:        nodeName,
			Latitude:        lat,
			Longitude:       lon,
			AlertType:       alertType,
			BurnHours:       fmt.Sprintf("%d hrs", rand.Intn(10000)),
			LightStatus:     lightStatus,
			NodeStatus:      nodeStatus,
			NetworkType:     networkTypes[rand.Intn(len(networkTypes))],
			FirmwareVersion: "58.02.30",
			InstallDate: time.Date(2024, time.Month(rand.Intn(12)+1), rand.Intn(28)+1,
				0, 0, 0, 0, time.UTC).Format(time.RFC3339),
			Utility:  "Baltimore Gas and Electric (BGE)",
			Timezone: "America/New_York",
			Tags:     "Baltimore_Smart_City",
		}
		if alertType != "" {
			dev.AlertValue = fmt.Sprintf("%d", rand.Intn(100))
		}
		if err := s.UpsertDevice(ctx, &dev); err != nil {
			return err
		}

		if alertType == "" {
			continue
		}

		severity := SeverityMedium
		switch alertType {
		case "Sudden Tilt":
			severity = SeverityCritical
		case "Power Loss":
			severity = SeverityHigh
		}
		status := StatusActive
		if rand.Float64() <= 0.3 {
			status = StatusResolved
		}
		alert := Alert{
			DeviceID:    deviceID,
			Timestamp:   time.Now().UTC().Add(-time.Duration(rand.Int63n(int64(7 * 24 * time.Hour)))),
			AlertType:   alertType,
			AlertValue:  fmt.Sprintf("%d", rand.Intn(100)),
			Severity:    severity,
			Status:      status,
			Latitude:    lat,
			Longitude:   lon,
			Description: fmt.Sprintf("%s detected on %s", alertType, nodeName),
		}
		if err := s.InsertAlert(ctx, &alert); err != nil {
			return err
		}
	}

	if _, err := s.SnapshotKPIs(ctx); err != nil {
		return err
	}
	s.lg.Info().Msg("demo data seeded")
	return nil
}
