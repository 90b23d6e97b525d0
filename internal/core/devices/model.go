package devices

import "time"

// Alert severities, ordered least to most urgent.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Alert lifecycle statuses.
const (
	StatusActive       = "active"
	StatusResolved     = "resolved"
	StatusAcknowledged = "acknowledged"
)

// Device represents one physical Ubicell streetlight controller.
// DeviceID is the only mandatory field; everything else arrives as free text
// from the controller export and is stored as-is, coordinates included.
// It includes GORM tags for database mapping and JSON tags for API responses.
type Device struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	DeviceID        string    `gorm:"size:64;uniqueIndex;not null" json:"device_id" example:"BAL000001"`
	NodeName        string    `gorm:"size:255" json:"node_name,omitempty" example:"Main St Light"`
	Latitude        string    `gorm:"size:50" json:"latitude,omitempty" example:"39.290385"`
	Longitude       string    `gorm:"size:50" json:"longitude,omitempty" example:"-76.612189"`
	AlertType       string    `gorm:"size:100" json:"alert_type,omitempty" example:"Power Loss"`
	AlertValue      string    `gorm:"size:50" json:"alert_value,omitempty"`
	AlertDuration   string    `gorm:"size:50" json:"alert_duration,omitempty"`
	BurnHours       string    `gorm:"size:50" json:"burn_hours,omitempty" example:"8760 hrs"`
	LightStatus     string    `gorm:"size:50" json:"light_status,omitempty" example:"ON"`
	NodeStatus      string    `gorm:"size:50" json:"node_status,omitempty" example:"ONLINE"`
	NetworkType     string    `gorm:"size:50" json:"network_type,omitempty" example:"LTE-M"`
	FirmwareVersion string    `gorm:"size:50" json:"firmware_version,omitempty" example:"58.02.30"`
	HardwareVersion string    `gorm:"size:50" json:"hardware_version,omitempty"`
	InstallDate     string    `gorm:"size:100" json:"install_date,omitempty"`
	Utility         string    `gorm:"size:255" json:"utility,omitempty" example:"Baltimore Gas and Electric (BGE)"`
	Timezone        string    `gorm:"size:100" json:"timezone,omitempty" example:"America/New_York"`
	Tags            string    `gorm:"type:text" json:"tags,omitempty"`
	LastUpdate      time.Time `json:"last_update"`
	CreatedAt       time.Time `json:"created_at"`
}

// Alert is one timestamped occurrence of an anomalous condition on a device.
// Devices carry their *current* alert snapshot inline; rows here are the
// historical record and are never updated by the ingestion pipeline.
type Alert struct {
	ID             uint       `gorm:"primaryKey" json:"-"`
	DeviceID       string     `gorm:"size:64;index;not null" json:"device_id" example:"BAL000001"`
	Timestamp      time.Time  `gorm:"not null" json:"timestamp"`
	AlertType      string     `gorm:"size:100;not null" json:"alert_type" example:"Power Loss"`
	AlertValue     string     `gorm:"size:50" json:"alert_value,omitempty"`
	Severity       string     `gorm:"size:16;default:medium;not null" json:"severity" example:"high"`
	Status         string     `gorm:"size:16;default:active;not null" json:"status" example:"active"`
	ResolutionTime int        `json:"resolution_time,omitempty"` // hours
	Description    string     `gorm:"type:text" json:"description,omitempty" example:"Power Loss detected on Main St Light"`
	Latitude       string     `gorm:"size:50" json:"latitude,omitempty"`
	Longitude      string     `gorm:"size:50" json:"longitude,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

// Kpi is a point-in-time snapshot of fleet health, derived from the device
// and alert tables after each seeding or import run.
type Kpi struct {
	ID                   uint      `gorm:"primaryKey" json:"-"`
	Timestamp            time.Time `gorm:"not null" json:"timestamp"`
	AvgResolutionTime    int       `json:"avg_resolution_time"` // hours
	FeederEfficiency     int       `json:"feeder_efficiency"`   // percentage
	NetworkStatusOnline  int       `json:"network_status_online"`
	NetworkStatusOffline int       `json:"network_status_offline"`
	ActiveAlertsCount    int       `json:"active_alerts_count"`
	DeviceHealthScore    int       `json:"device_health_score"` // percentage
	TotalDevices         int       `json:"total_devices"`
	OnlineDevices        int       `json:"online_devices"`
	OfflineDevices       int       `json:"offline_devices"`
	PowerLossCount       int       `json:"power_loss_count"`
	TiltAlertCount       int       `json:"tilt_alert_count"`
	LowVoltageCount      int       `json:"low_voltage_count"`
}

// DeviceStats summarizes the fleet by node status.
type DeviceStats struct {
	Total   int64 `json:"total"`
	Online  int64 `json:"online"`
	Offline int64 `json:"offline"`
}

// TypeCount is one group row of an alert-by-type aggregation.
type TypeCount struct {
	AlertType string `json:"alert_type"`
	Count     int64  `json:"count"`
}

// SeverityCount is one group row of an alert-by-severity aggregation.
type SeverityCount struct {
	Severity string `json:"severity"`
	Count    int64  `json:"count"`
}

// AlertStats summarizes alert volume and its breakdown.
type AlertStats struct {
	Total      int64           `json:"total"`
	Active     int64           `json:"active"`
	Resolved   int64           `json:"resolved"`
	ByType     []TypeCount     `json:"by_type"`
	BySeverity []SeverityCount `json:"by_severity"`
}
