package ingest

import (
	"strings"

	"ubicell-ingest/internal/core/devices"
	"ubicell-ingest/pkg/rand"
)

// Canonical device-attribute names used by the synonym table.
const (
	fieldDeviceID        = "deviceId"
	fieldNodeName        = "nodeName"
	fieldLatitude        = "latitude"
	fieldLongitude       = "longitude"
	fieldAlertType       = "alertType"
	fieldAlertValue      = "alertValue"
	fieldAlertDuration   = "alertDuration"
	fieldBurnHours       = "burnHours"
	fieldLightStatus     = "lightStatus"
	fieldNodeStatus      = "nodeStatus"
	fieldNetworkType     = "networkType"
	fieldFirmwareVersion = "firmwareVersion"
	fieldHardwareVersion = "hardwareVersion"
	fieldInstallDate     = "installDate"
	fieldUtility         = "utility"
	fieldTimezone        = "timezone"
	fieldTags            = "tags"
)

// columnSynonyms maps folded column names (lowercase, separators stripped) to
// canonical device attributes. Columns not in this table are dropped.
var columnSynonyms = map[string]string{
	"deviceid":         fieldDeviceID,
	"deveui":           fieldDeviceID,
	"nodename":         fieldNodeName,
	"name":             fieldNodeName,
	"lat":              fieldLatitude,
	"latitude":         fieldLatitude,
	"lng":              fieldLongitude,
	"lon":              fieldLongitude,
	"longitude":        fieldLongitude,
	"alerttype":        fieldAlertType,
	"alert":            fieldAlertType,
	"alertvalue":       fieldAlertValue,
	"alertduration":    fieldAlertDuration,
	"burnhours":        fieldBurnHours,
	"lightstatus":      fieldLightStatus,
	"nodestatus":       fieldNodeStatus,
	"status":           fieldNodeStatus,
	"devicestatus":     fieldNodeStatus,
	"networktype":      fieldNetworkType,
	"network":          fieldNetworkType,
	"firmwareversion":  fieldFirmwareVersion,
	"firmware":         fieldFirmwareVersion,
	"fwversion":        fieldFirmwareVersion,
	"hardwareversion":  fieldHardwareVersion,
	"hardware":         fieldHardwareVersion,
	"hwversion":        fieldHardwareVersion,
	"installdate":      fieldInstallDate,
	"installationdate": fieldInstallDate,
	"utility":          fieldUtility,
	"utilitycompany":   fieldUtility,
	"timezone":         fieldTimezone,
	"tz":               fieldTimezone,
	"tags":             fieldTags,
	"tag":              fieldTags,
}

// foldKey makes column matching case-insensitive and separator-agnostic:
// "Node Status", "node_status" and "NodeStatus" all fold to "nodestatus".
func foldKey(k string) string {
	k = strings.ToLower(k)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return r
	}, k)
}

// NormalizeRow maps a raw row onto the canonical device-attribute set and
// guarantees a non-empty DeviceID: a DevEUI-like column wins over nothing,
// and a synthesized identifier is the last resort. Pure function apart from
// the synthesized ID.
func NormalizeRow(row Row) devices.Device {
	var dev devices.Device
	for key, raw := range row {
		canonical, ok := columnSynonyms[foldKey(key)]
		if !ok {
			continue
		}
		v := CleanValue(raw)
		if v == "" {
			continue
		}
		switch canonical {
		case fieldDeviceID:
			// First non-empty id column wins; exact "deviceId" spellings and
			// DevEUI are synonyms, so no preference between them is needed.
			if dev.DeviceID == "" {
				dev.DeviceID = v
			}
		case fieldNodeName:
			dev.NodeName = v
		case fieldLatitude:
			dev.Latitude = v
		case fieldLongitude:
			dev.Longitude = v
		case fieldAlertType:
			dev.AlertType = v
		case fieldAlertValue:
			dev.AlertValue = v
		case fieldAlertDuration:
			dev.AlertDuration = v
		case fieldBurnHours:
			dev.BurnHours = v
		case fieldLightStatus:
			dev.LightStatus = v
		case fieldNodeStatus:
			dev.NodeStatus = v
		case fieldNetworkType:
			dev.NetworkType = v
		case fieldFirmwareVersion:
			dev.FirmwareVersion = v
		case fieldHardwareVersion:
			dev.HardwareVersion = v
		case fieldInstallDate:
			dev.InstallDate = v
		case fieldUtility:
			dev.Utility = v
		case fieldTimezone:
			dev.Timezone = v
		case fieldTags:
			dev.Tags = v
		}
	}

	if dev.DeviceID == "" {
		dev.DeviceID = rand.DeviceID()
	}
	return dev
}
