package models

import "encoding/json"

// ExportVersion is the semver written into export documents.
const ExportVersion = "1.0.0"

// Settings is an opaque user preference object; the portal persists it but does not interpret it
// beyond the few keys it owns (see SettingDeviceID).
type Settings map[string]any

// SettingDeviceID holds a per-installation identifier.
const SettingDeviceID = "deviceId"

// ExportDocument is the backup file format.
type ExportDocument struct {
	Progress      json.RawMessage `json:"progress"`
	DashboardData json.RawMessage `json:"dashboardData"`
	Settings      json.RawMessage `json:"settings"`
	ExportedAt    string          `json:"exportedAt"`
	Version       string          `json:"version"`
}
