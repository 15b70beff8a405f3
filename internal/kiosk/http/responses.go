package http

import "time"

// HealthResponse is the body of the livez and readyz probes.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
}

// AccountResponse is what /v1/accounts/me returns.
type AccountResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// DeviceResponse is what /v1/device/profile returns.
type DeviceResponse struct {
	ID              string     `json:"id"`
	StoreID         string     `json:"store_id"`
	Sequence        int        `json:"sequence"`
	Name            string     `json:"name"`
	SessionVersion  int64      `json:"session_version"`
	LastConnectedAt *time.Time `json:"last_connected_at,omitempty"`
	LegacyAuth      bool       `json:"legacy_auth"`
}

// SessionResponse is one live realtime session.
type SessionResponse struct {
	DeviceID    string    `json:"device_id"`
	StoreID     string    `json:"store_id"`
	Sequence    int       `json:"sequence"`
	ConnectedAt time.Time `json:"connected_at"`
}

// SessionListResponse is the body of /v1/sessions.
type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Count    int               `json:"count"`
}
