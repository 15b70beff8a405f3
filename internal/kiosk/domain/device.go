package domain

import "time"

type DeviceStatus string

const (
	DeviceActive   DeviceStatus = "active"
	DeviceInactive DeviceStatus = "inactive"
	DeviceDeleted  DeviceStatus = "deleted"
)

// Device is an unattended kiosk terminal. (StoreID, Sequence) is unique: a
// store's terminals are numbered 1, 2, 3 and so on.
//
// SessionVersion is separate from the account TokenVersion semantics: it is
// bumped on every token issuance, not only on credential change, so only the
// most recently issued session is authoritative for a device.
type Device struct {
	ID              string
	StoreID         string
	Sequence        int
	Name            string
	Status          DeviceStatus
	SessionVersion  int64
	LastConnectedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Active reports whether the device may authenticate.
func (d Device) Active() bool { return d.Status == DeviceActive }
