package service

import (
	"context"
	"errors"
	"time"

	"github.com/storelink/kioskd/internal/kiosk/domain"
	"github.com/storelink/kioskd/internal/kiosk/store"
	"github.com/storelink/kioskd/pkg/jwtx"
)

var (
	ErrDeviceNotFound = errors.New("service: device not found")
	ErrDeviceDisabled = errors.New("service: device disabled")

	// ErrDeviceMismatch reports a (store, sequence) tuple that resolves to
	// a different device id than the caller claimed.
	ErrDeviceMismatch = errors.New("service: device identity mismatch")
)

// SessionEvicter removes a device's live realtime session, notifying the
// connection best-effort. Satisfied by realtime.Registry.
type SessionEvicter interface {
	Evict(deviceID, reason string) bool
}

// DeviceService issues device tokens. A device holds exactly one
// authoritative session: issuing a new token supersedes everything that
// came before it, including a live realtime connection.
type DeviceService struct {
	Store    store.Store
	Codec    *jwtx.Codec
	Sessions SessionEvicter

	TokenTTL time.Duration
}

func NewDeviceService(st store.Store, codec *jwtx.Codec, sessions SessionEvicter) *DeviceService {
	return &DeviceService{
		Store:    st,
		Codec:    codec,
		Sessions: sessions,
		TokenTTL: jwtx.DefaultDeviceTokenTTL,
	}
}

// IssueToken authenticates the device by its (store, sequence, id) tuple
// and issues a fresh token. The order of side effects is load-bearing:
//
//  1. evict any live realtime session, so the old connection learns it was
//     superseded while its token is still notionally valid;
//  2. bump the session version, revoking every earlier token;
//  3. sign the token with the post-bump value.
//
// Signing before the bump would stamp a snapshot the bump immediately
// invalidates.
func (s *DeviceService) IssueToken(ctx context.Context, storeID string, sequence int, deviceID string) (domain.DeviceToken, error) {
	device, err := s.Store.Devices().GetDeviceByStoreSequence(ctx, storeID, sequence)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.DeviceToken{}, ErrDeviceNotFound
		}
		return domain.DeviceToken{}, err
	}
	if device.ID != deviceID {
		return domain.DeviceToken{}, ErrDeviceMismatch
	}
	if !device.Active() {
		return domain.DeviceToken{}, ErrDeviceDisabled
	}

	if s.Sessions != nil {
		s.Sessions.Evict(device.ID, "superseded")
	}

	version, err := s.Store.Devices().BumpSessionVersion(ctx, device.ID)
	if err != nil {
		return domain.DeviceToken{}, err
	}

	access, err := s.Codec.IssueDevice(device.ID, device.StoreID, device.Sequence, version, s.TokenTTL)
	if err != nil {
		return domain.DeviceToken{}, err
	}

	return domain.DeviceToken{
		AccessToken:    access,
		TokenType:      "Bearer",
		SessionVersion: version,
		ExpiresIn:      int64(s.TokenTTL.Seconds()),
	}, nil
}

// GetDeviceByID fetches a device by id.
func (s *DeviceService) GetDeviceByID(ctx context.Context, id string) (domain.Device, error) {
	return s.Store.Devices().GetDeviceByID(ctx, id)
}
