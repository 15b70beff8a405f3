package http

import (
	"net/http"

	"github.com/storelink/kioskd/internal/kiosk/gate"
	"github.com/storelink/kioskd/pkg/httpx"
)

type DeviceProfileHandler struct{}

// ServeHTTP returns the authenticated device.
//
//	@Summary		Get the authenticated device
//	@Description	Works for both bearer-token and legacy header authentication; legacy_auth reports which one was used.
//	@Tags			DeviceAuth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	DeviceResponse
//	@Failure		401	{object}	httpx.ErrorResponse	"Not authenticated"
//	@Router			/v1/device/profile [get].
func (h *DeviceProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, ok := gate.DeviceFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "valid credentials required")
		return
	}

	device := principal.Device
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, DeviceResponse{
		ID:              device.ID,
		StoreID:         device.StoreID,
		Sequence:        device.Sequence,
		Name:            device.Name,
		SessionVersion:  device.SessionVersion,
		LastConnectedAt: device.LastConnectedAt,
		LegacyAuth:      principal.Legacy,
	})
}
