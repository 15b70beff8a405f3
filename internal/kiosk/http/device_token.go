package http

import (
	"errors"
	"net/http"

	"github.com/storelink/kioskd/internal/kiosk/service"
	"github.com/storelink/kioskd/pkg/httpx"
	"github.com/storelink/kioskd/pkg/slogx"
)

type DeviceTokenHandler struct {
	Devices *service.DeviceService

	// OnIssued is called after a successful issuance, for metrics. Nil is
	// allowed.
	OnIssued func()
}

type deviceTokenRequest struct {
	StoreID  string `json:"store_id"`
	DeviceID string `json:"device_id"`
	Sequence int    `json:"sequence"`
}

// ServeHTTP issues a device token.
//
//	@Summary		Issue a device token
//	@Description	Authenticates a kiosk terminal by its (store, sequence, id) tuple and issues a long-lived token.
//	@Description	Any previous session for the device is superseded: a live realtime connection is told to reconnect and every earlier token stops verifying.
//	@Tags			DeviceAuth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		deviceTokenRequest	true	"Device identity"
//	@Success		200		{object}	domain.DeviceToken
//	@Failure		400		{object}	httpx.ErrorResponse	"Malformed request"
//	@Failure		401		{object}	httpx.ErrorResponse	"Unknown or mismatched device"
//	@Failure		403		{object}	httpx.ErrorResponse	"Device disabled"
//	@Router			/v1/device-auth/token [post].
func (h *DeviceTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req deviceTokenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.StoreID == "" || req.DeviceID == "" || req.Sequence <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "store_id, device_id and sequence are required")
		return
	}

	token, err := h.Devices.IssueToken(ctx, req.StoreID, req.Sequence, req.DeviceID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDeviceNotFound), errors.Is(err, service.ErrDeviceMismatch):
			// One response for both, so probing sequence numbers does not
			// reveal which part was wrong.
			httpx.WriteError(w, http.StatusUnauthorized, "unknown_device", "device identity not recognised")
		case errors.Is(err, service.ErrDeviceDisabled):
			httpx.WriteError(w, http.StatusForbidden, "device_disabled", "device is not active")
		default:
			log.Error("device token issuance failed", "store", req.StoreID, "seq", req.Sequence, "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		}
		return
	}

	if h.OnIssued != nil {
		h.OnIssued()
	}
	log.Info("device token issued", "store", req.StoreID, "seq", req.Sequence, "device", req.DeviceID)

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, token)
}
