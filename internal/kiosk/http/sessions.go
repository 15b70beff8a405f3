package http

import (
	"net/http"

	"github.com/storelink/kioskd/internal/kiosk/realtime"
	"github.com/storelink/kioskd/pkg/httpx"
)

type SessionsHandler struct {
	Registry *realtime.Registry
}

// List returns every live realtime session.
//
//	@Summary		List live realtime sessions
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	SessionListResponse
//	@Failure		401	{object}	httpx.ErrorResponse	"Not authenticated"
//	@Failure		403	{object}	httpx.ErrorResponse	"Admin role required"
//	@Router			/v1/sessions [get].
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	snapshot := h.Registry.Snapshot()

	sessions := make([]SessionResponse, 0, len(snapshot))
	for _, s := range snapshot {
		sessions = append(sessions, sessionResponse(s))
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, SessionListResponse{Sessions: sessions, Count: len(sessions)})
}

// Get returns one device's live session.
//
//	@Summary		Get a device's live realtime session
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Param			deviceID	path		string	true	"Device id"
//	@Success		200			{object}	SessionResponse
//	@Failure		404			{object}	httpx.ErrorResponse	"No live session for the device"
//	@Router			/v1/sessions/{deviceID} [get].
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	deviceID := r.PathValue("deviceID")

	session, ok := h.Registry.Get(deviceID)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "device has no live session")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, sessionResponse(session))
}

func sessionResponse(s realtime.Session) SessionResponse {
	return SessionResponse{
		DeviceID:    s.DeviceID,
		StoreID:     s.StoreID,
		Sequence:    s.Sequence,
		ConnectedAt: s.ConnectedAt,
	}
}
