package http

import (
	"errors"
	"net/http"

	"github.com/storelink/kioskd/internal/kiosk/service"
	"github.com/storelink/kioskd/pkg/httpx"
	"github.com/storelink/kioskd/pkg/slogx"
)

type RefreshHandler struct {
	Accounts *service.AccountService
}

type refreshRequest struct {
	RefreshCredential string `json:"refresh_credential"`
}

// ServeHTTP exchanges a refresh credential for a fresh token pair.
//
//	@Summary		Refresh an access token
//	@Description	Exchanges a live refresh credential for a fresh access token, rotating the credential.
//	@Description	An expired credential is consumed and the client must log in again.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		refreshRequest	true	"Refresh credential"
//	@Success		200		{object}	domain.TokenPair
//	@Failure		400		{object}	httpx.ErrorResponse	"Malformed request"
//	@Failure		401		{object}	httpx.ErrorResponse	"Unknown, rotated or expired credential"
//	@Router			/v1/auth/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.RefreshCredential == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "refresh_credential is required")
		return
	}

	pair, err := h.Accounts.Refresh(ctx, req.RefreshCredential)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRefreshCredential):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credential", "refresh credential is not recognised")
		case errors.Is(err, service.ErrRefreshExpired):
			httpx.WriteError(w, http.StatusUnauthorized, "credential_expired", "refresh credential has expired, log in again")
		case errors.Is(err, service.ErrAccountDisabled):
			httpx.WriteError(w, http.StatusForbidden, "account_disabled", "account is not active")
		default:
			log.Error("refresh failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, pair)
}
