package http

import (
	"net/http"

	"github.com/storelink/kioskd/internal/kiosk/gate"
	"github.com/storelink/kioskd/pkg/httpx"
)

type MeHandler struct{}

// ServeHTTP returns the authenticated account.
//
//	@Summary		Get the authenticated account
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	AccountResponse
//	@Failure		401	{object}	httpx.ErrorResponse	"Not authenticated"
//	@Router			/v1/accounts/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, ok := gate.AccountFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "valid credentials required")
		return
	}

	account := principal.Account
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, AccountResponse{
		ID:          account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		Role:        string(account.Role),
		CreatedAt:   account.CreatedAt,
	})
}
