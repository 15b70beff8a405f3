package http

import (
	"errors"
	"net/http"

	"github.com/storelink/kioskd/internal/kiosk/domain"
	"github.com/storelink/kioskd/internal/kiosk/service"
	"github.com/storelink/kioskd/pkg/httpx"
	"github.com/storelink/kioskd/pkg/slogx"
)

type LoginHandler struct {
	Accounts *service.AccountService
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	AppClass string `json:"app_class"`
}

// ServeHTTP handles password login.
//
//	@Summary		Log in with email and password
//	@Description	Verifies the password and returns a fresh access token plus an opaque refresh credential scoped to the app class.
//	@Description	Issuing a new token invalidates every access token the account held before.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		loginRequest	true	"Credentials"
//	@Success		200		{object}	domain.TokenPair
//	@Failure		400		{object}	httpx.ErrorResponse	"Malformed request"
//	@Failure		401		{object}	httpx.ErrorResponse	"Invalid credentials"
//	@Failure		403		{object}	httpx.ErrorResponse	"Account disabled"
//	@Router			/v1/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}
	class, err := domain.ParseAppClass(req.AppClass)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "unknown app_class")
		return
	}

	pair, err := h.Accounts.Login(ctx, req.Email, req.Password, class)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
		case errors.Is(err, service.ErrAccountDisabled):
			httpx.WriteError(w, http.StatusForbidden, "account_disabled", "account is not active")
		default:
			log.Error("login failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, pair)
}
