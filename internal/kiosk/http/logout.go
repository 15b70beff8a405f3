package http

import (
	"net/http"

	"github.com/storelink/kioskd/internal/kiosk/domain"
	"github.com/storelink/kioskd/internal/kiosk/gate"
	"github.com/storelink/kioskd/internal/kiosk/service"
	"github.com/storelink/kioskd/pkg/httpx"
	"github.com/storelink/kioskd/pkg/slogx"
)

type LogoutHandler struct {
	Accounts *service.AccountService
}

type logoutRequest struct {
	// AppClass scopes the logout to one client category. Empty means log
	// out everywhere.
	AppClass string `json:"app_class,omitempty"`
}

// ServeHTTP revokes the caller's sessions.
//
//	@Summary		Log out
//	@Description	Revokes refresh credentials and invalidates every outstanding access token for the account.
//	@Description	With an app_class in the body only that class's refresh credential is removed; access tokens are invalidated either way.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			body	body	logoutRequest	false	"Scope"
//	@Success		204		"Logged out"
//	@Failure		400		{object}	httpx.ErrorResponse	"Unknown app_class"
//	@Failure		401		{object}	httpx.ErrorResponse	"Not authenticated"
//	@Router			/v1/auth/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	principal, ok := gate.AccountFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "valid credentials required")
		return
	}

	var class *domain.AppClass
	var req logoutRequest
	// The body is optional; an empty or absent body means everywhere.
	if err := httpx.DecodeJSON(r, &req); err == nil && req.AppClass != "" {
		parsed, err := domain.ParseAppClass(req.AppClass)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "unknown app_class")
			return
		}
		class = &parsed
	}

	if err := h.Accounts.Logout(ctx, principal.Account.ID, class); err != nil {
		log.Error("logout failed", "account", principal.Account.ID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
