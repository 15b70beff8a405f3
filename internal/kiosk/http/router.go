package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/storelink/kioskd/internal/kiosk/domain"
	"github.com/storelink/kioskd/internal/kiosk/gate"
	"github.com/storelink/kioskd/internal/kiosk/observe"
	"github.com/storelink/kioskd/internal/kiosk/realtime"
	"github.com/storelink/kioskd/internal/kiosk/service"
	"github.com/storelink/kioskd/internal/kiosk/store"
	"github.com/storelink/kioskd/pkg/httpx"
	"github.com/storelink/kioskd/pkg/slogx"

	_ "github.com/storelink/kioskd/api/kiosk" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	metrics  *observe.Metrics
	registry *realtime.Registry

	AccountGate *gate.AccountGate
	DeviceGate  *gate.DeviceGate

	AccountService *service.AccountService
	DeviceService  *service.DeviceService

	Gateway http.Handler
}

func NewRouter(
	buildVersion string,
	st store.Store,
	metrics *observe.Metrics,
	registry *realtime.Registry,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
		metrics:      metrics,
		registry:     registry,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerDeviceAuth()
	r.registerAccounts()
	r.registerSessions()
	r.registerRealtime()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Kiosk Admin Auth API
//	@version		0.1.0
//	@description	Authentication and session management for the kiosk admin backend.
//	@description
//	@description				Two principal kinds exist: human accounts and kiosk terminals. Both carry
//	@description				version-stamped bearer tokens; bumping a principal's counter invalidates
//	@description				every token issued before the bump.
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	login := &LoginHandler{Accounts: r.AccountService}
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(login,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	refresh := &RefreshHandler{Accounts: r.AccountService}
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(refresh,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	logout := &LogoutHandler{Accounts: r.AccountService}
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(logout,
			r.AccountGate.Middleware(),
			gate.RequireAccount(),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerDeviceAuth() {
	token := &DeviceTokenHandler{Devices: r.DeviceService}
	if r.metrics != nil {
		token.OnIssued = func() { r.metrics.TokenIssued("device") }
	}
	r.Mux.Handle("POST /v1/device-auth/token",
		httpx.Chain(token,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	profile := &DeviceProfileHandler{}
	r.Mux.Handle("GET /v1/device/profile",
		httpx.Chain(profile,
			r.DeviceGate.Middleware(),
			gate.RequireDevice(),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerAccounts() {
	me := &MeHandler{}
	r.Mux.Handle("GET /v1/accounts/me",
		httpx.Chain(me,
			r.AccountGate.Middleware(),
			gate.RequireAccount(),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSessions() {
	sessions := &SessionsHandler{Registry: r.registry}
	r.Mux.Handle("GET /v1/sessions",
		httpx.Chain(http.HandlerFunc(sessions.List),
			r.AccountGate.Middleware(),
			gate.RequireRole(domain.RoleAdmin),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /v1/sessions/{deviceID}",
		httpx.Chain(http.HandlerFunc(sessions.Get),
			r.AccountGate.Middleware(),
			gate.RequireRole(domain.RoleAdmin),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerRealtime() {
	if r.Gateway == nil {
		return
	}
	r.Mux.Handle("GET /v1/realtime",
		httpx.Chain(r.Gateway,
			r.DeviceGate.Middleware(),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))

	if r.metrics != nil {
		r.Mux.Handle("GET /metrics", r.metrics.Handler())
	}
}
