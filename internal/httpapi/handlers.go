package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/polyclinic/scheduler/internal/auth"
	"github.com/polyclinic/scheduler/internal/clinic"
	"github.com/polyclinic/scheduler/internal/obs"
	"github.com/polyclinic/scheduler/internal/stream"
)

const (
	serviceName  = "clinic-api"
	maxBodyBytes = 1 << 20
)

// ReadyProbe checks that the database answers.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// Option configures optional API collaborators.
type Option func(*API)

// WithLoginLimiter throttles token requests per client IP and username.
func WithLoginLimiter(l *auth.AttemptLimiter) Option {
	return func(a *API) { a.loginLimiter = l }
}

// WithResetLimiter throttles password reset requests per email.
func WithResetLimiter(l *auth.AttemptLimiter) Option {
	return func(a *API) { a.resetLimiter = l }
}

// WithRateLimit enables the per-IP request limit. burst <= 0 disables it.
func WithRateLimit(burst, perSecond int) Option {
	return func(a *API) {
		a.rateBurst = burst
		a.ratePerSecond = perSecond
	}
}

// WithCORSOrigins sets the origins allowed to call the API from a browser.
func WithCORSOrigins(origins []string) Option {
	return func(a *API) { a.corsOrigins = origins }
}

// WithEvents publishes appointment changes to hub and serves them as SSE.
func WithEvents(hub *stream.Hub) Option {
	return func(a *API) { a.events = hub }
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe readinessChecker
	version    string

	auth   *auth.Service
	clinic *clinic.Service
	events *stream.Hub

	loginLimiter  *auth.AttemptLimiter
	resetLimiter  *auth.AttemptLimiter
	rateBurst     int
	ratePerSecond int
	corsOrigins   []string
}

func New(rp readinessChecker, version string, authn *auth.Service, svc *clinic.Service, opts ...Option) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		auth:       authn,
		clinic:     svc,
	}
	for _, opt := range opts {
		opt(a)
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.HandleFunc("/v1/auth/token", a.handleToken)
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/password-reset/request", a.handleResetRequest)
	a.mux.HandleFunc("/v1/auth/password-reset/confirm", a.handleResetConfirm)

	// users
	a.mux.Handle("/v1/users", RequireRoles(auth.RoleAdmin)(http.HandlerFunc(a.handleUsers)))
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)

	// clinic resources
	a.mux.HandleFunc("/v1/doctors", a.handleDoctors)
	a.mux.HandleFunc("/v1/doctors/", a.handleDoctorResource)
	a.mux.HandleFunc("/v1/rooms", a.handleRooms)
	a.mux.HandleFunc("/v1/rooms/", a.handleRoomResource)
	a.mux.HandleFunc("/v1/appointments", a.handleAppointments)
	a.mux.Handle("/v1/appointments/events", RequireRoles(auth.RoleAdmin, auth.RoleDoctor)(http.HandlerFunc(a.Events)))
	a.mux.HandleFunc("/v1/appointments/", a.handleAppointmentResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.withAuth(a.mux)
	if a.rateBurst > 0 {
		h = RateLimit(h, a.rateBurst, a.ratePerSecond)
	}
	h = CORS(h, a.corsOrigins)
	h = SecurityHeaders(h)
	h = MaxBodyBytes(h, maxBodyBytes)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if a.readyProbe == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
		return
	}
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.LogError(r.Context(), nil, "readiness check failed", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
