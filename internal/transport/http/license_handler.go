package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"certigen/internal/account"
	"certigen/internal/domain"
	errs "certigen/internal/errors"
	"certigen/internal/license"
)

// LicenseHandler exposes license status and activation-key redemption.
type LicenseHandler struct {
	accounts *account.Service
	registry *license.Registry
	metrics  *license.Metrics
	logger   *slog.Logger
}

// NewLicenseHandler creates a new license handler. metrics may be nil.
func NewLicenseHandler(accounts *account.Service, registry *license.Registry, metrics *license.Metrics, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		accounts: accounts,
		registry: registry,
		metrics:  metrics,
		logger:   logger.With(slog.String("handler", "license")),
	}
}

// Routes returns the chi router for license endpoints.
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/status", h.Status)
	r.Post("/redeem", h.Redeem)
	return r
}

// RedeemRequest is the key activation payload.
type RedeemRequest struct {
	Email string `json:"email" validate:"required,email"`
	Key   string `json:"key" validate:"required"`
}

// Bind implements the render.Binder interface.
func (rr *RedeemRequest) Bind(r *http.Request) error {
	return validate.Struct(rr)
}

// StatusResponse is the license view returned to the UI.
type StatusResponse struct {
	Status     domain.LicenseStatus `json:"status"`
	Plan       domain.Plan          `json:"plan"`
	ExpiryDate time.Time            `json:"expiry_date"`
	DaysLeft   int                  `json:"days_left"`
	DeviceID   string               `json:"device_id"`
	TraceID    string               `json:"trace_id"`
}

// Status handles GET /api/license/status?email=. The account's license
// is evaluated on read, so an expiry that passed since the last write is
// reported (and persisted) as expired.
func (h *LicenseHandler) Status(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		renderBadRequest(w, r, errMissingEmail)
		return
	}

	acct, err := h.accounts.Get(r.Context(), email)
	if err != nil {
		renderDomainError(w, r, err)
		return
	}

	days := daysLeft(acct.License.ExpiryDate)
	if acct.License.Status == domain.LicenseExpired || days < 0 {
		days = 0
	}

	render.JSON(w, r, StatusResponse{
		Status:     acct.License.Status,
		Plan:       acct.License.Plan,
		ExpiryDate: acct.License.ExpiryDate,
		DaysLeft:   days,
		DeviceID:   acct.License.DeviceID,
		TraceID:    traceID(r),
	})
}

// Redeem handles POST /api/license/redeem. The key is consumed and the
// account's license extended by the key's duration in one request; a
// malformed key fails before the registry is touched.
func (h *LicenseHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	data := &RedeemRequest{}
	if err := render.Bind(r, data); err != nil {
		renderBadRequest(w, r, err)
		return
	}

	if !h.registry.ValidFormat(data.Key) {
		renderDomainError(w, r, errs.ErrInvalidKeyFormat)
		return
	}

	// Resolve the account first so a valid key is never burned on a
	// non-existent email.
	acct, err := h.accounts.Get(r.Context(), data.Email)
	if err != nil {
		renderDomainError(w, r, err)
		return
	}

	normalized := license.Normalize(data.Key)
	days, err := h.registry.Redeem(r.Context(), normalized, acct.Email)
	if err != nil {
		renderDomainError(w, r, err)
		return
	}

	extended, err := h.accounts.ExtendLicense(r.Context(), acct.Email, days, domain.PlanPro, normalized)
	if err != nil {
		renderDomainError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "key redeemed",
		slog.String("email", extended.Email),
		slog.Int("days", days),
	)
	if h.metrics != nil {
		h.metrics.RecordExtension(r.Context(), "redemption")
	}

	render.JSON(w, r, map[string]interface{}{
		"success":     true,
		"days_added":  days,
		"expiry_date": extended.License.ExpiryDate,
		"plan":        extended.License.Plan,
		"trace_id":    traceID(r),
	})
}
