package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"certigen/internal/account"
	"certigen/internal/domain"
	"certigen/internal/license"
	"certigen/internal/payment"
)

// AdminHandler exposes the administrative surface: account management,
// key issuance, payment decisions, and the dashboard stats rollup.
// Authorization is the embedding UI's concern; the subsystem trusts the
// caller the same way the rest of the local API does.
type AdminHandler struct {
	accounts *account.Service
	registry *license.Registry
	payments *payment.Workflow
	logger   *slog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(accounts *account.Service, registry *license.Registry, payments *payment.Workflow, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		accounts: accounts,
		registry: registry,
		payments: payments,
		logger:   logger.With(slog.String("handler", "admin")),
	}
}

// Routes returns the chi router for admin endpoints.
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.ListAccounts)
		r.Post("/approval", h.SetApproval)
		r.Post("/password", h.SetPassword)
		r.Post("/delete", h.DeleteAccounts)
	})

	r.Route("/keys", func(r chi.Router) {
		r.Get("/", h.ListKeys)
		r.Post("/", h.GenerateKey)
		r.Post("/delete", h.DeleteKeys)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Get("/", h.ListPayments)
		r.Post("/{id}/decision", h.DecidePayment)
		r.Post("/delete", h.DeletePayments)
	})

	r.Get("/stats", h.Stats)

	return r
}

// ApprovalRequest toggles the approval and block flags on an account.
type ApprovalRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Approved bool   `json:"approved"`
	Blocked  bool   `json:"blocked"`
}

// Bind implements the render.Binder interface.
func (a *ApprovalRequest) Bind(r *http.Request) error {
	return validate.Struct(a)
}

// PasswordRequest replaces an account's password without a check.
type PasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	NewPassword string `json:"new_password" validate:"required"`
}

// Bind implements the render.Binder interface.
func (p *PasswordRequest) Bind(r *http.Request) error {
	return validate.Struct(p)
}

// DeleteAccountsRequest names the accounts to remove.
type DeleteAccountsRequest struct {
	Emails []string `json:"emails" validate:"required,min=1"`
}

// Bind implements the render.Binder interface.
func (d *DeleteAccountsRequest) Bind(r *http.Request) error {
	return validate.Struct(d)
}

// GenerateKeyRequest asks for a fresh activation key.
type GenerateKeyRequest struct {
	DurationDays int `json:"duration_days" validate:"required,gt=0"`
}

// Bind implements the render.Binder interface.
func (g *GenerateKeyRequest) Bind(r *http.Request) error {
	return validate.Struct(g)
}

// DeleteKeysRequest names the keys to remove.
type DeleteKeysRequest struct {
	Keys []string `json:"keys" validate:"required,min=1"`
}

// Bind implements the render.Binder interface.
func (d *DeleteKeysRequest) Bind(r *http.Request) error {
	return validate.Struct(d)
}

// DecisionRequest carries the terminal approve/reject verdict.
type DecisionRequest struct {
	Approve bool `json:"approve"`
}

// Bind implements the render.Binder interface.
func (d *DecisionRequest) Bind(r *http.Request) error {
	return nil
}

// DeletePaymentsRequest names the payment requests to remove.
type DeletePaymentsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

// Bind implements the render.Binder interface.
func (d *DeletePaymentsRequest) Bind(r *http.Request) error {
	return validate.Struct(d)
}

// StatsResponse is the admin dashboard rollup.
type StatsResponse struct {
	TotalAccounts   int           `json:"total_accounts"`
	PendingApproval int           `json:"pending_approval"`
	BlockedAccounts int           `json:"blocked_accounts"`
	ActiveLicenses  int           `json:"active_licenses"`
	ExpiredLicenses int           `json:"expired_licenses"`
	TotalKeys       int           `json:"total_keys"`
	UnusedKeys      int           `json:"unused_keys"`
	Payments        payment.Stats `json:"payments"`
	TraceID         string        `json:"trace_id"`
}

// ListAccounts handles GET /api/admin/accounts. Passwords and security
// answers are stripped before the wire.
func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		renderDomainError(w, r, err)
		return
	}

	sanitized := make([]domain.Account, 0, len(accounts))
	for _, a := range accounts {
		sanitized = append(sanitized, a.Sanitized())
	}

	render.JSON(w, r, map[string]interface{}{
		"accounts": sanitized,
		"trace_id": traceID(r),
	})
}

// SetApproval handles POST /api/admin/accounts/approval.
func (h *AdminHandler) SetApproval(w http.ResponseWriter, r *http.Request) {
	data := &ApprovalRequest{}
	if err := render.Bind(r, data); err != nil {
		renderBadRequest(w, r, err)
		return
	}

	if err := h.accounts.SetApproval(r.Context(), data.Email, data.Approved, data.Blocked); err != nil {
		renderDomainError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "account flags updated",
		slog.String("email", data.Email),
		slog.Bool("approved", data.Approved),
		slog.Bool("blocked", data.Blocked),
	)
	render.JSON(w, r, map[string]interface{}{"success": true, "trace_id": traceID(r)})
}

// SetPassword handles POST /api/admin/accounts/password.
func (h *AdminHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	data := &PasswordRequest{}
	if err := render.Bind(r, data); err != nil {
		renderBadRequest(w, r, err)
		return
	}

	if err := h.accounts.SetPassword(r.Context(), data.Email, data.NewPassword); err != nil {
		renderDomainError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "account password replaced", slog.String("email", data.Email))
	render.JSON(w, r, map[string]interface{}{"success": true, "trace_id": traceID(r)})
}

// DeleteAccounts handles POST /api/admin/accounts/delete.
func (h *AdminHandler) DeleteAccounts(w http.ResponseWriter, r *http.Request) {
	data := &DeleteAccountsRequest{}
	if err := render.Bind(r, data); err != nil {
		renderBadRequest(w, r, err)
		return
	}

	if err := h.accounts.Delete(r.Context(), data.Emails); err != nil {
		renderDomainError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "accounts deleted", slog.Int("count", len(data.Emails)))
	render.JSON(w, r, map[string]interface{}{"success": true, "trace_id": traceID(r)})
}

// ListKeys handles GET /api/admin/keys.
func (h *AdminHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.registry.List(r.Context())
	if err != nil {
		renderDomainError(w, r, err)
		return
	}
	if keys == nil {
		keys = []domain.ActivationKey{}
	}

	render.JSON(w, r, map[string]interface{}{
		"keys":     keys,
		"trace_id": traceID(r),
	})
}

// GenerateKey handles POST /api/admin/keys.
func (h *AdminHandler) GenerateKey(w http.ResponseWriter, r *http.Request) {
	data := &GenerateKeyRequest{}
	if err := render.Bind(r, data); err != nil {
		renderBadRequest(w, r, err)
		return
	}

	key, err := h.registry.Generate(r.Context(), data.DurationDays)
	if err != nil {
		renderDomainError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"key":      key,
		"trace_id": traceID(r),
	})
}

// DeleteKeys handles POST /api/admin/keys/delete.
func (h *AdminHandler) DeleteKeys(w http.ResponseWriter, r *http.Request) {
	data := &DeleteKeysRequest{}
	if err := render.Bind(r, data); err != nil {
		renderBadRequest(w, r, err)
		return
	}

	if err := h.registry.Delete(r.Context(), data.Keys); err != nil {
		renderDomainError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{"success": true, "trace_id": traceID(r)})
}

// ListPayments handles GET /api/admin/payments.
func (h *AdminHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.payments.List(r.Context())
	if err != nil {
		renderDomainError(w, r, err)
		return
	}
	if payments == nil {
		payments = []domain.PaymentRequest{}
	}

	render.JSON(w, r, map[string]interface{}{
		"payments": payments,
		"trace_id": traceID(r),
	})
}

// DecidePayment handles POST /api/admin/payments/{id}/decision.
func (h *AdminHandler) DecidePayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	data := &DecisionRequest{}
	if err := render.Bind(r, data); err != nil {
		renderBadRequest(w, r, err)
		return
	}

	decided, err := h.payments.Decide(r.Context(), id, data.Approve)
	if err != nil {
		renderDomainError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"payment":  decided,
		"trace_id": traceID(r),
	})
}

// DeletePayments handles POST /api/admin/payments/delete.
func (h *AdminHandler) DeletePayments(w http.ResponseWriter, r *http.Request) {
	data := &DeletePaymentsRequest{}
	if err := render.Bind(r, data); err != nil {
		renderBadRequest(w, r, err)
		return
	}

	if err := h.payments.Delete(r.Context(), data.IDs); err != nil {
		renderDomainError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{"success": true, "trace_id": traceID(r)})
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		renderDomainError(w, r, err)
		return
	}
	keys, err := h.registry.List(r.Context())
	if err != nil {
		renderDomainError(w, r, err)
		return
	}
	payStats, err := h.payments.Stats(r.Context())
	if err != nil {
		renderDomainError(w, r, err)
		return
	}

	resp := StatsResponse{
		TotalAccounts: len(accounts),
		TotalKeys:     len(keys),
		Payments:      payStats,
		TraceID:       traceID(r),
	}
	for _, a := range accounts {
		if a.IsBlocked {
			resp.BlockedAccounts++
		}
		if !a.IsApproved && !a.IsAdmin {
			resp.PendingApproval++
		}
		if a.License.Status == domain.LicenseExpired {
			resp.ExpiredLicenses++
		} else {
			resp.ActiveLicenses++
		}
	}
	for _, k := range keys {
		if !k.IsUsed {
			resp.UnusedKeys++
		}
	}

	render.JSON(w, r, resp)
}
