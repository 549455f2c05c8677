package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"certigen/internal/domain"
	"certigen/internal/payment"
)

// PaymentHandler exposes the user-facing payment-proof endpoints.
type PaymentHandler struct {
	payments *payment.Workflow
	logger   *slog.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(payments *payment.Workflow, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		logger:   logger.With(slog.String("handler", "payment")),
	}
}

// Routes returns the chi router for payment endpoints.
func (h *PaymentHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Submit)
	r.Get("/", h.List)
	return r
}

// SubmitRequest is the payment-proof payload.
type SubmitRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Method        string `json:"method" validate:"required"`
	SenderName    string `json:"sender_name" validate:"required"`
	TransactionID string `json:"transaction_id" validate:"required"`
	Amount        string `json:"amount" validate:"required"`
	ProofImageRef string `json:"proof_image_ref"`
}

// Bind implements the render.Binder interface.
func (s *SubmitRequest) Bind(r *http.Request) error {
	return validate.Struct(s)
}

// Submit handles POST /api/payments. The submission lands pending and
// waits for an administrator decision.
func (h *PaymentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	data := &SubmitRequest{}
	if err := render.Bind(r, data); err != nil {
		renderBadRequest(w, r, err)
		return
	}

	req, err := h.payments.Submit(r.Context(), payment.Submission{
		UserEmail:     data.Email,
		Method:        domain.PaymentMethod(data.Method),
		SenderName:    data.SenderName,
		TransactionID: data.TransactionID,
		Amount:        data.Amount,
		ProofImageRef: data.ProofImageRef,
	})
	if err != nil {
		renderDomainError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"payment":  req,
		"trace_id": traceID(r),
	})
}

// List handles GET /api/payments?email=, returning the caller's own
// submission history.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		renderBadRequest(w, r, errMissingEmail)
		return
	}

	payments, err := h.payments.ListForUser(r.Context(), email)
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
