package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"certigen/internal/access"
	"certigen/internal/account"
	"certigen/internal/domain"
)

// AuthHandler handles signup, login and password recovery.
type AuthHandler struct {
	accounts *account.Service
	gate     *access.Gate
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(accounts *account.Service, gate *access.Gate, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		gate:     gate,
		logger:   logger.With(slog.String("handler", "auth")),
	}
}

// Routes returns the chi router for auth endpoints.
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/signup", h.Signup)
	r.Post("/login", h.Login)
	r.Get("/security-question", h.SecurityQuestion)
	r.Post("/reset-password", h.ResetPassword)
	return r
}

// SignupRequest is the account creation payload.
type SignupRequest struct {
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required"`
	SecurityQuestion string `json:"security_question" validate:"required"`
	SecurityAnswer   string `json:"security_answer" validate:"required"`
}

// Bind implements the render.Binder interface.
func (s *SignupRequest) Bind(r *http.Request) error {
	return validate.Struct(s)
}

// LoginRequest is the authentication payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Bind implements the render.Binder interface.
func (l *LoginRequest) Bind(r *http.Request) error {
	return validate.Struct(l)
}

// ResetPasswordRequest is the recovery payload.
type ResetPasswordRequest struct {
	Email          string `json:"email" validate:"required,email"`
	SecurityAnswer string `json:"security_answer" validate:"required"`
	NewPassword    string `json:"new_password" validate:"required"`
}

// Bind implements the render.Binder interface.
func (p *ResetPasswordRequest) Bind(r *http.Request) error {
	return validate.Struct(p)
}

// LoginResponse carries the routing destination alongside the account.
type LoginResponse struct {
	Destination access.Destination `json:"destination"`
	Account     domain.Account     `json:"account"`
	TraceID     string             `json:"trace_id"`
	Timestamp   time.Time          `json:"timestamp"`
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	data := &SignupRequest{}
	if err := render.Bind(r, data); err != nil {
		renderBadRequest(w, r, err)
		return
	}

	created, err := h.accounts.Create(r.Context(), data.Email, data.Password, data.SecurityQuestion, data.SecurityAnswer)
	if err != nil {
		renderDomainError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"account":  created.Sanitized(),
		"trace_id": traceID(r),
	})
}

// Login handles POST /api/auth/login. The response destination follows
// the gate ordering; a blocked account fails before any routing.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	data := &LoginRequest{}
	if err := render.Bind(r, data); err != nil {
		renderBadRequest(w, r, err)
		return
	}

	acct, err := h.accounts.Authenticate(r.Context(), data.Email, data.Password)
	if err != nil {
		renderDomainError(w, r, err)
		return
	}

	dest := h.gate.Route(acct)

	h.logger.InfoContext(r.Context(), "login routed",
		slog.String("email", acct.Email),
		slog.String("destination", string(dest)),
	)

	render.JSON(w, r, LoginResponse{
		Destination: dest,
		Account:     acct.Sanitized(),
		TraceID:     traceID(r),
		Timestamp:   time.Now(),
	})
}

// SecurityQuestion handles GET /api/auth/security-question?email=.
func (h *AuthHandler) SecurityQuestion(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		renderBadRequest(w, r, errMissingEmail)
		return
	}

	question, err := h.accounts.SecurityQuestion(r.Context(), email)
	if err != nil {
		renderDomainError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"security_question": question,
		"trace_id":          traceID(r),
	})
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	data := &ResetPasswordRequest{}
	if err := render.Bind(r, data); err != nil {
		renderBadRequest(w, r, err)
		return
	}

	if err := h.accounts.ResetPassword(r.Context(), data.Email, data.SecurityAnswer, data.NewPassword); err != nil {
		renderDomainError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"success":  true,
		"message":  "Password reset successful.",
		"trace_id": traceID(r),
	})
}

var errMissingEmail = errors.New("email query parameter is required")
