package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/render"
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface.
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON flattens extensions into the problem document.
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})
	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status
	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}
	for k, v := range pd.Extensions {
		data[k] = v
	}
	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error.
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details.
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// problemSpec pairs a sentinel with the problem document it maps to.
type problemSpec struct {
	err         error
	status      int
	problemType string
	title       string
}

var problemSpecs = []problemSpec{
	{ErrDuplicateEmail, http.StatusConflict, "/errors/duplicate-email", "Email Already Registered"},
	{ErrInvalidEmailDomain, http.StatusBadRequest, "/errors/invalid-email-domain", "Email Domain Not Allowed"},
	{ErrWeakPassword, http.StatusBadRequest, "/errors/weak-password", "Password Too Short"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "/errors/invalid-credentials", "Invalid Credentials"},
	{ErrBlocked, http.StatusForbidden, "/errors/account-blocked", "Account Blocked"},
	{ErrAnswerMismatch, http.StatusUnauthorized, "/errors/answer-mismatch", "Incorrect Security Answer"},
	{ErrAccountNotFound, http.StatusNotFound, "/errors/account-not-found", "Account Not Found"},
	{ErrInvalidOrUsedKey, http.StatusBadRequest, "/errors/invalid-or-used-key", "Invalid Or Used Activation Key"},
	{ErrInvalidKeyFormat, http.StatusBadRequest, "/errors/invalid-key-format", "Invalid Activation Key Format"},
	{ErrAlreadyPending, http.StatusConflict, "/errors/payment-already-pending", "Pending Request Exists"},
	{ErrDuplicateTransactionID, http.StatusConflict, "/errors/duplicate-transaction-id", "Transaction ID Already Used"},
	{ErrAlreadyDecided, http.StatusConflict, "/errors/payment-already-decided", "Payment Request Already Decided"},
	{ErrPaymentNotFound, http.StatusNotFound, "/errors/payment-not-found", "Payment Request Not Found"},
	{ErrInvalidPaymentMethod, http.StatusBadRequest, "/errors/invalid-payment-method", "Invalid Payment Method"},
	{ErrStorageFull, http.StatusInsufficientStorage, "/errors/storage-full", "Storage Quota Exceeded"},
	{ErrSchemaVersion, http.StatusInternalServerError, "/errors/schema-version", "Unsupported Schema Version"},
}

// MapDomainError translates a service error into its RFC 7807 response.
// Unrecognized errors become a generic 500 with the error text in detail.
func MapDomainError(err error, instance, traceID string) *ProblemDetails {
	for _, spec := range problemSpecs {
		if errors.Is(err, spec.err) {
			return NewProblemDetails(spec.status, spec.problemType, spec.title, spec.err.Error(), instance).
				WithExtension("trace_id", traceID)
		}
	}
	return NewProblemDetails(http.StatusInternalServerError, "/errors/internal", "Internal Server Error", err.Error(), instance).
		WithExtension("trace_id", traceID)
}

// InvalidRequest builds the problem document for malformed or
// validation-failed request payloads.
func InvalidRequest(err error, instance, traceID string) *ProblemDetails {
	return NewProblemDetails(http.StatusBadRequest, "/errors/invalid-request", "Invalid Request", err.Error(), instance).
		WithExtension("trace_id", traceID)
}
