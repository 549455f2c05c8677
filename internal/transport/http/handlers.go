// Package http contains the chi handlers exposing the license and
// access-control subsystem to the bundled UI. Handlers are thin
// adapters: validation of payload shape happens here, every invariant
// lives in the service packages.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	errs "certigen/internal/errors"
	"certigen/internal/infrastructure"
	"certigen/internal/middleware"
)

var validate = validator.New()

// traceID resolves the trace id for a request, falling back to the
// request id.
func traceID(r *http.Request) string {
	ctx := r.Context()
	if id := infrastructure.GetTraceID(ctx); id != "" {
		return id
	}
	return middleware.GetReqID(ctx)
}

// renderDomainError maps a service error onto its RFC 7807 response.
func renderDomainError(w http.ResponseWriter, r *http.Request, err error) {
	render.Render(w, r, errs.MapDomainError(err, r.URL.Path, traceID(r)))
}

// renderBadRequest renders a malformed-payload problem.
func renderBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	render.Render(w, r, errs.InvalidRequest(err, r.URL.Path, traceID(r)))
}

// daysLeft computes whole days until expiry, truncating both ends to day
// precision to avoid floating point drift around midnight.
func daysLeft(expiry time.Time) int {
	now := time.Now()
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	expiryDay := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 0, 0, 0, 0, expiry.Location())
	return int(expiryDay.Sub(nowDay).Hours() / 24)
}
