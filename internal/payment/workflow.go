// Package payment implements the payment-proof workflow: submission with
// the anti-fraud invariants (one pending request per user, globally
// unique transaction ids) and the terminal administrator decision that
// drives the license extension.
package payment

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"certigen/internal/account"
	"certigen/internal/domain"
	errs "certigen/internal/errors"
	"certigen/internal/license"
	"certigen/internal/store"
)

// Submission carries the user-supplied fields of a payment proof.
type Submission struct {
	UserEmail     string
	Method        domain.PaymentMethod
	SenderName    string
	TransactionID string
	Amount        string
	ProofImageRef string
}

// Stats summarizes the payment collection for the admin dashboard.
type Stats struct {
	Pending  int   `json:"pending"`
	Approved int   `json:"approved"`
	Rejected int   `json:"rejected"`
	Revenue  int64 `json:"revenue"`
}

// Workflow records submissions and applies administrator decisions.
type Workflow struct {
	store     *store.Store
	accounts  *account.Service
	grantDays int
	now       func() time.Time
	newID     func() string
	logger    *slog.Logger
	metrics   *license.Metrics
}

// NewWorkflow builds the payment workflow. An approved payment extends
// the account's license by grantDays on the pro plan. metrics may be nil.
func NewWorkflow(st *store.Store, accounts *account.Service, grantDays int, logger *slog.Logger, metrics *license.Metrics) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		store:     st,
		accounts:  accounts,
		grantDays: grantDays,
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    logger.With(slog.String("component", "payment_workflow")),
		metrics:   metrics,
	}
}

// Submit validates and records a payment proof with status pending.
// Both invariants are checked before any write: a user may have at most
// one pending request, and a transaction id may appear at most once
// across all requests regardless of status. A quota-rejected write
// surfaces ErrStorageFull with nothing persisted.
func (w *Workflow) Submit(ctx context.Context, sub Submission) (domain.PaymentRequest, error) {
	if !sub.Method.Valid() {
		return domain.PaymentRequest{}, errs.ErrInvalidPaymentMethod
	}

	req := domain.PaymentRequest{
		ID:            w.newID(),
		UserEmail:     strings.ToLower(strings.TrimSpace(sub.UserEmail)),
		Method:        sub.Method,
		SenderName:    sub.SenderName,
		TransactionID: strings.TrimSpace(sub.TransactionID),
		Amount:        sub.Amount,
		ProofImageRef: sub.ProofImageRef,
		Status:        domain.PaymentPending,
		Date:          w.now(),
	}

	err := w.store.UpdatePayments(func(payments []domain.PaymentRequest) ([]domain.PaymentRequest, error) {
		for _, p := range payments {
			if p.UserEmail == req.UserEmail && p.Status == domain.PaymentPending {
				return nil, errs.ErrAlreadyPending
			}
			if strings.EqualFold(p.TransactionID, req.TransactionID) {
				return nil, errs.ErrDuplicateTransactionID
			}
		}
		return append(payments, req), nil
	})
	if err != nil {
		w.logger.WarnContext(ctx, "payment submission rejected",
			slog.String("email", req.UserEmail),
			slog.String("error", err.Error()),
		)
		return domain.PaymentRequest{}, err
	}

	w.logger.InfoContext(ctx, "payment proof submitted",
		slog.String("id", req.ID),
		slog.String("email", req.UserEmail),
		slog.String("method", string(req.Method)),
		slog.String("amount", req.Amount),
	)
	return req, nil
}

// Decide applies the terminal administrator decision. Approval extends
// the account's license on the pro plan; if the account no longer
// exists the decision still persists and the extension is skipped. A
// request that has already left pending cannot transition again.
func (w *Workflow) Decide(ctx context.Context, id string, approve bool) (domain.PaymentRequest, error) {
	status := domain.PaymentRejected
	if approve {
		status = domain.PaymentApproved
	}

	var decided domain.PaymentRequest
	err := w.store.UpdatePayments(func(payments []domain.PaymentRequest) ([]domain.PaymentRequest, error) {
		for i := range payments {
			if payments[i].ID != id {
				continue
			}
			if payments[i].Status != domain.PaymentPending {
				return nil, errs.ErrAlreadyDecided
			}
			payments[i].Status = status
			decided = payments[i]
			return payments, nil
		}
		return nil, errs.ErrPaymentNotFound
	})
	if err != nil {
		return domain.PaymentRequest{}, err
	}

	w.logger.InfoContext(ctx, "payment request decided",
		slog.String("id", id),
		slog.String("status", string(status)),
		slog.String("email", decided.UserEmail),
	)

	if approve {
		_, err := w.accounts.ExtendLicense(ctx, decided.UserEmail, w.grantDays, domain.PlanPro, "")
		if err != nil {
			// The decision on the payment record stands; an account
			// deleted since submission just misses the extension.
			w.logger.WarnContext(ctx, "license extension skipped",
				slog.String("id", id),
				slog.String("email", decided.UserEmail),
				slog.String("error", err.Error()),
			)
		} else if w.metrics != nil {
			w.metrics.RecordExtension(ctx, "payment")
		}
	}

	return decided, nil
}

// Delete removes the given payment requests. Administrative bulk
// cleanup; missing ids are ignored.
func (w *Workflow) Delete(ctx context.Context, ids []string) error {
	doomed := make(map[string]bool, len(ids))
	for _, id := range ids {
		doomed[id] = true
	}

	return w.store.UpdatePayments(func(payments []domain.PaymentRequest) ([]domain.PaymentRequest, error) {
		kept := payments[:0]
		for _, p := range payments {
			if !doomed[p.ID] {
				kept = append(kept, p)
			}
		}
		return kept, nil
	})
}

// List returns all payment requests.
func (w *Workflow) List(ctx context.Context) ([]domain.PaymentRequest, error) {
	return w.store.Payments()
}

// ListForUser returns the payment requests submitted by email.
func (w *Workflow) ListForUser(ctx context.Context, email string) ([]domain.PaymentRequest, error) {
	payments, err := w.store.Payments()
	if err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	var out []domain.PaymentRequest
	for _, p := range payments {
		if p.UserEmail == email {
			out = append(out, p)
		}
	}
	return out, nil
}

// Stats aggregates the collection for the admin dashboard. Revenue sums
// the amounts of approved requests; unparseable amounts are skipped.
func (w *Workflow) Stats(ctx context.Context) (Stats, error) {
	payments, err := w.store.Payments()
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for _, p := range payments {
		switch p.Status {
		case domain.PaymentPending:
			stats.Pending++
		case domain.PaymentApproved:
			stats.Approved++
			if amount, err := strconv.ParseInt(strings.TrimSpace(p.Amount), 10, 64); err == nil {
				stats.Revenue += amount
			}
		case domain.PaymentRejected:
			stats.Rejected++
		}
	}
	return stats, nil
}
