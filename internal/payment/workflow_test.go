package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certigen/internal/account"
	"certigen/internal/config"
	"certigen/internal/domain"
	errs "certigen/internal/errors"
	"certigen/internal/license"
	"certigen/internal/store"
)

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	workflow *Workflow
	accounts *account.Service
	store    *store.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.New(t.TempDir(), 1<<20, nil)
	require.NoError(t, err)

	engine := license.NewEngineWithClock(func() time.Time { return testNow })
	accounts := account.NewService(st, engine, nil,
		config.AccountConfig{AllowedDomain: "gmail.com", MinPasswordLength: 4},
		config.AdminConfig{Email: "admin@educert.pro", Password: "admin123"},
		3, nil)

	w := NewWorkflow(st, accounts, 365, nil, nil)
	w.now = func() time.Time { return testNow }

	return &fixture{workflow: w, accounts: accounts, store: st}
}

func submission(email, txid string) Submission {
	return Submission{
		UserEmail:     email,
		Method:        domain.MethodEasypaisa,
		SenderName:    "Test Sender",
		TransactionID: txid,
		Amount:        "1500",
	}
}

func TestSubmitRecordsPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.workflow.Submit(ctx, submission("User@Gmail.com", " TX100 "))
	require.NoError(t, err)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "user@gmail.com", req.UserEmail)
	assert.Equal(t, "TX100", req.TransactionID)
	assert.Equal(t, domain.PaymentPending, req.Status)
	assert.Equal(t, testNow, req.Date)
}

func TestSubmitRejectsUnknownMethod(t *testing.T) {
	f := newFixture(t)

	sub := submission("user@gmail.com", "TX100")
	sub.Method = "paypal"
	_, err := f.workflow.Submit(context.Background(), sub)
	assert.ErrorIs(t, err, errs.ErrInvalidPaymentMethod)
}

func TestSubmitRejectsSecondPendingForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.workflow.Submit(ctx, submission("user@gmail.com", "TX100"))
	require.NoError(t, err)

	_, err = f.workflow.Submit(ctx, submission("user@gmail.com", "TX200"))
	assert.ErrorIs(t, err, errs.ErrAlreadyPending)

	// A different user with a fresh transaction id is unaffected.
	_, err = f.workflow.Submit(ctx, submission("other@gmail.com", "TX300"))
	assert.NoError(t, err)
}

func TestSubmitAllowedAgainAfterDecision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.workflow.Submit(ctx, submission("user@gmail.com", "TX100"))
	require.NoError(t, err)
	_, err = f.workflow.Decide(ctx, first.ID, false)
	require.NoError(t, err)

	_, err = f.workflow.Submit(ctx, submission("user@gmail.com", "TX200"))
	assert.NoError(t, err)
}

func TestSubmitRejectsDuplicateTransactionID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.workflow.Submit(ctx, submission("user@gmail.com", "TX100"))
	require.NoError(t, err)

	// Duplicate transaction ids are rejected across users and even after
	// the original request is decided.
	_, err = f.workflow.Decide(ctx, first.ID, false)
	require.NoError(t, err)

	_, err = f.workflow.Submit(ctx, submission("other@gmail.com", "tx100"))
	assert.ErrorIs(t, err, errs.ErrDuplicateTransactionID)
}

func TestApproveExtendsLicense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.accounts.Create(ctx, "user@gmail.com", "pass", "q", "a")
	require.NoError(t, err)

	req, err := f.workflow.Submit(ctx, submission("user@gmail.com", "TX100"))
	require.NoError(t, err)

	decided, err := f.workflow.Decide(ctx, req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentApproved, decided.Status)

	acct, err := f.accounts.Get(ctx, "user@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, domain.LicenseActive, acct.License.Status)
	assert.Equal(t, domain.PlanPro, acct.License.Plan)
	assert.Equal(t, testNow.Add(365*24*time.Hour), acct.License.ExpiryDate)
}

func TestRejectLeavesLicenseUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.accounts.Create(ctx, "user@gmail.com", "pass", "q", "a")
	require.NoError(t, err)

	req, err := f.workflow.Submit(ctx, submission("user@gmail.com", "TX100"))
	require.NoError(t, err)

	decided, err := f.workflow.Decide(ctx, req.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRejected, decided.Status)

	acct, err := f.accounts.Get(ctx, "user@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, domain.LicenseTrial, acct.License.Status)
	assert.Equal(t, domain.PlanFree, acct.License.Plan)
}

func TestDecisionIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.workflow.Submit(ctx, submission("user@gmail.com", "TX100"))
	require.NoError(t, err)

	_, err = f.workflow.Decide(ctx, req.ID, false)
	require.NoError(t, err)

	// Neither a repeat nor a reversal is allowed.
	_, err = f.workflow.Decide(ctx, req.ID, false)
	assert.ErrorIs(t, err, errs.ErrAlreadyDecided)
	_, err = f.workflow.Decide(ctx, req.ID, true)
	assert.ErrorIs(t, err, errs.ErrAlreadyDecided)
}

func TestDecideUnknownID(t *testing.T) {
	f := newFixture(t)

	_, err := f.workflow.Decide(context.Background(), "no-such-id", true)
	assert.ErrorIs(t, err, errs.ErrPaymentNotFound)
}

func TestApproveForVanishedAccountStillDecides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.workflow.Submit(ctx, submission("ghost@gmail.com", "TX100"))
	require.NoError(t, err)

	decided, err := f.workflow.Decide(ctx, req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentApproved, decided.Status)

	stored, err := f.store.Payments()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, domain.PaymentApproved, stored[0].Status)
}

func TestListForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.workflow.Submit(ctx, submission("user@gmail.com", "TX100"))
	require.NoError(t, err)
	_, err = f.workflow.Decide(ctx, first.ID, false)
	require.NoError(t, err)
	_, err = f.workflow.Submit(ctx, submission("user@gmail.com", "TX200"))
	require.NoError(t, err)
	_, err = f.workflow.Submit(ctx, submission("other@gmail.com", "TX300"))
	require.NoError(t, err)

	mine, err := f.workflow.ListForUser(ctx, "USER@gmail.com")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.workflow.Submit(ctx, submission("a@gmail.com", "TX1"))
	require.NoError(t, err)
	second, err := f.workflow.Submit(ctx, submission("b@gmail.com", "TX2"))
	require.NoError(t, err)
	_, err = f.workflow.Submit(ctx, submission("c@gmail.com", "TX3"))
	require.NoError(t, err)

	_, err = f.workflow.Decide(ctx, first.ID, true)
	require.NoError(t, err)
	_, err = f.workflow.Decide(ctx, second.ID, false)
	require.NoError(t, err)

	stats, err := f.workflow.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Pending: 1, Approved: 1, Rejected: 1, Revenue: 1500}, stats)
}

func TestStatsSkipsUnparseableAmounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub := submission("a@gmail.com", "TX1")
	sub.Amount = "Rs. 1500"
	req, err := f.workflow.Submit(ctx, sub)
	require.NoError(t, err)
	_, err = f.workflow.Decide(ctx, req.ID, true)
	require.NoError(t, err)

	stats, err := f.workflow.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Revenue)
	assert.Equal(t, 1, stats.Approved)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.workflow.Submit(ctx, submission("a@gmail.com", "TX1"))
	require.NoError(t, err)
	second, err := f.workflow.Submit(ctx, submission("b@gmail.com", "TX2"))
	require.NoError(t, err)

	require.NoError(t, f.workflow.Delete(ctx, []string{first.ID, "ghost"}))

	all, err := f.workflow.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, second.ID, all[0].ID)
}
