package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certigen/internal/access"
	"certigen/internal/account"
	"certigen/internal/config"
	"certigen/internal/license"
	"certigen/internal/payment"
	"certigen/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	router   chi.Router
	accounts *account.Service
	registry *license.Registry
	payments *payment.Workflow
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st, err := store.New(t.TempDir(), 1<<20, nil)
	require.NoError(t, err)

	engine := license.NewEngine()
	accounts := account.NewService(st, engine, nil,
		config.AccountConfig{AllowedDomain: "gmail.com", MinPasswordLength: 4},
		config.AdminConfig{Email: "admin@educert.pro", Password: "admin123"},
		3, nil)
	registry := license.NewRegistry(st, "EDC", nil, nil)
	gate := access.NewGate(engine)
	payments := payment.NewWorkflow(st, accounts, 365, nil, nil)

	logger := testLogger()
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", HealthHandler)
		r.Mount("/auth", NewAuthHandler(accounts, gate, logger).Routes())
		r.Mount("/license", NewLicenseHandler(accounts, registry, nil, logger).Routes())
		r.Mount("/payments", NewPaymentHandler(payments, logger).Routes())
		r.Mount("/admin", NewAdminHandler(accounts, registry, payments, logger).Routes())
	})

	return &testServer{router: r, accounts: accounts, registry: registry, payments: payments}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestSignupAndLoginFlow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"email":             "user@gmail.com",
		"password":          "pass",
		"security_question": "pet?",
		"security_answer":   "rex",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	acct := decode(t, rec)["account"].(map[string]interface{})
	assert.Equal(t, "user@gmail.com", acct["email"])
	assert.Empty(t, acct["password"])

	rec = ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "user@gmail.com",
		"password": "pass",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	// Fresh accounts are unapproved.
	assert.Equal(t, string(access.DestPendingApproval), decode(t, rec)["destination"])
}

func TestSignupRejectsForeignDomainAsProblem(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"email":             "user@outlook.com",
		"password":          "pass",
		"security_question": "pet?",
		"security_answer":   "rex",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	problem := decode(t, rec)
	assert.Equal(t, "/errors/invalid-email-domain", problem["type"])
	assert.Equal(t, float64(http.StatusBadRequest), problem["status"])
}

func TestSignupRejectsMissingFields(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"email": "user@gmail.com",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)

	signup(t, ts, "user@gmail.com")

	rec := ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "user@gmail.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminLoginRoutesToPortal(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.accounts.Bootstrap(context.Background()))

	rec := ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "admin@educert.pro",
		"password": "admin123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(access.DestAdminPortal), decode(t, rec)["destination"])
}

func TestLicenseStatus(t *testing.T) {
	ts := newTestServer(t)
	signup(t, ts, "user@gmail.com")

	rec := ts.do(t, http.MethodGet, "/api/license/status?email=user@gmail.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	status := decode(t, rec)
	assert.Equal(t, "trial", status["status"])
	assert.Equal(t, "free", status["plan"])
	assert.InDelta(t, 3, status["days_left"].(float64), 1)
}

func TestRedeemFlow(t *testing.T) {
	ts := newTestServer(t)
	signup(t, ts, "user@gmail.com")

	rec := ts.do(t, http.MethodPost, "/api/admin/keys", map[string]int{"duration_days": 90})
	require.Equal(t, http.StatusCreated, rec.Code)
	key := decode(t, rec)["key"].(map[string]interface{})["key"].(string)

	rec = ts.do(t, http.MethodPost, "/api/license/redeem", map[string]string{
		"email": "user@gmail.com",
		"key":   key,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(90), body["days_added"])
	assert.Equal(t, "pro", body["plan"])

	// Second redemption of the same key fails.
	rec = ts.do(t, http.MethodPost, "/api/license/redeem", map[string]string{
		"email": "user@gmail.com",
		"key":   key,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRedeemMalformedKey(t *testing.T) {
	ts := newTestServer(t)
	signup(t, ts, "user@gmail.com")

	rec := ts.do(t, http.MethodPost, "/api/license/redeem", map[string]string{
		"email": "user@gmail.com",
		"key":   "not-a-key",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "/errors/invalid-key-format", decode(t, rec)["type"])
}

func TestRedeemUnknownAccountDoesNotBurnKey(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/admin/keys", map[string]int{"duration_days": 90})
	require.Equal(t, http.StatusCreated, rec.Code)
	key := decode(t, rec)["key"].(map[string]interface{})["key"].(string)

	rec = ts.do(t, http.MethodPost, "/api/license/redeem", map[string]string{
		"email": "ghost@gmail.com",
		"key":   key,
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	keys, err := ts.registry.List(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.False(t, keys[0].IsUsed)
}

func TestPaymentSubmitAndDecide(t *testing.T) {
	ts := newTestServer(t)
	signup(t, ts, "user@gmail.com")

	rec := ts.do(t, http.MethodPost, "/api/payments/", map[string]string{
		"email":          "user@gmail.com",
		"method":         "easypaisa",
		"sender_name":    "Test User",
		"transaction_id": "TX100",
		"amount":         "1500",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["payment"].(map[string]interface{})["id"].(string)

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/admin/payments/%s/decision", id), map[string]bool{"approve": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/license/status?email=user@gmail.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode(t, rec)
	assert.Equal(t, "active", status["status"])
	assert.Equal(t, "pro", status["plan"])

	// The decision is terminal.
	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/admin/payments/%s/decision", id), map[string]bool{"approve": false})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminStats(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.accounts.Bootstrap(context.Background()))
	signup(t, ts, "user@gmail.com")

	rec := ts.do(t, http.MethodPost, "/api/admin/keys", map[string]int{"duration_days": 30})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/admin/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decode(t, rec)
	assert.Equal(t, float64(2), stats["total_accounts"])
	assert.Equal(t, float64(1), stats["pending_approval"])
	assert.Equal(t, float64(1), stats["total_keys"])
	assert.Equal(t, float64(1), stats["unused_keys"])
}

func TestDaysLeft(t *testing.T) {
	assert.Equal(t, 0, daysLeft(time.Now()))
	assert.Equal(t, 3, daysLeft(time.Now().Add(3*24*time.Hour)))
	assert.Equal(t, -1, daysLeft(time.Now().Add(-24*time.Hour)))
}

func signup(t *testing.T, ts *testServer, email string) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"email":             email,
		"password":          "pass",
		"security_question": "pet?",
		"security_answer":   "rex",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
}
