package license

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"certigen/internal/domain"
)

var fixedNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func TestEvaluateDemotesPastExpiry(t *testing.T) {
	e := NewEngineWithClock(fixedClock)

	tests := []struct {
		name   string
		status domain.LicenseStatus
	}{
		{"trial past expiry", domain.LicenseTrial},
		{"active past expiry", domain.LicenseActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lic := domain.License{
				Status:     tt.status,
				ExpiryDate: fixedNow.Add(-time.Hour),
			}
			got := e.Evaluate(lic)
			assert.Equal(t, domain.LicenseExpired, got.Status)
		})
	}
}

func TestEvaluateExpiryExactlyNowIsExpired(t *testing.T) {
	e := NewEngineWithClock(fixedClock)
	lic := domain.License{Status: domain.LicenseActive, ExpiryDate: fixedNow}
	assert.Equal(t, domain.LicenseExpired, e.Evaluate(lic).Status)
}

func TestEvaluateKeepsFutureExpiry(t *testing.T) {
	e := NewEngineWithClock(fixedClock)
	lic := domain.License{Status: domain.LicenseTrial, ExpiryDate: fixedNow.Add(time.Hour)}
	got := e.Evaluate(lic)
	assert.Equal(t, domain.LicenseTrial, got.Status)
}

func TestEvaluatePreservesOtherFields(t *testing.T) {
	e := NewEngineWithClock(fixedClock)
	lic := domain.License{
		Status:     domain.LicenseActive,
		Plan:       domain.PlanPro,
		ExpiryDate: fixedNow.Add(-time.Minute),
		DeviceID:   "DEV-AAAA0000",
	}
	got := e.Evaluate(lic)
	assert.Equal(t, domain.LicenseExpired, got.Status)
	assert.Equal(t, domain.PlanPro, got.Plan)
	assert.Equal(t, lic.ExpiryDate, got.ExpiryDate)
	assert.Equal(t, "DEV-AAAA0000", got.DeviceID)
}

func TestExtendActivatesFromNow(t *testing.T) {
	e := NewEngineWithClock(fixedClock)

	// An expired license extends from now, not from the stale expiry.
	lic := domain.License{
		Status:     domain.LicenseExpired,
		Plan:       domain.PlanFree,
		ExpiryDate: fixedNow.Add(-30 * 24 * time.Hour),
	}
	got := e.Extend(lic, 365, domain.PlanPro)
	assert.Equal(t, domain.LicenseActive, got.Status)
	assert.Equal(t, domain.PlanPro, got.Plan)
	assert.Equal(t, fixedNow.Add(365*24*time.Hour), got.ExpiryDate)
}

func TestNewTrial(t *testing.T) {
	e := NewEngineWithClock(fixedClock)
	lic := e.NewTrial(3, "DEV-12345678")
	assert.Equal(t, domain.LicenseTrial, lic.Status)
	assert.Equal(t, domain.PlanFree, lic.Plan)
	assert.Equal(t, fixedNow.Add(3*24*time.Hour), lic.ExpiryDate)
	assert.Equal(t, "DEV-12345678", lic.DeviceID)
}
