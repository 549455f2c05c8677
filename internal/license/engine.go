// Package license implements the license state machine and the activation
// key registry. Extend is the only code path that sets a license active;
// both key redemption and payment approval go through it so the expiry
// math cannot diverge between the two unlock paths.
package license

import (
	"time"

	"certigen/internal/domain"
)

// Engine computes and mutates license state against wall-clock time.
// The clock is injectable for tests.
type Engine struct {
	now func() time.Time
}

// NewEngine returns an Engine using the real clock.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// NewEngineWithClock returns an Engine with a fixed clock source.
func NewEngineWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// Evaluate returns the license with its status demoted to expired when
// the expiry date has passed, regardless of the stored status. It is
// pure; callers persist a changed result. Every read path that gates on
// license status must call it so stale "active" state is never served.
func (e *Engine) Evaluate(lic domain.License) domain.License {
	if lic.Status != domain.LicenseExpired && !lic.ExpiryDate.After(e.now()) {
		lic.Status = domain.LicenseExpired
	}
	return lic
}

// Extend activates the license for additionalDays from now on the given
// plan. This is the single extension path shared by key redemption and
// payment approval.
func (e *Engine) Extend(lic domain.License, additionalDays int, plan domain.Plan) domain.License {
	lic.Status = domain.LicenseActive
	lic.Plan = plan
	lic.ExpiryDate = e.now().Add(time.Duration(additionalDays) * 24 * time.Hour)
	return lic
}

// NewTrial builds the license assigned to a freshly created account.
func (e *Engine) NewTrial(trialDays int, deviceID string) domain.License {
	return domain.License{
		Status:     domain.LicenseTrial,
		Plan:       domain.PlanFree,
		ExpiryDate: e.now().Add(time.Duration(trialDays) * 24 * time.Hour),
		DeviceID:   deviceID,
	}
}
