// Package access implements the login routing policy. The ordering is
// load-bearing: blocked is checked before the admin bypass, approval
// strictly before license status, and license last, so an
// approved-but-expired user is never shown "pending approval" and a
// blocked admin never reaches the admin surface.
package access

import (
	"certigen/internal/domain"
	"certigen/internal/license"
)

// Destination is where an authenticated account is routed.
type Destination string

const (
	// DestBlocked rejects the login outright.
	DestBlocked Destination = "blocked"
	// DestAdminPortal routes to the administrative surface, bypassing
	// approval and license checks.
	DestAdminPortal Destination = "admin_portal"
	// DestPendingApproval holds the account with no generator access.
	DestPendingApproval Destination = "pending_approval"
	// DestLicense force-routes to the license/payment surface.
	DestLicense Destination = "license"
	// DestGenerator grants normal application access.
	DestGenerator Destination = "generator"
)

// Gate decides routing from account flags and evaluated license state.
type Gate struct {
	engine *license.Engine
}

// NewGate builds the approval gate.
func NewGate(engine *license.Engine) *Gate {
	return &Gate{engine: engine}
}

// Route returns the destination for an authenticated account. License
// state is evaluated here as well, so a caller holding a stale account
// snapshot still routes on current expiry.
func (g *Gate) Route(acct domain.Account) Destination {
	if acct.IsBlocked {
		return DestBlocked
	}
	if acct.IsAdmin {
		return DestAdminPortal
	}
	if !acct.IsApproved {
		return DestPendingApproval
	}
	if g.engine.Evaluate(acct.License).Status == domain.LicenseExpired {
		return DestLicense
	}
	return DestGenerator
}
