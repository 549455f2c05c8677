// Package domain holds the entities shared by the account, license and
// payment services. Types here are plain values with no behavior beyond
// small helpers; all invariants are enforced by the services that own them.
package domain

import "time"

// LicenseStatus is the lifecycle state of a license.
type LicenseStatus string

const (
	LicenseTrial   LicenseStatus = "trial"
	LicenseActive  LicenseStatus = "active"
	LicenseExpired LicenseStatus = "expired"
)

// Plan is the commercial tier of a license.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// License is embedded one-to-one in an Account. DeviceID is an
// informational binding token, not cryptographically enforced.
type License struct {
	Status        LicenseStatus `json:"status"`
	Plan          Plan          `json:"plan"`
	ExpiryDate    time.Time     `json:"expiry_date"`
	DeviceID      string        `json:"device_id"`
	ActivationKey string        `json:"activation_key,omitempty"`
}

// Account is a user record keyed by lower-cased email.
type Account struct {
	Email            string  `json:"email"`
	Password         string  `json:"password"`
	SecurityQuestion string  `json:"security_question"`
	SecurityAnswer   string  `json:"security_answer"`
	IsAdmin          bool    `json:"is_admin"`
	IsApproved       bool    `json:"is_approved"`
	IsBlocked        bool    `json:"is_blocked"`
	License          License `json:"license"`
}

// Sanitized returns a copy safe to hand to the UI: credential material
// is stripped, everything else is preserved.
func (a Account) Sanitized() Account {
	a.Password = ""
	a.SecurityAnswer = ""
	return a
}

// ActivationKey is a single-use token. Once IsUsed flips to true it stays
// true; UsedBy records the redeeming account.
type ActivationKey struct {
	Key           string    `json:"key"`
	GeneratedDate time.Time `json:"generated_date"`
	DurationDays  int       `json:"duration_days"`
	IsUsed        bool      `json:"is_used"`
	UsedBy        string    `json:"used_by,omitempty"`
}

// PaymentStatus is the decision state of a payment request. Pending is the
// only non-terminal state.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentRejected PaymentStatus = "rejected"
)

// PaymentMethod is one of the wallet providers the UI offers.
type PaymentMethod string

const (
	MethodEasypaisa PaymentMethod = "easypaisa"
	MethodSadapay   PaymentMethod = "sadapay"
	MethodNayapay   PaymentMethod = "nayapay"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodEasypaisa, MethodSadapay, MethodNayapay:
		return true
	}
	return false
}

// PaymentRequest is a user-submitted payment proof awaiting an
// administrator decision.
type PaymentRequest struct {
	ID            string        `json:"id"`
	UserEmail     string        `json:"user_email"`
	Method        PaymentMethod `json:"method"`
	SenderName    string        `json:"sender_name"`
	TransactionID string        `json:"transaction_id"`
	Amount        string        `json:"amount"`
	ProofImageRef string        `json:"proof_image_ref,omitempty"`
	Status        PaymentStatus `json:"status"`
	Date          time.Time     `json:"date"`
}
