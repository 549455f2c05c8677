// Package errors defines the sentinel errors raised by the account,
// license, payment and store packages, plus the RFC 7807 responses the
// HTTP transport maps them to. Every sentinel is local to the operation
// that raised it: none are retried automatically and none are fatal.
package errors

import "errors"

// Account errors.
var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidEmailDomain = errors.New("email domain not allowed")
	ErrWeakPassword       = errors.New("password too short")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrBlocked            = errors.New("account blocked")
	ErrAnswerMismatch     = errors.New("security answer mismatch")
	ErrAccountNotFound    = errors.New("account not found")
)

// Activation key errors.
var (
	ErrInvalidOrUsedKey = errors.New("invalid or used activation key")
	ErrInvalidKeyFormat = errors.New("invalid activation key format")
)

// Payment errors.
var (
	ErrAlreadyPending         = errors.New("pending payment request already exists")
	ErrDuplicateTransactionID = errors.New("transaction id already used")
	ErrAlreadyDecided         = errors.New("payment request already decided")
	ErrPaymentNotFound        = errors.New("payment request not found")
	ErrInvalidPaymentMethod   = errors.New("invalid payment method")
)

// Store errors.
var (
	ErrStorageFull   = errors.New("storage quota exceeded")
	ErrSchemaVersion = errors.New("unsupported collection schema version")
)
