// Package account implements the durable account table: signup with a
// trial license, authentication, security-answer password recovery, the
// administrator mutators, and the explicit super-admin bootstrap.
package account

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"certigen/internal/config"
	"certigen/internal/domain"
	errs "certigen/internal/errors"
	"certigen/internal/license"
	"certigen/internal/store"
)

const deviceIDCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// adminExpiry is the fixed far-future expiry of the seeded super-admin.
var adminExpiry = time.Date(2099, time.December, 31, 0, 0, 0, 0, time.UTC)

// Service owns all account reads and writes. Every mutator persists
// synchronously through the store.
type Service struct {
	store     *store.Store
	engine    *license.Engine
	verifier  CredentialVerifier
	account   config.AccountConfig
	admin     config.AdminConfig
	trialDays int
	logger    *slog.Logger
}

// NewService builds the account service. verifier may be nil, in which
// case the reference plaintext comparison is used.
func NewService(st *store.Store, engine *license.Engine, verifier CredentialVerifier,
	accountCfg config.AccountConfig, adminCfg config.AdminConfig, trialDays int, logger *slog.Logger) *Service {
	if verifier == nil {
		verifier = PlaintextVerifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     st,
		engine:    engine,
		verifier:  verifier,
		account:   accountCfg,
		admin:     adminCfg,
		trialDays: trialDays,
		logger:    logger.With(slog.String("component", "account_service")),
	}
}

// Bootstrap seeds the super-admin account if absent. It is idempotent
// and runs once at startup; read paths never mutate.
func (s *Service) Bootstrap(ctx context.Context) error {
	email := normalizeEmail(s.admin.Email)

	err := s.store.UpdateAccounts(func(accounts []domain.Account) ([]domain.Account, error) {
		if findAccount(accounts, email) >= 0 {
			return accounts, nil
		}
		secret, err := s.verifier.Hash(s.admin.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash admin password: %w", err)
		}
		admin := domain.Account{
			Email:            email,
			Password:         secret,
			SecurityQuestion: "Who is the admin?",
			SecurityAnswer:   "Me",
			IsAdmin:          true,
			IsApproved:       true,
			License: domain.License{
				Status:     domain.LicenseActive,
				Plan:       domain.PlanEnterprise,
				ExpiryDate: adminExpiry,
				DeviceID:   "ADMIN-CONSOLE",
			},
		}
		return append(accounts, admin), nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "admin account bootstrapped", slog.String("email", email))
	return nil
}

// Create registers a new account with a fresh trial license. The email
// is case-folded, must belong to the configured registrar domain, and
// must not collide with an existing account. New accounts start
// unapproved.
func (s *Service) Create(ctx context.Context, email, password, question, answer string) (domain.Account, error) {
	email = normalizeEmail(email)

	if !strings.HasSuffix(email, "@"+s.account.AllowedDomain) {
		return domain.Account{}, errs.ErrInvalidEmailDomain
	}
	if len(password) < s.account.MinPasswordLength {
		return domain.Account{}, errs.ErrWeakPassword
	}

	secret, err := s.verifier.Hash(password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to hash password: %w", err)
	}
	deviceID, err := newDeviceID()
	if err != nil {
		return domain.Account{}, err
	}

	created := domain.Account{
		Email:            email,
		Password:         secret,
		SecurityQuestion: question,
		SecurityAnswer:   answer,
		IsApproved:       false,
		License:          s.engine.NewTrial(s.trialDays, deviceID),
	}

	err = s.store.UpdateAccounts(func(accounts []domain.Account) ([]domain.Account, error) {
		if findAccount(accounts, email) >= 0 {
			return nil, errs.ErrDuplicateEmail
		}
		return append(accounts, created), nil
	})
	if err != nil {
		return domain.Account{}, err
	}

	s.logger.InfoContext(ctx, "account created",
		slog.String("email", email),
		slog.Time("trial_expiry", created.License.ExpiryDate),
	)
	return created, nil
}

// Authenticate verifies credentials. A blocked account fails with
// ErrBlocked even when the password is correct. On success the license
// is evaluated and any expiry demotion is persisted, so callers always
// see current status.
func (s *Service) Authenticate(ctx context.Context, email, password string) (domain.Account, error) {
	email = normalizeEmail(email)

	var authed domain.Account
	err := s.store.UpdateAccounts(func(accounts []domain.Account) ([]domain.Account, error) {
		i := findAccount(accounts, email)
		if i < 0 || !s.verifier.Verify(accounts[i].Password, password) {
			return nil, errs.ErrInvalidCredentials
		}
		if accounts[i].IsBlocked {
			return nil, errs.ErrBlocked
		}
		accounts[i].License = s.engine.Evaluate(accounts[i].License)
		authed = accounts[i]
		return accounts, nil
	})
	if err != nil {
		return domain.Account{}, err
	}
	return authed, nil
}

// Get returns the account with its license evaluated; a demotion to
// expired is persisted, not just computed.
func (s *Service) Get(ctx context.Context, email string) (domain.Account, error) {
	email = normalizeEmail(email)

	var found domain.Account
	err := s.store.UpdateAccounts(func(accounts []domain.Account) ([]domain.Account, error) {
		i := findAccount(accounts, email)
		if i < 0 {
			return nil, errs.ErrAccountNotFound
		}
		accounts[i].License = s.engine.Evaluate(accounts[i].License)
		found = accounts[i]
		return accounts, nil
	})
	if err != nil {
		return domain.Account{}, err
	}
	return found, nil
}

// SecurityQuestion returns the stored recovery question for the account.
func (s *Service) SecurityQuestion(ctx context.Context, email string) (string, error) {
	accounts, err := s.store.Accounts()
	if err != nil {
		return "", err
	}
	i := findAccount(accounts, normalizeEmail(email))
	if i < 0 {
		return "", errs.ErrAccountNotFound
	}
	return accounts[i].SecurityQuestion, nil
}

// ResetPassword replaces the password when the security answer matches
// (case-insensitive). This is the recovery path: no re-authentication is
// required.
func (s *Service) ResetPassword(ctx context.Context, email, answer, newPassword string) error {
	email = normalizeEmail(email)

	if len(newPassword) < s.account.MinPasswordLength {
		return errs.ErrWeakPassword
	}
	secret, err := s.verifier.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.store.UpdateAccounts(func(accounts []domain.Account) ([]domain.Account, error) {
		i := findAccount(accounts, email)
		if i < 0 {
			return nil, errs.ErrAccountNotFound
		}
		if !strings.EqualFold(strings.TrimSpace(accounts[i].SecurityAnswer), strings.TrimSpace(answer)) {
			return nil, errs.ErrAnswerMismatch
		}
		accounts[i].Password = secret
		return accounts, nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password reset", slog.String("email", email))
	return nil
}

// SetApproval sets the approval and block flags. Administrator-only.
func (s *Service) SetApproval(ctx context.Context, email string, approved, blocked bool) error {
	email = normalizeEmail(email)

	return s.store.UpdateAccounts(func(accounts []domain.Account) ([]domain.Account, error) {
		i := findAccount(accounts, email)
		if i < 0 {
			return nil, errs.ErrAccountNotFound
		}
		accounts[i].IsApproved = approved
		accounts[i].IsBlocked = blocked
		return accounts, nil
	})
}

// SetPassword replaces the password without any check. Administrator-only.
func (s *Service) SetPassword(ctx context.Context, email, newPassword string) error {
	email = normalizeEmail(email)

	secret, err := s.verifier.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.store.UpdateAccounts(func(accounts []domain.Account) ([]domain.Account, error) {
		i := findAccount(accounts, email)
		if i < 0 {
			return nil, errs.ErrAccountNotFound
		}
		accounts[i].Password = secret
		return accounts, nil
	})
}

// Delete removes the given accounts. Missing emails are ignored.
// Historical payment requests are not cascade-deleted; the audit trail
// stays intact.
func (s *Service) Delete(ctx context.Context, emails []string) error {
	doomed := make(map[string]bool, len(emails))
	for _, e := range emails {
		doomed[normalizeEmail(e)] = true
	}

	return s.store.UpdateAccounts(func(accounts []domain.Account) ([]domain.Account, error) {
		kept := accounts[:0]
		for _, a := range accounts {
			if !doomed[a.Email] {
				kept = append(kept, a)
			}
		}
		return kept, nil
	})
}

// List returns all accounts with licenses evaluated transiently for
// display. Demotions found here are persisted.
func (s *Service) List(ctx context.Context) ([]domain.Account, error) {
	var out []domain.Account
	err := s.store.UpdateAccounts(func(accounts []domain.Account) ([]domain.Account, error) {
		for i := range accounts {
			accounts[i].License = s.engine.Evaluate(accounts[i].License)
		}
		out = append([]domain.Account(nil), accounts...)
		return accounts, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExtendLicense applies the single extension path to an account's
// license. activationKey, when non-empty, is recorded as the key that
// last extended the license.
func (s *Service) ExtendLicense(ctx context.Context, email string, days int, plan domain.Plan, activationKey string) (domain.Account, error) {
	email = normalizeEmail(email)

	var extended domain.Account
	err := s.store.UpdateAccounts(func(accounts []domain.Account) ([]domain.Account, error) {
		i := findAccount(accounts, email)
		if i < 0 {
			return nil, errs.ErrAccountNotFound
		}
		lic := s.engine.Extend(accounts[i].License, days, plan)
		if activationKey != "" {
			lic.ActivationKey = activationKey
		}
		accounts[i].License = lic
		extended = accounts[i]
		return accounts, nil
	})
	if err != nil {
		return domain.Account{}, err
	}

	s.logger.InfoContext(ctx, "license extended",
		slog.String("email", email),
		slog.Int("days", days),
		slog.String("plan", string(plan)),
	)
	return extended, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func findAccount(accounts []domain.Account, email string) int {
	for i := range accounts {
		if accounts[i].Email == email {
			return i
		}
	}
	return -1
}

// newDeviceID builds the informational DEV-XXXXXXXX binding token.
func newDeviceID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	out := make([]byte, 8)
	for i, b := range buf {
		out[i] = deviceIDCharset[int(b)%len(deviceIDCharset)]
	}
	return "DEV-" + string(out), nil
}
