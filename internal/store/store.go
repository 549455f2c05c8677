// Package store persists the three collections (accounts, activation
// keys, payment requests) as whole-document JSON files with a versioned
// envelope. A single mutex serializes every read-modify-write closure, so
// each check-and-set in the services is one atomic unit in-process.
// Writes go to a temp file first and are renamed into place; a failed or
// quota-rejected write leaves the previous document intact.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"certigen/internal/domain"
	errs "certigen/internal/errors"
)

// SchemaVersion is written into every collection envelope. Loading a
// higher version fails instead of guessing at the format.
const SchemaVersion = 1

const (
	accountsFile = "accounts.json"
	keysFile     = "keys.json"
	paymentsFile = "payments.json"
)

// envelope wraps a collection with its schema version.
type envelope[T any] struct {
	SchemaVersion int       `json:"schema_version"`
	UpdatedAt     time.Time `json:"updated_at"`
	Records       []T       `json:"records"`
}

// Store owns the data directory holding the collection files.
type Store struct {
	dir    string
	quota  int64
	mu     sync.Mutex
	logger *slog.Logger
	now    func() time.Time
}

// New creates the data directory if needed and returns a Store enforcing
// the given per-collection size quota in bytes.
func New(dir string, quota int64, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:    dir,
		quota:  quota,
		logger: logger.With(slog.String("component", "store")),
		now:    time.Now,
	}, nil
}

// load reads a collection file. A missing file is an empty collection.
func load[T any](s *Store, name string) ([]T, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if env.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("%s has schema version %d, supported up to %d: %w",
			name, env.SchemaVersion, SchemaVersion, errs.ErrSchemaVersion)
	}
	return env.Records, nil
}

// save marshals the collection, enforces the quota, and writes the file
// atomically via temp-file rename. Nothing is persisted on failure.
func save[T any](s *Store, name string, records []T) error {
	env := envelope[T]{
		SchemaVersion: SchemaVersion,
		UpdatedAt:     s.now(),
		Records:       records,
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	if int64(len(data)) > s.quota {
		return fmt.Errorf("%s would be %d bytes, quota %d: %w",
			name, len(data), s.quota, errs.ErrStorageFull)
	}

	target := filepath.Join(s.dir, name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

// update runs a read-modify-write closure under the store lock. If the
// closure returns an error nothing is written.
func update[T any](s *Store, name string, fn func([]T) ([]T, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := load[T](s, name)
	if err != nil {
		return err
	}
	updated, err := fn(records)
	if err != nil {
		return err
	}
	return save(s, name, updated)
}

// read returns a snapshot of a collection under the store lock.
func read[T any](s *Store, name string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return load[T](s, name)
}

// Accounts returns a snapshot of the accounts collection.
func (s *Store) Accounts() ([]domain.Account, error) {
	return read[domain.Account](s, accountsFile)
}

// UpdateAccounts applies an atomic read-modify-write to the accounts
// collection.
func (s *Store) UpdateAccounts(fn func([]domain.Account) ([]domain.Account, error)) error {
	return update(s, accountsFile, fn)
}

// Keys returns a snapshot of the activation keys collection.
func (s *Store) Keys() ([]domain.ActivationKey, error) {
	return read[domain.ActivationKey](s, keysFile)
}

// UpdateKeys applies an atomic read-modify-write to the activation keys
// collection.
func (s *Store) UpdateKeys(fn func([]domain.ActivationKey) ([]domain.ActivationKey, error)) error {
	return update(s, keysFile, fn)
}

// Payments returns a snapshot of the payment requests collection.
func (s *Store) Payments() ([]domain.PaymentRequest, error) {
	return read[domain.PaymentRequest](s, paymentsFile)
}

// UpdatePayments applies an atomic read-modify-write to the payment
// requests collection.
func (s *Store) UpdatePayments(fn func([]domain.PaymentRequest) ([]domain.PaymentRequest, error)) error {
	return update(s, paymentsFile, fn)
}
