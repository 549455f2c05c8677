package license

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"certigen/internal/domain"
	errs "certigen/internal/errors"
	"certigen/internal/store"
)

const (
	// keySegmentLength is the length of each random segment and of the
	// year segment: PREFIX-YYYY-XXXX-XXXX.
	keySegmentLength = 4
	keyCharset       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// generateAttempts bounds the collision-check retry loop. At this
	// scale collisions are vanishingly rare; a production-scale system
	// would use a collision-free ID scheme instead.
	generateAttempts = 5
)

// Registry issues unique single-use activation keys and redeems them.
type Registry struct {
	store   *store.Store
	prefix  string
	now     func() time.Time
	logger  *slog.Logger
	metrics *Metrics
}

// NewRegistry creates a Registry issuing keys with the given prefix.
// metrics may be nil.
func NewRegistry(st *store.Store, prefix string, logger *slog.Logger, metrics *Metrics) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:   st,
		prefix:  strings.ToUpper(prefix),
		now:     time.Now,
		logger:  logger.With(slog.String("component", "key_registry")),
		metrics: metrics,
	}
}

// Normalize canonicalizes a key for comparison: trimmed and upper-cased.
// Input is case-insensitive; keys are stored upper-case.
func Normalize(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// ValidFormat reports whether key matches PREFIX-YYYY-XXXX-XXXX with
// alphanumeric segments.
func (r *Registry) ValidFormat(key string) bool {
	parts := strings.Split(Normalize(key), "-")
	if len(parts) != 4 || parts[0] != r.prefix {
		return false
	}
	for _, ch := range parts[1] {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	if len(parts[1]) != keySegmentLength {
		return false
	}
	for i := 2; i < 4; i++ {
		if len(parts[i]) != keySegmentLength {
			return false
		}
		for _, ch := range parts[i] {
			if !((ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')) {
				return false
			}
		}
	}
	return true
}

// Generate issues a new unused key valid for durationDays. The token is
// checked for uniqueness against the full stored set before insertion.
func (r *Registry) Generate(ctx context.Context, durationDays int) (domain.ActivationKey, error) {
	if durationDays <= 0 {
		return domain.ActivationKey{}, fmt.Errorf("duration must be positive, got %d days", durationDays)
	}

	var issued domain.ActivationKey
	err := r.store.UpdateKeys(func(keys []domain.ActivationKey) ([]domain.ActivationKey, error) {
		for attempt := 0; attempt < generateAttempts; attempt++ {
			candidate, err := r.newToken()
			if err != nil {
				return nil, err
			}
			if keyExists(keys, candidate) {
				continue
			}
			issued = domain.ActivationKey{
				Key:           candidate,
				GeneratedDate: r.now(),
				DurationDays:  durationDays,
			}
			return append(keys, issued), nil
		}
		return nil, fmt.Errorf("could not generate a unique key after %d attempts", generateAttempts)
	})
	if err != nil {
		return domain.ActivationKey{}, err
	}

	r.logger.InfoContext(ctx, "activation key generated",
		slog.String("key", maskKey(issued.Key)),
		slog.Int("duration_days", durationDays),
	)
	if r.metrics != nil {
		r.metrics.RecordKeyGenerated(ctx)
	}
	return issued, nil
}

// Redeem marks the key used by email and returns its duration in days.
// Lookup and mutation happen inside one store closure, so concurrent
// redemption attempts on the same key allow at most one winner. An
// absent or already-used key leaves the collection unchanged.
func (r *Registry) Redeem(ctx context.Context, key, email string) (int, error) {
	normalized := Normalize(key)

	var durationDays int
	err := r.store.UpdateKeys(func(keys []domain.ActivationKey) ([]domain.ActivationKey, error) {
		for i := range keys {
			if keys[i].Key != normalized {
				continue
			}
			if keys[i].IsUsed {
				return nil, errs.ErrInvalidOrUsedKey
			}
			keys[i].IsUsed = true
			keys[i].UsedBy = email
			durationDays = keys[i].DurationDays
			return keys, nil
		}
		return nil, errs.ErrInvalidOrUsedKey
	})
	if err != nil {
		r.logger.WarnContext(ctx, "key redemption failed",
			slog.String("key", maskKey(normalized)),
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		if r.metrics != nil {
			r.metrics.RecordRedemption(ctx, false)
		}
		return 0, err
	}

	r.logger.InfoContext(ctx, "activation key redeemed",
		slog.String("key", maskKey(normalized)),
		slog.String("email", email),
		slog.Int("duration_days", durationDays),
	)
	if r.metrics != nil {
		r.metrics.RecordRedemption(ctx, true)
	}
	return durationDays, nil
}

// Delete removes the given keys. Accounts already extended by a deleted
// key are unaffected: the extension was copied into the account's
// license, not held by reference.
func (r *Registry) Delete(ctx context.Context, keyStrings []string) error {
	doomed := make(map[string]bool, len(keyStrings))
	for _, k := range keyStrings {
		doomed[Normalize(k)] = true
	}

	return r.store.UpdateKeys(func(keys []domain.ActivationKey) ([]domain.ActivationKey, error) {
		kept := keys[:0]
		for _, k := range keys {
			if !doomed[k.Key] {
				kept = append(kept, k)
			}
		}
		return kept, nil
	})
}

// List returns all activation keys.
func (r *Registry) List(ctx context.Context) ([]domain.ActivationKey, error) {
	return r.store.Keys()
}

// newToken builds PREFIX-YYYY-XXXX-XXXX with crypto/rand segments.
func (r *Registry) newToken() (string, error) {
	seg1, err := randomSegment(keySegmentLength)
	if err != nil {
		return "", err
	}
	seg2, err := randomSegment(keySegmentLength)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%s-%s", r.prefix, r.now().Year(), seg1, seg2), nil
}

func randomSegment(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = keyCharset[int(b)%len(keyCharset)]
	}
	return string(out), nil
}

func keyExists(keys []domain.ActivationKey, key string) bool {
	for _, k := range keys {
		if k.Key == key {
			return true
		}
	}
	return false
}

// maskKey hides the random segments of a key for logging.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8] + "****"
}
