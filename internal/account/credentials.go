package account

import "golang.org/x/crypto/bcrypt"

// CredentialVerifier isolates password storage and comparison so the
// scheme can be swapped without touching the rest of the subsystem.
type CredentialVerifier interface {
	// Hash prepares a password for storage.
	Hash(password string) (string, error)
	// Verify compares a stored secret against a supplied password.
	Verify(stored, supplied string) bool
}

// PlaintextVerifier stores and compares passwords as-is. This matches the
// reference client's behavior and is only acceptable for a single-device
// deployment with no real security exposure.
type PlaintextVerifier struct{}

func (PlaintextVerifier) Hash(password string) (string, error) { return password, nil }

func (PlaintextVerifier) Verify(stored, supplied string) bool { return stored == supplied }

// BcryptVerifier stores salted bcrypt hashes. Drop-in replacement for
// PlaintextVerifier on deployments that need it.
type BcryptVerifier struct {
	Cost int
}

func (v BcryptVerifier) Hash(password string) (string, error) {
	cost := v.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (v BcryptVerifier) Verify(stored, supplied string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
}
