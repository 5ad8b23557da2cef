package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/devconnect/internal/apperror"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

// PasswordService provides bcrypt hashing and verification.
//
// WHY BCRYPT?
//
// bcrypt is deliberately slow (cost 10 is roughly 2^10 key expansion rounds)
// and generates a fresh random salt on every Hash call. The salt and the
// cost are embedded in the output:
//
//	$2a$10$<22-char salt><31-char hash>
//
// so two users with the same password never share a hash and no separate
// salt column is needed. Verify reads the cost back out of the stored hash,
// which means raising DefaultCost later does not break existing accounts.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService. A cost outside bcrypt's
// accepted range falls back to DefaultCost.
func NewPasswordService(cost int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &PasswordService{cost: cost}
}

// NewPasswordServiceForTest creates a PasswordService with an arbitrary cost,
// normally bcrypt.MinCost (4). Do NOT use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes the given plaintext password with bcrypt.
// A plaintext longer than MaxPasswordBytes is a validation error on the
// password field, since bcrypt would otherwise refuse it.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", apperror.ValidationFailed("password", "Please enter a password of 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// Verify checks whether a plaintext password matches a stored bcrypt hash.
// The comparison is constant-time.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
