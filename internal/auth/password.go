// Password hashing for the email/password registration path.
//
// WHY BCRYPT?
// bcrypt is deliberately slow, which is the point: a leaked database of
// bcrypt hashes is expensive to brute-force. It also generates and embeds a
// random salt per hash, so identical passwords produce different hashes and
// no separate salt column is needed.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor — roughly 250ms per hash on current
// server hardware. Login latency pays this once; attackers pay it per guess.
const defaultCost = 12

// bcrypt silently truncates inputs beyond 72 bytes; we reject instead so
// callers aren't surprised.
const maxPasswordBytes = 72

// PasswordService hashes and verifies passwords. It's a struct rather than
// free functions so tests can inject a low cost and skip the ~250ms per
// operation.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the production cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with a custom (low)
// cost. Cost 4 is the bcrypt minimum. Never use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes a plaintext password. The output string embeds algorithm
// version, cost, and salt — store it directly.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", maxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks a plaintext password against a stored hash. Returns nil on
// match. The comparison is constant-time inside bcrypt, so response timing
// leaks nothing about how close a guess was.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("auth: invalid password")
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
