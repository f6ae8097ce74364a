package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Passwords decides how secrets are stored. With Hash off they are kept as
// given, which is what existing deployments expect.
type Passwords struct {
	Hash bool
	Cost int
}

// Prepare returns the value to persist for a new or changed password
func (p Passwords) Prepare(plain string) (string, error) {
	if !p.Hash {
		return plain, nil
	}
	cost := p.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword checks supplied against the stored value. Stored bcrypt
// hashes are compared with bcrypt; anything else is a plaintext record.
func VerifyPassword(stored, supplied string) bool {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

func isBcryptHash(s string) bool {
	if len(s) != 60 || s[0] != '$' {
		return false
	}
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}
