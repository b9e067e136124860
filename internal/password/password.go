// Package password hashes and verifies account passwords.
//
// The default scheme is an unsalted SHA-256 hex digest, which keeps account
// documents written by earlier deployments readable. The bcrypt scheme may be
// selected for new deployments.
package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Supported scheme names
const (
	SchemeSHA256 = "sha256"
	SchemeBcrypt = "bcrypt"
)

// Hasher produces and checks password hashes
type Hasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// New returns the hasher for a scheme name. An empty name selects SHA-256.
func New(scheme string) (Hasher, error) {
	switch scheme {
	case "", SchemeSHA256:
		return SHA256{}, nil
	case SchemeBcrypt:
		return Bcrypt{Cost: bcrypt.DefaultCost}, nil
	default:
		return nil, fmt.Errorf("unknown password scheme %q", scheme)
	}
}

// SHA256 hashes passwords as a hex SHA-256 digest
type SHA256 struct{}

func (SHA256) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:]), nil
}

func (s SHA256) Verify(hash, password string) bool {
	want, _ := s.Hash(password)
	return subtle.ConstantTimeCompare([]byte(hash), []byte(want)) == 1
}

// Bcrypt hashes passwords with bcrypt at the given cost
type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (Bcrypt) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
