// Package password turns plaintext credentials into the value stored on a
// user record.
//
// The default scheme is the legacy unsalted MD5 hex digest that existing
// records carry. It is kept for compatibility and is NOT a safe password
// hash: no salt, no work factor, cheap to brute force. bcrypt is available
// as an explicit opt-in through configuration.
package password

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	SchemeMD5    = "md5"
	SchemeBcrypt = "bcrypt"
)

var ErrUnknownScheme = errors.New("unknown password scheme")

// Digester computes the stored form of a plaintext password.
type Digester interface {
	Digest(plaintext string) (string, error)
	Scheme() string
}

// MD5Digester produces lowercase hex MD5, 32 characters.
type MD5Digester struct{}

// Sum is Digest without the error, since MD5 cannot fail.
func (MD5Digester) Sum(plaintext string) string {
	sum := md5.Sum([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func (d MD5Digester) Digest(plaintext string) (string, error) {
	return d.Sum(plaintext), nil
}

func (MD5Digester) Scheme() string { return SchemeMD5 }

// BcryptDigester hashes with bcrypt at a fixed cost. Output is salted and
// therefore differs between calls for the same input.
type BcryptDigester struct {
	cost int
}

// NewBcryptDigester clamps cost into bcrypt's accepted range; zero means
// bcrypt.DefaultCost.
func NewBcryptDigester(cost int) *BcryptDigester {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &BcryptDigester{cost: cost}
}

func (d *BcryptDigester) Digest(plaintext string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), d.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(h), nil
}

func (d *BcryptDigester) Scheme() string { return SchemeBcrypt }

// Cost reports the work factor in use.
func (d *BcryptDigester) Cost() int { return d.cost }

// New returns the digester for scheme. cost only applies to bcrypt.
func New(scheme string, cost int) (Digester, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "", SchemeMD5:
		return MD5Digester{}, nil
	case SchemeBcrypt:
		return NewBcryptDigester(cost), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
}
