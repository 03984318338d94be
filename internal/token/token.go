// Package token generates signer access tokens and one-time verification
// codes. Tokens are fixed-length and drawn from an alphabet with no
// punctuation, so routing layers cannot truncate or mangle them.
package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	// Alphabet is URL-safe with no separators.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// Length of every issued signer token.
	Length = 32

	// CodeLength is the number of digits in a verification code.
	CodeLength = 6

	// CodeTTL is how long a verification code stays valid.
	CodeTTL = 15 * time.Minute

	// MaxCodeAttempts wrong entries lock the code until regeneration.
	MaxCodeAttempts = 5

	// DefaultTokenTTL is the signing window granted at send time.
	DefaultTokenTTL = 7 * 24 * time.Hour
)

// New returns a fresh signer token.
func New() (string, error) {
	buf := make([]byte, Length)
	max := big.NewInt(int64(len(Alphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("token entropy: %w", err)
		}
		buf[i] = Alphabet[n.Int64()]
	}
	return string(buf), nil
}

// NewCode returns a zero-padded numeric verification code.
func NewCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < CodeLength; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("code entropy: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n), nil
}
