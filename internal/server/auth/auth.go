// Package auth holds the shared server password.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"

	"hostexposer/internal/types"
)

// Charset is the alphabet of generated passwords. It leaves out 'O' and '0'.
const Charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNPQRSTUVWXYZ123456789!(),._-?@#[]`~=+*^%"

// BasicPrefix starts every Authorization header value
const BasicPrefix = "Basic "

// RandomPassword returns a password of length characters drawn from Charset
func RandomPassword(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("password length must be positive, got %d", length)
	}

	limit := big.NewInt(int64(len(Charset)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		b.WriteByte(Charset[n.Int64()])
	}
	return b.String(), nil
}

// EncodePassword returns the base64 form clients send
func EncodePassword(password string) string {
	return base64.StdEncoding.EncodeToString([]byte(password))
}

// Authenticator checks credentials against the configured password
type Authenticator struct {
	encoded string
}

// NewAuthenticator keeps only the encoded password
func NewAuthenticator(password string) *Authenticator {
	return &Authenticator{encoded: EncodePassword(password)}
}

// CheckEncoded compares a base64 encoded password in constant time
func (a *Authenticator) CheckEncoded(encoded string) error {
	if subtle.ConstantTimeCompare([]byte(encoded), []byte(a.encoded)) != 1 {
		return types.ErrInvalidPassword
	}
	return nil
}

// CheckHeader validates an Authorization header value
func (a *Authenticator) CheckHeader(header string) error {
	if !strings.HasPrefix(header, BasicPrefix) {
		return types.ErrInvalidPassword
	}
	return a.CheckEncoded(strings.TrimSpace(strings.TrimPrefix(header, BasicPrefix)))
}
