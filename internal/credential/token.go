package credential

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the authenticated identity the console runs as.
type Session struct {
	Profile   string
	Token     string
	AccountID string
}

// Account is one entry of the token's account list.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Claims are the token fields the console reads. Signatures are checked by
// the API, not here.
type Claims struct {
	AccountID string    `json:"accountId"`
	Accounts  []Account `json:"accounts,omitempty"`
	jwt.RegisteredClaims
}

// ErrTokenExpired is returned for a token whose exp is in the past.
var ErrTokenExpired = errors.New("token expired")

// ParseToken decodes the claims of an access token without verifying it.
func ParseToken(token string) (Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, fmt.Errorf("parsing access token: %w", err)
	}
	return claims, nil
}

// CheckExpiry returns ErrTokenExpired when the token expired before now.
func (c Claims) CheckExpiry(now time.Time) error {
	if c.ExpiresAt != nil && c.ExpiresAt.Before(now) {
		return ErrTokenExpired
	}
	return nil
}

// Choices lists the accounts the token can act as. A token without an
// account list yields its single accountId.
func (c Claims) Choices() []Account {
	if len(c.Accounts) > 0 {
		return c.Accounts
	}
	if c.AccountID != "" {
		return []Account{{ID: c.AccountID, Name: c.AccountID}}
	}
	return nil
}
