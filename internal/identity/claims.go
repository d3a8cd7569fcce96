package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of ID-token claims the API reads.
type Claims struct {
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	AuthTime      int64  `json:"auth_time,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) identity(now time.Time) (Identity, error) {
	if c.Subject == "" {
		return Identity{}, errors.New("missing sub claim")
	}
	if c.AuthTime > 0 && c.AuthTime > now.Add(time.Minute).Unix() {
		return Identity{}, errors.New("auth_time is in the future")
	}
	return Identity{
		Subject:       c.Subject,
		Email:         c.Email,
		EmailVerified: c.EmailVerified,
		Issuer:        c.Issuer,
	}, nil
}
