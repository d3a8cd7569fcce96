package identity

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HMACVerifier accepts HS256 tokens signed with a shared secret. It backs
// local development, where no Firebase project is available.
type HMACVerifier struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

func NewHMACVerifier(secret, issuer, audience string) (*HMACVerifier, error) {
	if secret == "" {
		return nil, errors.New("hmac secret is required")
	}
	return &HMACVerifier{secret: []byte(secret), issuer: issuer, audience: audience, now: time.Now}, nil
}

func (v *HMACVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthorized
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	var claims Claims
	if _, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...); err != nil {
		return Identity{}, unauthorized(err)
	}
	id, err := claims.identity(v.now())
	if err != nil {
		return Identity{}, unauthorized(err)
	}
	return id, nil
}

type MintOptions struct {
	Subject  string
	Email    string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// MintHS256 signs a token the HMACVerifier accepts.
func MintHS256(secret string, o MintOptions) (string, error) {
	if secret == "" {
		return "", errors.New("hmac secret is required")
	}
	if o.Subject == "" {
		return "", errors.New("subject is required")
	}
	if o.TTL <= 0 {
		o.TTL = time.Hour
	}
	now := time.Now()
	claims := Claims{
		Email:         o.Email,
		EmailVerified: o.Email != "",
		AuthTime:      now.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   o.Subject,
			Issuer:    o.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(o.TTL)),
		},
	}
	if o.Audience != "" {
		claims.Audience = jwt.ClaimStrings{o.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
