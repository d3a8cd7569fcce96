package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const firebaseIssuerPrefix = "https://securetoken.google.com/"

type FirebaseConfig struct {
	ProjectID  string
	JWKSURL    string
	KeyTTL     time.Duration
	HTTPClient *http.Client
}

// FirebaseVerifier checks Firebase Auth ID tokens: RS256 signed by a key from
// the published JWKS, issued for the configured project.
type FirebaseVerifier struct {
	projectID string
	issuer    string
	keys      keyResolver
	now       func() time.Time
}

type keyResolver interface {
	PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

func NewFirebaseVerifier(cfg FirebaseConfig) (*FirebaseVerifier, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firebase project id is required")
	}
	url := cfg.JWKSURL
	if url == "" {
		url = FirebaseJWKSURL
	}
	return &FirebaseVerifier{
		projectID: cfg.ProjectID,
		issuer:    firebaseIssuerPrefix + cfg.ProjectID,
		keys:      NewKeySource(url, cfg.KeyTTL, cfg.HTTPClient),
		now:       time.Now,
	}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthorized
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid header")
			}
			return v.keys.PublicKey(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return Identity{}, unauthorized(err)
	}
	id, err := claims.identity(v.now())
	if err != nil {
		return Identity{}, unauthorized(err)
	}
	return id, nil
}

// ServiceAccount holds the fields of a service-account key file the server
// needs; the private key is never read.
type ServiceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
}

// DecodeServiceAccount parses a base64 encoded service-account JSON document.
func DecodeServiceAccount(b64 string) (ServiceAccount, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return ServiceAccount{}, fmt.Errorf("decode service key: %w", err)
	}
	var sa ServiceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return ServiceAccount{}, fmt.Errorf("parse service key: %w", err)
	}
	if sa.ProjectID == "" {
		return ServiceAccount{}, errors.New("service key has no project_id")
	}
	return sa, nil
}
