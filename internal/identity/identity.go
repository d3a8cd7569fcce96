package identity

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnauthorized is the only failure a Verifier reports to callers. The
// wrapped cause is meant for operator logs.
var ErrUnauthorized = errors.New("invalid or expired token")

// Identity is the verified caller for one request.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Issuer        string
}

// Owner is the value stored in a task's owner field for this caller.
func (i Identity) Owner() string {
	if i.Email != "" {
		return i.Email
	}
	return i.Subject
}

// Verifier turns a bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, token string) (Identity, error)

func (f VerifierFunc) Verify(ctx context.Context, token string) (Identity, error) {
	return f(ctx, token)
}

func unauthorized(err error) error {
	return fmt.Errorf("%w: %v", ErrUnauthorized, err)
}

type identityContextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
