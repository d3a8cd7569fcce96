package identity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHMACVerifier_RoundTrip(t *testing.T) {
	v, err := NewHMACVerifier("s3cret", "taskmarket-dev", "taskmarket")
	if err != nil {
		t.Fatalf("NewHMACVerifier: %v", err)
	}
	tok, err := MintHS256("s3cret", MintOptions{
		Subject:  "uid-9",
		Email:    "b@x.com",
		Issuer:   "taskmarket-dev",
		Audience: "taskmarket",
		TTL:      time.Minute,
	})
	if err != nil {
		t.Fatalf("MintHS256: %v", err)
	}
	id, err := v.Verify(context.Background(), tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.Subject != "uid-9" || id.Email != "b@x.com" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestHMACVerifier_Rejects(t *testing.T) {
	v, _ := NewHMACVerifier("s3cret", "taskmarket-dev", "")

	wrongSecret, _ := MintHS256("other", MintOptions{Subject: "u", Issuer: "taskmarket-dev"})
	wrongIssuer, _ := MintHS256("s3cret", MintOptions{Subject: "u", Issuer: "elsewhere"})

	for name, tok := range map[string]string{
		"empty":        "",
		"wrong secret": wrongSecret,
		"wrong issuer": wrongIssuer,
	} {
		if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("%s: err = %v, want ErrUnauthorized", name, err)
		}
	}
}

func TestHMACVerifier_Expired(t *testing.T) {
	v, _ := NewHMACVerifier("s3cret", "", "")
	v.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	tok, _ := MintHS256("s3cret", MintOptions{Subject: "u", TTL: time.Hour})
	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestMintHS256Validation(t *testing.T) {
	if _, err := MintHS256("", MintOptions{Subject: "u"}); err == nil {
		t.Fatal("expected secret error")
	}
	if _, err := MintHS256("s", MintOptions{}); err == nil {
		t.Fatal("expected subject error")
	}
}

func TestContextRoundTrip(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("empty context should have no identity")
	}
	ctx := WithIdentity(context.Background(), Identity{Subject: "s"})
	id, ok := FromContext(ctx)
	if !ok || id.Subject != "s" {
		t.Fatalf("FromContext = %+v %v", id, ok)
	}
	if (Identity{Subject: "s"}).Owner() != "s" {
		t.Fatal("Owner should fall back to subject")
	}
}
