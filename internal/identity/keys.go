package identity

import (
	"context"
	"crypto/rsa"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"golang.org/x/sync/singleflight"
)

// FirebaseJWKSURL publishes the keys that sign Firebase ID tokens.
const FirebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

const (
	minRefresh   = 30 * time.Second
	fetchTimeout = 10 * time.Second
)

// KeySource serves RSA public keys by kid from a remote JWKS document. The set
// is refetched when it expires (Cache-Control max-age, else ttl) or when an
// unknown kid shows up, at most once per minRefresh. Concurrent callers share
// one fetch, which is not tied to any single caller's context.
type KeySource struct {
	url    string
	ttl    time.Duration
	client *http.Client
	now    func() time.Time
	flight singleflight.Group

	mu        sync.Mutex
	set       jwk.Set
	fetchedAt time.Time
	expiresAt time.Time
}

func NewKeySource(url string, ttl time.Duration, client *http.Client) *KeySource {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &KeySource{url: url, ttl: ttl, client: client, now: time.Now}
}

func (s *KeySource) PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	set, err := s.keySet(ctx, kid)
	if err != nil {
		return nil, err
	}
	key, ok := set.LookupKeyID(kid)
	if !ok {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}

	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("export key %q: %w", kid, err)
	}
	switch pub := raw.(type) {
	case *rsa.PublicKey:
		return pub, nil
	case rsa.PublicKey:
		return &pub, nil
	default:
		return nil, fmt.Errorf("key %q is %T, want RSA public key", kid, raw)
	}
}

// keySet returns the cached set, refreshing it first when it is missing,
// expired, or lacks kid and the last fetch is older than minRefresh.
func (s *KeySource) keySet(ctx context.Context, kid string) (jwk.Set, error) {
	s.mu.Lock()
	set, now := s.set, s.now()
	fresh := set != nil && !now.After(s.expiresAt)
	recent := now.Sub(s.fetchedAt) < minRefresh
	s.mu.Unlock()

	if fresh {
		if _, ok := set.LookupKeyID(kid); ok || recent {
			return set, nil
		}
	}

	ch := s.flight.DoChan("jwks", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return s.refresh(fctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(jwk.Set), nil
	}
}

func (s *KeySource) refresh(ctx context.Context) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read jwks: %w", err)
	}
	set, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse jwks: %w", err)
	}

	ttl := s.ttl
	if age, ok := maxAge(resp.Header.Get("Cache-Control")); ok {
		ttl = age
	}
	s.mu.Lock()
	now := s.now()
	s.set = set
	s.fetchedAt = now
	s.expiresAt = now.Add(ttl)
	s.mu.Unlock()
	return set, nil
}

func maxAge(cacheControl string) (time.Duration, bool) {
	for _, part := range strings.Split(cacheControl, ",") {
		part = strings.TrimSpace(part)
		v, ok := strings.CutPrefix(strings.ToLower(part), "max-age=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return 0, false
		}
		return time.Duration(n) * time.Second, true
	}
	return 0, false
}
