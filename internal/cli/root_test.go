package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TwigBush/taskmarket/internal/config"
	"github.com/TwigBush/taskmarket/internal/identity"
)

// resetFlags puts globals and persistent flags back to their defaults so tests do not
// bleed state into each other.
func resetFlags(t *testing.T) *bytes.Buffer {
	t.Helper()

	_ = rootCmd.PersistentFlags().Set("show-curl", "false")
	_ = rootCmd.PersistentFlags().Set("base-url", "http://localhost:3000")
	_ = rootCmd.PersistentFlags().Set("config", "")

	var buf bytes.Buffer
	rootCmd.SetArgs([]string{})
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(io.Discard)
	return &buf
}

func withHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old := userHomeDir
	t.Cleanup(func() { userHomeDir = old })
	userHomeDir = func() (string, error) { return dir, nil }
	return dir
}

func TestRootDefaultsAndFlags(t *testing.T) {
	resetFlags(t)

	if got, want := rootCmd.Use, "taskmarket"; got != want {
		t.Fatalf("Use = %q, want %q", got, want)
	}
	if !rootCmd.SilenceUsage {
		t.Fatalf("SilenceUsage = false, want true")
	}
	if !rootCmd.SilenceErrors {
		t.Fatalf("SilenceErrors = false, want true")
	}
	if showCurl {
		t.Fatalf("showCurl default = true, want false")
	}
	if baseURL != "http://localhost:3000" {
		t.Fatalf("baseURL default = %q", baseURL)
	}
	for _, name := range []string{"serve", "token", "call", "version"} {
		if c, _, err := rootCmd.Find([]string{name}); err != nil || c.Name() != name {
			t.Fatalf("subcommand %q missing: %v", name, err)
		}
	}
}

func TestExecuteNoArgsPrintsHint(t *testing.T) {
	out := resetFlags(t)
	if err := Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "Use -h for help") {
		t.Fatalf("expected hint to be printed, got:\n%s", out)
	}
}

func TestHelpCommandRuns(t *testing.T) {
	out := resetFlags(t)
	rootCmd.SetArgs([]string{"help"})
	if err := Execute(); err != nil {
		t.Fatalf("help Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "taskmarket") || !strings.Contains(out.String(), "Usage:") {
		t.Fatalf("help output did not contain expected text; got:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out := resetFlags(t)
	rootCmd.SetArgs([]string{"version"})
	if err := Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "taskmarket ") {
		t.Fatalf("version output = %q", out)
	}
}

func TestTokenMintSavesVerifiableToken(t *testing.T) {
	out := resetFlags(t)
	home := withHome(t)

	rootCmd.SetArgs([]string{"token", "mint", "--sub", "uid-7", "--email", "alice@x.com", "--secret", "s3cret", "--save", "alice"})
	if err := Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	printed := strings.TrimSpace(out.String())

	saved, err := loadToken("alice")
	if err != nil {
		t.Fatalf("loadToken: %v", err)
	}
	if saved != printed {
		t.Fatalf("saved token differs from printed token")
	}
	st, err := os.Stat(filepath.Join(home, ".taskmarket", "tokens", "alice.json"))
	if err != nil {
		t.Fatalf("stat saved token: %v", err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("perm = %v, want 0600", st.Mode().Perm())
	}

	v, _ := identity.NewHMACVerifier("s3cret", "", "")
	id, err := v.Verify(context.Background(), saved)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.Subject != "uid-7" || id.Owner() != "alice@x.com" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestCallSendsBearerToken(t *testing.T) {
	out := resetFlags(t)

	var gotAuth, gotMethod, gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth, gotMethod, gotPath = r.Header.Get("Authorization"), r.Method, r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "modifiedCount": 1})
	}))
	defer srv.Close()

	rootCmd.SetArgs([]string{"call", "--base-url", srv.URL + "/", "--token", "tok-1",
		"--method", "put", "--path", "/my-tasks/abc", "-d", `{"title":"x"}`})
	if err := Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if gotAuth != "Bearer tok-1" || gotMethod != http.MethodPut || gotPath != "/my-tasks/abc" || gotBody != `{"title":"x"}` {
		t.Fatalf("request = %s %s auth=%q body=%q", gotMethod, gotPath, gotAuth, gotBody)
	}
	if !strings.Contains(out.String(), "HTTP 200") || !strings.Contains(out.String(), `"modifiedCount": 1`) {
		t.Fatalf("output = %s", out)
	}
}

func TestCurlForIsStable(t *testing.T) {
	got := curlFor("GET", "http://localhost:3000/my-tasks", nil, map[string]string{
		"Authorization": "Bearer t",
		"Accept":        "application/json",
	})
	want := `curl -i -X GET 'http://localhost:3000/my-tasks' -H "Accept: application/json" -H "Authorization: Bearer t"`
	if got != want {
		t.Fatalf("curlFor = %s\nwant      %s", got, want)
	}
}

func TestServeWiresRouter(t *testing.T) {
	var gotAddr string
	var gotHandler http.Handler
	old := runServer
	t.Cleanup(func() { runServer = old })
	runServer = func(ctx context.Context, addr string, h http.Handler) error {
		gotAddr, gotHandler = addr, h
		return nil
	}

	cfg := &config.Config{
		Port:  "4000",
		Store: "memory",
		Auth:  config.AuthConfig{Mode: "hs256", HMACSecret: "s", StrictOwnership: true},
		Authz: config.AuthzConfig{Mode: "owner"},
	}
	if err := serve(context.Background(), cfg); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if gotAddr != ":4000" {
		t.Fatalf("addr = %q", gotAddr)
	}

	rr := httptest.NewRecorder()
	gotHandler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Body.String() != "Freelance Marketplace Server!" {
		t.Fatalf("root = %q", rr.Body.String())
	}
	rr = httptest.NewRecorder()
	gotHandler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/my-tasks", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("my-tasks without token = %d", rr.Code)
	}
}

func TestServeRejectsBadAuthConfig(t *testing.T) {
	cfg := &config.Config{Store: "memory", Auth: config.AuthConfig{Mode: "firebase"}, Authz: config.AuthzConfig{Mode: "owner"}}
	if err := serve(context.Background(), cfg); err == nil {
		t.Fatal("expected error without firebase project")
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]string{"debug": "DEBUG", "WARN": "WARN", "error": "ERROR", "": "INFO", "bogus": "INFO"} {
		if got := parseLevel(in).String(); got != want {
			t.Fatalf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
