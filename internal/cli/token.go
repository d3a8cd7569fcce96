package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/TwigBush/taskmarket/internal/config"
	"github.com/TwigBush/taskmarket/internal/identity"
)

func cmdToken() *cobra.Command {
	c := &cobra.Command{
		Use:   "token",
		Short: "Mint development tokens",
	}
	c.AddCommand(cmdTokenMint())
	return c
}

func cmdTokenMint() *cobra.Command {
	var sub, email, secret, label string
	var ttl time.Duration

	c := &cobra.Command{
		Use:     "mint",
		Short:   "Mint an HS256 token accepted by a server running with auth.mode=hs256",
		Example: "taskmarket token mint --sub uid-1 --email alice@example.com --save alice",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if secret == "" {
				secret = cfg.Auth.HMACSecret
			}
			if secret == "" {
				return errors.New("no signing secret. Use --secret or set auth.hmac_secret")
			}
			tok, err := identity.MintHS256(secret, identity.MintOptions{
				Subject:  sub,
				Email:    email,
				Issuer:   cfg.Auth.Issuer,
				Audience: cfg.Auth.Audience,
				TTL:      ttl,
			})
			if err != nil {
				return err
			}
			if label != "" {
				if err := saveToken(label, tok); err != nil {
					return fmt.Errorf("save token: %w", err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	c.Flags().StringVar(&sub, "sub", "", "token subject")
	c.Flags().StringVar(&email, "email", "", "email claim, used as the task owner")
	c.Flags().StringVar(&secret, "secret", "", "HS256 secret (defaults to auth.hmac_secret)")
	c.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	c.Flags().StringVar(&label, "save", "", "save the token under this label for `taskmarket call --label`")
	_ = c.MarkFlagRequired("sub")
	return c
}

type savedToken struct {
	Value string `json:"value"`
}

// Seams for tests.
var (
	userHomeDir = os.UserHomeDir
	writeFile   = os.WriteFile
)

func tokenDir() (string, error) {
	home, err := userHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".taskmarket", "tokens"), nil
}

func saveToken(label, tok string) error {
	dir, err := tokenDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	b, err := json.Marshal(savedToken{Value: tok})
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, label+".json"), b, 0o600)
}

func loadToken(label string) (string, error) {
	dir, err := tokenDir()
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(filepath.Join(dir, label+".json"))
	if err != nil {
		return "", err
	}
	var t savedToken
	if err := json.Unmarshal(b, &t); err != nil {
		return "", err
	}
	return t.Value, nil
}
