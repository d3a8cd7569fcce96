package di

import (
	"context"
	"fmt"

	"github.com/TwigBush/taskmarket/internal/authz"
	"github.com/TwigBush/taskmarket/internal/config"
	"github.com/TwigBush/taskmarket/internal/identity"
	"github.com/TwigBush/taskmarket/internal/task"
)

// Seams for tests.
var (
	newMongoStore = func(ctx context.Context, cfg task.MongoConfig) (task.Store, error) {
		s, err := task.NewMongoStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	newOpenFGA = func(cfg authz.OpenFGAConfig) (authz.Authorizer, error) {
		a, err := authz.NewOpenFGA(cfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
)

func ProvideAuthorizer(c *config.Config) (authz.Authorizer, error) {
	switch c.Authz.Mode {
	case "fga":
		a, err := newOpenFGA(authz.OpenFGAConfig{
			APIURL:   c.Authz.FGAAPIURL,
			StoreID:  c.Authz.FGAStoreID,
			APIToken: c.Authz.FGAToken,
			ModelID:  c.Authz.FGAModelID,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	case "owner", "":
		return authz.OwnerMatch{}, nil
	default:
		return nil, fmt.Errorf("unknown authz mode %q", c.Authz.Mode)
	}
}

func ProvideVerifier(c *config.Config) (identity.Verifier, error) {
	switch c.Auth.Mode {
	case "hs256":
		v, err := identity.NewHMACVerifier(c.Auth.HMACSecret, c.Auth.Issuer, c.Auth.Audience)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "firebase", "":
		project, err := ProjectID(c)
		if err != nil {
			return nil, err
		}
		v, err := identity.NewFirebaseVerifier(identity.FirebaseConfig{
			ProjectID: project,
			JWKSURL:   c.Auth.JWKSURL,
			KeyTTL:    c.Auth.JWKSTTL,
		})
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", c.Auth.Mode)
	}
}

// ProjectID prefers auth.project_id and falls back to the project named in the
// service-account key.
func ProjectID(c *config.Config) (string, error) {
	if c.Auth.ProjectID != "" {
		return c.Auth.ProjectID, nil
	}
	if c.Auth.ServiceKey == "" {
		return "", fmt.Errorf("auth.project_id or FB_SERVICE_KEY must be set for firebase auth")
	}
	sa, err := identity.DecodeServiceAccount(c.Auth.ServiceKey)
	if err != nil {
		return "", err
	}
	return sa.ProjectID, nil
}

func ProvideStore(ctx context.Context, c *config.Config) (task.Store, error) {
	switch c.Store {
	case "memory":
		return task.NewMemoryStore(), nil
	case "mongo", "":
		uri, err := c.MongoURI()
		if err != nil {
			return nil, err
		}
		return newMongoStore(ctx, task.MongoConfig{
			URI:        uri,
			Database:   c.Mongo.Database,
			Collection: c.Mongo.Collection,
		})
	default:
		return nil, fmt.Errorf("unknown store %q", c.Store)
	}
}
