package authz

import (
	"context"
	"fmt"

	fga "github.com/openfga/go-sdk/client"
	"github.com/openfga/go-sdk/credentials"
)

// OpenFGA delegates ownership to an OpenFGA store. The model needs a "task"
// type with an "owner" relation to "user".
type OpenFGA struct {
	c *fga.OpenFgaClient
}

type OpenFGAConfig struct {
	APIURL   string
	StoreID  string
	APIToken string // optional
	ModelID  string // optional but recommended in prod
}

func NewOpenFGA(cfg OpenFGAConfig) (*OpenFGA, error) {
	conf := &fga.ClientConfiguration{
		ApiUrl:  cfg.APIURL,
		StoreId: cfg.StoreID,
	}
	if cfg.ModelID != "" {
		conf.AuthorizationModelId = cfg.ModelID
	}
	if cfg.APIToken != "" {
		conf.Credentials = &credentials.Credentials{
			Method: credentials.CredentialsMethodApiToken,
			Config: &credentials.Config{ApiToken: cfg.APIToken},
		}
	}

	client, err := fga.NewSdkClient(conf)
	if err != nil {
		return nil, fmt.Errorf("openfga_client_init: %w", err)
	}
	return &OpenFGA{c: client}, nil
}

func (o *OpenFGA) Check(ctx context.Context, req Request) (Decision, error) {
	checkReq := fga.ClientCheckRequest{
		User:     req.Subject,
		Relation: req.Relation,
		Object:   req.Object,
	}
	resp, err := o.c.Check(ctx).Body(checkReq).Execute()
	if err != nil {
		return Decision{}, fmt.Errorf("fga_check_error: %w", err)
	}
	if resp.Allowed != nil && *resp.Allowed {
		return Decision{Allowed: true}, nil
	}
	return Decision{Allowed: false, Reason: "policy_denied"}, nil
}

// Relate writes the ownership tuple for a newly created task.
func (o *OpenFGA) Relate(ctx context.Context, req Request) error {
	body := fga.ClientWriteRequest{
		Writes: []fga.ClientTupleKey{{
			User:     req.Subject,
			Relation: req.Relation,
			Object:   req.Object,
		}},
	}
	if _, err := o.c.Write(ctx).Body(body).Execute(); err != nil {
		return fmt.Errorf("fga_write_error: %w", err)
	}
	return nil
}
