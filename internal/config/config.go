package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env   string      `mapstructure:"env"`
	Port  string      `mapstructure:"port"`
	Store string      `mapstructure:"store"` // mongo|memory
	Mongo MongoConfig `mapstructure:"mongo"`
	Auth  AuthConfig  `mapstructure:"auth"`
	Authz AuthzConfig `mapstructure:"authz"`
	CORS  CORSConfig  `mapstructure:"cors"`
	Log   LogConfig   `mapstructure:"log"`

	Server ServerConfig `mapstructure:"server"`
}

type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	User        string `mapstructure:"user"`
	Pass        string `mapstructure:"pass"`
	ClusterHost string `mapstructure:"cluster_host"`
	AppName     string `mapstructure:"app_name"`
	Database    string `mapstructure:"database"`
	Collection  string `mapstructure:"collection"`
}

type AuthConfig struct {
	Mode            string        `mapstructure:"mode"` // firebase|hs256
	ProjectID       string        `mapstructure:"project_id"`
	ServiceKey      string        `mapstructure:"service_key"` // base64 service-account JSON
	JWKSURL         string        `mapstructure:"jwks_url"`
	JWKSTTL         time.Duration `mapstructure:"jwks_ttl"`
	HMACSecret      string        `mapstructure:"hmac_secret"`
	Issuer          string        `mapstructure:"issuer"`
	Audience        string        `mapstructure:"audience"`
	StrictOwnership bool          `mapstructure:"strict_ownership"`
}

type AuthzConfig struct {
	Mode       string `mapstructure:"mode"` // owner|fga
	FGAAPIURL  string `mapstructure:"fga_api_url"`
	FGAStoreID string `mapstructure:"fga_store_id"`
	FGAModelID string `mapstructure:"fga_model_id"`
	FGAToken   string `mapstructure:"fga_api_token"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

type ServerConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// bareEnv maps config keys to the unprefixed variables the deployment
// environment already sets.
var bareEnv = map[string]string{
	"port":             "PORT",
	"mongo.user":       "DB_USER",
	"mongo.pass":       "DB_PASS",
	"auth.service_key": "FB_SERVICE_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("port", "3000")
	v.SetDefault("store", "mongo")

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.user", "")
	v.SetDefault("mongo.pass", "")
	v.SetDefault("mongo.cluster_host", "cluster0.mongodb.net")
	v.SetDefault("mongo.app_name", "Cluster0")
	v.SetDefault("mongo.database", "taskDB")
	v.SetDefault("mongo.collection", "tasks")

	v.SetDefault("auth.mode", "firebase")
	v.SetDefault("auth.project_id", "")
	v.SetDefault("auth.service_key", "")
	v.SetDefault("auth.jwks_url", "")
	v.SetDefault("auth.jwks_ttl", time.Hour)
	v.SetDefault("auth.hmac_secret", "")
	v.SetDefault("auth.issuer", "taskmarket-dev")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.strict_ownership", true)

	v.SetDefault("authz.mode", "owner")
	v.SetDefault("authz.fga_api_url", "http://localhost:8080")
	v.SetDefault("authz.fga_store_id", "")
	v.SetDefault("authz.fga_model_id", "")
	v.SetDefault("authz.fga_api_token", "")

	v.SetDefault("cors.allowed_origins", []string{}) // empty allows any origin
	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("server.request_timeout", 30*time.Second)
}

// Load reads the optional YAML file at path, then applies TASKMARKET_* and the
// bare deployment variables on top of the defaults. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TASKMARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, env := range bareEnv {
		if err := v.BindEnv(key, "TASKMARKET_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &c, c.Validate()
}

func (c *Config) Validate() error {
	switch c.Store {
	case "mongo", "memory":
	default:
		return fmt.Errorf("unknown store %q (want mongo|memory)", c.Store)
	}
	switch c.Auth.Mode {
	case "firebase", "hs256":
	default:
		return fmt.Errorf("unknown auth.mode %q (want firebase|hs256)", c.Auth.Mode)
	}
	switch c.Authz.Mode {
	case "owner", "fga":
	default:
		return fmt.Errorf("unknown authz.mode %q (want owner|fga)", c.Authz.Mode)
	}
	return nil
}

// Addr is the listen address for the configured port.
func (c *Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// MongoURI returns mongo.uri when set, otherwise the Atlas SRV URI built from
// the user and password.
func (c *Config) MongoURI() (string, error) {
	if c.Mongo.URI != "" {
		return c.Mongo.URI, nil
	}
	if c.Mongo.User == "" || c.Mongo.Pass == "" {
		return "", errors.New("mongo.uri or DB_USER/DB_PASS must be set")
	}
	u := url.URL{
		Scheme: "mongodb+srv",
		User:   url.UserPassword(c.Mongo.User, c.Mongo.Pass),
		Host:   c.Mongo.ClusterHost,
		Path:   "/",
	}
	q := url.Values{}
	q.Set("retryWrites", "true")
	q.Set("w", "majority")
	if c.Mongo.AppName != "" {
		q.Set("appName", c.Mongo.AppName)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
