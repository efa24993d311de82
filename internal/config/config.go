// Package config loads service settings from defaults, an optional TOML file
// and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/jun/drivelookup/internal/adapter"
	"github.com/jun/drivelookup/internal/authserver"
	"github.com/jun/drivelookup/internal/logging"
	"github.com/jun/drivelookup/internal/secret"
)

// EnvConfigPath names the variable holding the TOML file path.
const EnvConfigPath = "DRIVELOOKUP_CONFIG"

// GoogleConfig holds OAuth client and Drive API settings.
type GoogleConfig struct {
	ClientID          string `toml:"client_id"`
	ClientSecretParam string `toml:"client_secret_param"`
	// RedirectHost is the public origin of the auth callback server.
	RedirectHost string `toml:"redirect_host"`
	// UseOAuth makes every lookup run as the requesting user.
	UseOAuth bool `toml:"use_oauth"`

	ServiceAccountKeyFile       string `toml:"service_account_key_file"`
	ServiceAccountKeyCiphertext string `toml:"service_account_key_ciphertext"`
	ServiceAccountKeyParam      string `toml:"service_account_key_param"`
	KMSKeyID                    string `toml:"kms_key_id"`

	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	MaxResults        int     `toml:"max_results"`
}

// SearchConfig holds the default lookup options.
type SearchConfig struct {
	Scope             string `toml:"scope"`
	DriveID           string `toml:"drive_id"`
	ShowThumbnails    bool   `toml:"show_thumbnails"`
	EagerContentFiles int    `toml:"eager_content_files"`
	Concurrency       int    `toml:"concurrency"`
}

// AuthConfig holds state-token lifetimes.
type AuthConfig struct {
	StateTTLSeconds   int `toml:"state_ttl_seconds"`
	ExpiredTTLSeconds int `toml:"expired_ttl_seconds"`
}

// APIConfig holds lookup API settings.
type APIConfig struct {
	JWTSecretParam    string `toml:"jwt_secret_param"`
	FrontendURL       string `toml:"frontend_url"`
	SessionTTLMinutes int    `toml:"session_ttl_minutes"`
	DemoTenant        string `toml:"demo_tenant"`
}

// Config is the complete service configuration.
type Config struct {
	DevMode    bool              `toml:"dev_mode"`
	Log        logging.Config    `toml:"log"`
	Google     GoogleConfig      `toml:"google"`
	Search     SearchConfig      `toml:"search"`
	Auth       AuthConfig        `toml:"auth"`
	API        APIConfig         `toml:"api"`
	AuthServer authserver.Config `toml:"auth_server"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: logging.Config{Level: "info", Format: "json"},
		Google: GoogleConfig{
			ClientSecretParam:      secret.ParamGoogleClientSecret,
			ServiceAccountKeyParam: secret.ParamServiceAccountKey,
			RedirectHost:           "http://localhost:3000",
			RequestsPerSecond:      10,
			Burst:                  5,
			MaxResults:             100,
		},
		Search: SearchConfig{
			Scope:             string(adapter.ScopeDefault),
			ShowThumbnails:    true,
			EagerContentFiles: 0,
			Concurrency:       10,
		},
		Auth: AuthConfig{
			StateTTLSeconds:   120,
			ExpiredTTLSeconds: 3600,
		},
		API: APIConfig{
			JWTSecretParam:    secret.ParamJWTSecret,
			FrontendURL:       "http://localhost:3000",
			SessionTTLMinutes: 30,
			DemoTenant:        "demo",
		},
		AuthServer: authserver.Config{Addr: ":3000"},
	}
}

// Load builds the configuration from defaults, the TOML file named by
// DRIVELOOKUP_CONFIG (if any) and environment overrides.
func Load() (Config, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path, ok := lookup(EnvConfigPath); ok && path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("config %s parse error: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return cfg, err
	}
	if errs := cfg.Search.Validate(); len(errs) > 0 {
		return cfg, errs
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = b
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}

	boolean("DEV_MODE", &cfg.DevMode)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("LOG_FILE", &cfg.Log.File)

	str("GOOGLE_CLIENT_ID", &cfg.Google.ClientID)
	str("GOOGLE_CLIENT_SECRET_PARAM", &cfg.Google.ClientSecretParam)
	str("OAUTH_REDIRECT_HOST", &cfg.Google.RedirectHost)
	boolean("USE_OAUTH", &cfg.Google.UseOAuth)
	str("SERVICE_ACCOUNT_KEY_FILE", &cfg.Google.ServiceAccountKeyFile)
	str("SERVICE_ACCOUNT_KEY_CIPHERTEXT", &cfg.Google.ServiceAccountKeyCiphertext)
	str("KMS_KEY_ID", &cfg.Google.KMSKeyID)

	str("SEARCH_SCOPE", &cfg.Search.Scope)
	str("DRIVE_ID", &cfg.Search.DriveID)
	boolean("SHOW_THUMBNAILS", &cfg.Search.ShowThumbnails)
	integer("EAGER_CONTENT_FILES", &cfg.Search.EagerContentFiles)

	str("JWT_SECRET_PARAM", &cfg.API.JWTSecretParam)
	str("FRONTEND_URL", &cfg.API.FrontendURL)

	str("AUTH_SERVER_ADDR", &cfg.AuthServer.Addr)
	str("AUTH_SERVER_CERT", &cfg.AuthServer.CertFile)
	str("AUTH_SERVER_KEY", &cfg.AuthServer.KeyFile)

	return errors.Join(errs...)
}

// ScopeValue returns the configured search scope.
func (s SearchConfig) ScopeValue() adapter.Scope {
	return adapter.Scope{Mode: adapter.ScopeMode(s.Scope), DriveID: strings.TrimSpace(s.DriveID)}
}

// Validate checks the search options.
func (s SearchConfig) Validate() ValidationErrors {
	errs := ValidateScope(s.ScopeValue())
	if s.EagerContentFiles < 0 {
		errs = append(errs, ValidationError{Key: "eagerContentFiles", Message: "must not be negative"})
	}
	return errs
}
