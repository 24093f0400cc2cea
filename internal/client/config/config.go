package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophprofile/internal/client/profiles"
	"github.com/dmitrijs2005/gophprofile/internal/common"
	"github.com/dmitrijs2005/gophprofile/internal/logging"
)

// Config holds runtime settings for the client.
type Config struct {
	// Auth service
	AuthURL     string        `env:"AUTH_URL"`
	APIKey      string        `env:"API_KEY"`
	CallbackURL string        `env:"CALLBACK_URL"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT"`

	// Profile record store
	ProfileDriver  string `env:"PROFILE_DRIVER"`
	ProfileDSN     string `env:"PROFILE_DSN"`
	ProfileMigrate bool   `env:"PROFILE_MIGRATE"`

	// Avatar object store
	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`

	// Local state
	DataDir             string        `env:"DATA_DIR"`
	OnlineCheckInterval time.Duration `env:"ONLINE_CHECK_INTERVAL"`

	LogFormat string `env:"LOG_FORMAT"`
	LogLevel  string `env:"LOG_LEVEL"`
}

// LoadDefaults populates c with defaults suitable for a local setup.
func (c *Config) LoadDefaults() {
	c.AuthURL = "http://127.0.0.1:54321"
	c.CallbackURL = common.DefaultCallbackURL
	c.HTTPTimeout = 15 * time.Second

	c.ProfileDriver = profiles.DriverSQLite
	c.ProfileDSN = "profiles.db"
	c.ProfileMigrate = true

	c.S3Bucket = common.DefaultAvatarBucket
	c.S3Region = "us-east-1"

	c.DataDir = ".gophprofile"
	c.OnlineCheckInterval = 5 * time.Second

	c.LogFormat = logging.FormatText
	c.LogLevel = "info"
}

// Validate reports settings the client cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.AuthURL == "" {
		errs = append(errs, errors.New("auth url is empty"))
	}
	if c.CallbackURL == "" {
		errs = append(errs, errors.New("callback url is empty"))
	}
	if c.ProfileDriver != profiles.DriverPostgres && c.ProfileDriver != profiles.DriverSQLite {
		errs = append(errs, fmt.Errorf("profile driver must be %q or %q, got %q",
			profiles.DriverPostgres, profiles.DriverSQLite, c.ProfileDriver))
	}
	if c.S3Bucket == "" {
		errs = append(errs, errors.New("s3 bucket is empty"))
	}
	if c.OnlineCheckInterval <= 0 {
		errs = append(errs, errors.New("online check interval must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig builds a Config from defaults, the environment, the JSON file
// named in args and the flags in args, in that order.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
