package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophprofile/internal/flagx"
	"github.com/dmitrijs2005/gophprofile/internal/timex"
)

// jsonConfig is the on-disk shape. Pointer fields tell "absent" from
// "zero", so a file only overrides what it mentions.
type jsonConfig struct {
	AuthURL     *string         `json:"auth_url"`
	APIKey      *string         `json:"api_key"`
	CallbackURL *string         `json:"callback_url"`
	HTTPTimeout *timex.Duration `json:"http_timeout"`

	ProfileDriver  *string `json:"profile_driver"`
	ProfileDSN     *string `json:"profile_dsn"`
	ProfileMigrate *bool   `json:"profile_migrate"`

	S3Bucket    *string `json:"s3_bucket"`
	S3Region    *string `json:"s3_region"`
	S3Endpoint  *string `json:"s3_endpoint"`
	S3AccessKey *string `json:"s3_access_key"`
	S3SecretKey *string `json:"s3_secret_key"`

	DataDir             *string         `json:"data_dir"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`

	LogFormat *string `json:"log_format"`
	LogLevel  *string `json:"log_level"`
}

// parseJSON overlays cfg with the file named by -c/-config in args, if any.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.AuthURL, jc.AuthURL)
	setString(&cfg.APIKey, jc.APIKey)
	setString(&cfg.CallbackURL, jc.CallbackURL)
	if jc.HTTPTimeout != nil {
		cfg.HTTPTimeout = jc.HTTPTimeout.Duration
	}

	setString(&cfg.ProfileDriver, jc.ProfileDriver)
	setString(&cfg.ProfileDSN, jc.ProfileDSN)
	if jc.ProfileMigrate != nil {
		cfg.ProfileMigrate = *jc.ProfileMigrate
	}

	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3Endpoint, jc.S3Endpoint)
	setString(&cfg.S3AccessKey, jc.S3AccessKey)
	setString(&cfg.S3SecretKey, jc.S3SecretKey)

	setString(&cfg.DataDir, jc.DataDir)
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}

	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.LogLevel, jc.LogLevel)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
