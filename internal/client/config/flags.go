package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/gophprofile/internal/flagx"
)

var knownFlags = []string{"-a", "-k", "-cb", "-t", "-d", "-dsn", "-m", "-b", "-r", "-e", "-data", "-i", "-lf", "-l"}

// parseFlags overlays cfg with command-line flags:
//
//	-a string    auth service base URL
//	-k string    auth API key
//	-cb string   deep-link callback URL
//	-t int       HTTP timeout (seconds)
//	-d string    profile store driver (postgres|sqlite)
//	-dsn string  profile store DSN
//	-m bool      create the profiles table if missing
//	-b string    avatar bucket
//	-r string    S3 region
//	-e string    S3 endpoint (path-style)
//	-data string local state directory
//	-i int       online check interval (seconds)
//	-lf string   log format (text|json|zerolog)
//	-l string    log level
//
// Arguments are filtered through flagx.FilterArgs first, so flags owned by
// other parsers (-c) do not cause errors here.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("gophprofile", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.AuthURL, "a", cfg.AuthURL, "auth service base URL")
	fs.StringVar(&cfg.APIKey, "k", cfg.APIKey, "auth API key")
	fs.StringVar(&cfg.CallbackURL, "cb", cfg.CallbackURL, "deep-link callback URL")
	httpTimeout := fs.Int("t", int(cfg.HTTPTimeout.Seconds()), "HTTP timeout (seconds)")

	fs.StringVar(&cfg.ProfileDriver, "d", cfg.ProfileDriver, "profile store driver")
	fs.StringVar(&cfg.ProfileDSN, "dsn", cfg.ProfileDSN, "profile store DSN")
	fs.BoolVar(&cfg.ProfileMigrate, "m", cfg.ProfileMigrate, "create the profiles table if missing")

	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "avatar bucket")
	fs.StringVar(&cfg.S3Region, "r", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3Endpoint, "e", cfg.S3Endpoint, "S3 endpoint")

	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "local state directory")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (seconds)")

	fs.StringVar(&cfg.LogFormat, "lf", cfg.LogFormat, "log format")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.HTTPTimeout = time.Duration(*httpTimeout) * time.Second
		case "i":
			cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
		}
	})
	return nil
}
