package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment override. Nested keys use "__",
// e.g. CLINIC_AUTH__SECRET sets auth.secret.
const EnvPrefix = "CLINIC_"

// Config is built once at startup and passed to every component.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	GRPC     GRPCConfig     `koanf:"grpc"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Mail     MailConfig     `koanf:"mail"`
	Log      LogConfig      `koanf:"log"`
}

type HTTPConfig struct {
	Addr               string   `koanf:"addr"`
	RateLimitBurst     int      `koanf:"rate_limit_burst"`
	RateLimitPerSecond int      `koanf:"rate_limit_per_second"`
	CORSOrigins        []string `koanf:"cors_origins"`
	ShutdownSeconds    int      `koanf:"shutdown_seconds"`
}

type GRPCConfig struct {
	Addr string `koanf:"addr"`
}

type DatabaseConfig struct {
	DSN    string `koanf:"dsn"`
	Memory bool   `koanf:"memory"`
}

type AuthConfig struct {
	Secret                 string `koanf:"secret"`
	Algorithm              string `koanf:"algorithm"`
	AccessTokenMinutes     int    `koanf:"access_token_minutes"`
	ResetTokenHours        int    `koanf:"reset_token_hours"`
	BcryptCost             int    `koanf:"bcrypt_cost"`
	ResetURL               string `koanf:"reset_url"`
	LoginAttemptsPerMinute int    `koanf:"login_attempts_per_minute"`
	ResetRequestsPerHour   int    `koanf:"reset_requests_per_hour"`
}

// AccessTTL is the access token lifetime.
func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTokenMinutes) * time.Minute
}

// ResetTTL is the reset token lifetime.
func (a AuthConfig) ResetTTL() time.Duration {
	return time.Duration(a.ResetTokenHours) * time.Hour
}

type MailConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	TLS      string `koanf:"tls"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

func defaults() map[string]any {
	return map[string]any{
		"http.addr":                      ":8080",
		"http.rate_limit_burst":          40,
		"http.rate_limit_per_second":     20,
		"http.cors_origins":              []string{},
		"http.shutdown_seconds":          10,
		"grpc.addr":                      ":9090",
		"database.dsn":                   "",
		"database.memory":                false,
		"auth.algorithm":                 "HS256",
		"auth.access_token_minutes":      30,
		"auth.reset_token_hours":         1,
		"auth.bcrypt_cost":               0,
		"auth.reset_url":                 "http://localhost:8080/reset-password",
		"auth.login_attempts_per_minute": 10,
		"auth.reset_requests_per_hour":   5,
		"mail.port":                      587,
		"mail.from":                      "no-reply@clinic.local",
		"mail.tls":                       "mandatory",
		"log.level":                      "info",
	}
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"http-addr":    "http.addr",
	"grpc-addr":    "grpc.addr",
	"database-dsn": "database.dsn",
	"memory":       "database.memory",
	"log-level":    "log.level",
}

// RegisterFlags adds the overridable flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("http-addr", ":8080", "HTTP listen address")
	fs.String("grpc-addr", ":9090", "gRPC health listen address")
	fs.String("database-dsn", "", "PostgreSQL DSN")
	fs.Bool("memory", false, "use the in-memory store instead of PostgreSQL")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
}

// Load merges defaults, the optional YAML file, CLINIC_* environment
// variables and changed flags, in that order. fs may be nil.
func Load(fs *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").With("source", "defaults").Wrap(err)
	}

	path := os.Getenv(EnvPrefix + "CONFIG")
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Changed {
			path = f.Value.String()
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_INVALID").With("source", path).Wrap(err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").With("source", "env").Wrap(err)
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_INVALID").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	cfg.HTTP.CORSOrigins = splitList(cfg.HTTP.CORSOrigins)
	return cfg, nil
}

// envKey maps CLINIC_AUTH__RESET_URL to auth.reset_url.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	if s == "CONFIG" {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// splitList accepts both YAML lists and a comma-separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks what serving requires.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.Secret) == "" {
		errs = append(errs, errors.New("auth.secret is required"))
	}
	if c.Auth.AccessTokenMinutes <= 0 {
		errs = append(errs, errors.New("auth.access_token_minutes must be > 0"))
	}
	if c.Auth.ResetTokenHours <= 0 {
		errs = append(errs, errors.New("auth.reset_token_hours must be > 0"))
	}
	if !c.Database.Memory && strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn is required unless database.memory is set"))
	}
	if err := errors.Join(errs...); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return nil
}
