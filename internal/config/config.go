// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// Config is the messaging server configuration.
type Config struct {
	MongoURI      string `env:"MONGODB_URI,required=true"`
	MongoDatabase string `env:"MONGODB_DATABASE,default=marketplace"`

	JWTSecret    string        `env:"JWT_SECRET"`
	JWTKeys      string        `env:"JWT_KEYS"` // kid:secret,kid2:secret2
	JWTActiveKid string        `env:"JWT_ACTIVE_KID"`
	TokenTTL     time.Duration `env:"TOKEN_TTL,default=24h"`

	Port        int    `env:"PORT,default=50051"`
	MetricsAddr string `env:"METRICS_ADDR,default=:9090"`
	RedisURL    string `env:"REDIS_URL"`

	RateLimitRPM int `env:"RATE_LIMIT_RPM,default=30"`

	TLSCert    string `env:"TLS_CERT"`
	TLSKey     string `env:"TLS_KEY"`
	RequireTLS bool   `env:"REQUIRE_TLS,default=false"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=console"`
}

// Load reads a .env file when present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints the struct tags cannot express.
func (c Config) Validate() error {
	if c.MongoURI == "" {
		return errors.New("MONGODB_URI must be set")
	}
	if c.JWTSecret == "" && c.JWTKeys == "" {
		return errors.New("either JWT_SECRET or JWT_KEYS must be set")
	}
	if c.JWTKeys != "" {
		keys, err := ParseJWTKeys(c.JWTKeys)
		if err != nil {
			return err
		}
		if _, ok := keys[c.JWTActiveKid]; !ok {
			return fmt.Errorf("JWT_ACTIVE_KID %q not present in JWT_KEYS", c.JWTActiveKid)
		}
	}
	if c.RequireTLS && (c.TLSCert == "" || c.TLSKey == "") {
		return errors.New("REQUIRE_TLS is true but TLS_CERT/TLS_KEY are not configured")
	}
	return nil
}

// ParseJWTKeys parses "kid:secret" pairs separated by commas.
func ParseJWTKeys(raw string) (map[string]string, error) {
	keys := map[string]string{}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid JWT_KEYS entry: %s", p)
		}
		keys[parts[0]] = parts[1]
	}
	if len(keys) == 0 {
		return nil, errors.New("JWT_KEYS contains no keys")
	}
	return keys, nil
}
