package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/skilllance/skilllance-api/shared/mailer"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// devJWTSecret is only accepted outside production.
const devJWTSecret = "skilllance-dev-secret-change-me"

// Config is the complete service configuration.
type Config struct {
	Env                string   `env:"APP_ENV"              envDefault:"development"`
	Port               int      `env:"PORT"                 envDefault:"5000"`
	LogLevel           string   `env:"LOG_LEVEL"            envDefault:"info"`
	SkipDB             bool     `env:"SKIP_DB"              envDefault:"false"`
	CollegeDomainsFile string   `env:"COLLEGE_DOMAINS_FILE"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173,http://localhost:3000" envSeparator:","`
	GoogleClientID     string   `env:"GOOGLE_CLIENT_ID"`
	ConsulAddr         string   `env:"CONSUL_ADDR"`
	ServiceAddress     string   `env:"SERVICE_ADDRESS"`
	GRPCHealthPort     int      `env:"GRPC_HEALTH_PORT"`

	Mongo     MongoConfig
	Token     TokenConfig
	OTP       OTPConfig
	MagicLink MagicLinkConfig
	Mailer    mailer.Config
}

type MongoConfig struct {
	URI            string        `env:"MONGODB_URI"`
	Database       string        `env:"MONGODB_DATABASE"        envDefault:"skilllance"`
	ConnectTimeout time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`
}

type TokenConfig struct {
	Secret    string        `env:"JWT_SECRET"`
	ExpiresIn time.Duration `env:"JWT_EXPIRES_IN" envDefault:"7d"`
	Issuer    string        `env:"JWT_ISSUER"     envDefault:"skilllance"`
	Audience  string        `env:"JWT_AUDIENCE"   envDefault:"skilllance-web"`
}

type OTPConfig struct {
	TTL         time.Duration `env:"OTP_TTL"          envDefault:"10m"`
	MaxAttempts int           `env:"OTP_MAX_ATTEMPTS" envDefault:"3"`
	RateLimit   int           `env:"OTP_RATE_LIMIT"   envDefault:"3"`
	RateWindow  time.Duration `env:"OTP_RATE_WINDOW"  envDefault:"1h"`
}

type MagicLinkConfig struct {
	TTL time.Duration `env:"MAGIC_LINK_TTL" envDefault:"15m"`
	URL string        `env:"MAGIC_LINK_URL" envDefault:"http://localhost:5173/auth/magic"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(time.Duration(0)): func(v string) (any, error) {
				return ParseDuration(v)
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsProduction reports whether the service runs with production safeguards.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

// UsesDevSecret reports whether the built-in development JWT secret is in effect.
func (c *Config) UsesDevSecret() bool {
	return c.Token.Secret == devJWTSecret
}

func (c *Config) finalize() error {
	switch strings.ToLower(c.Env) {
	case EnvDevelopment, EnvProduction, EnvTest:
		c.Env = strings.ToLower(c.Env)
	default:
		return fmt.Errorf("unsupported APP_ENV %q", c.Env)
	}

	if c.Mongo.URI == "" && !c.SkipDB {
		return errors.New("missing MONGODB_URI environment variable (set SKIP_DB=true to run without a database)")
	}

	if c.Token.Secret == "" {
		if c.IsProduction() {
			return errors.New("missing JWT_SECRET environment variable")
		}
		c.Token.Secret = devJWTSecret
	}

	if c.Token.ExpiresIn <= 0 {
		return errors.New("JWT_EXPIRES_IN must be positive")
	}
	if c.OTP.TTL <= 0 || c.OTP.RateWindow <= 0 || c.MagicLink.TTL <= 0 {
		return errors.New("OTP_TTL, OTP_RATE_WINDOW and MAGIC_LINK_TTL must be positive")
	}
	if c.OTP.MaxAttempts < 1 || c.OTP.RateLimit < 1 {
		return errors.New("OTP_MAX_ATTEMPTS and OTP_RATE_LIMIT must be at least 1")
	}

	return nil
}

// ParseDuration accepts Go duration syntax plus a whole-day suffix such as "7d".
func ParseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", v)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	return time.ParseDuration(v)
}
