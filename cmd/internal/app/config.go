package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"ticketd/cmd/internal/auth"
	"ticketd/cmd/internal/realtime"
	"ticketd/cmd/internal/web"
	"ticketd/cmd/security/password"
)

// EnvPrefix prefixes every environment key read by LoadConfig.
const EnvPrefix = "TICKETD_"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:"127.0.0.1:8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxHeaderBytes    int           `env:"HTTP_MAX_HEADER_BYTES" envDefault:"1048576"`

	// DatabaseURL enables the Postgres audit trail. Tickets never touch the database.
	DatabaseURL string `env:"DATABASE_URL"`
	DBSchema    string `env:"DB_SCHEMA" envDefault:"ticketd"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"DB_MIN_CONNS" envDefault:"0"`

	// If true, /readyz returns 503 unless the database is configured and reachable.
	ReadinessRequireDB bool `env:"READINESS_REQUIRE_DB" envDefault:"false"`

	// If true, TICKETD_SIGNING_KEY MUST be set (>= 32 bytes).
	RequireSigningKey bool `env:"REQUIRE_SIGNING_KEY" envDefault:"false"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	Demo     DemoConfig             `envPrefix:"DEMO_"`
	Web      web.Config             // TICKETD_SIGNING_KEY, TICKETD_SESSION_TTL, ...
	Cookie   auth.CookieConfig      `envPrefix:"COOKIE_"`
	Password password.Params        `envPrefix:"ARGON2_"`
	WS       realtime.GatewayConfig `envPrefix:"WS_"`
}

// DemoConfig seeds one login account at startup.
type DemoConfig struct {
	Enabled  bool   `env:"ENABLED" envDefault:"true"`
	Username string `env:"USERNAME" envDefault:"demo1"`
	Password string `env:"PASSWORD" envDefault:"welcome"`
	UserID   uint64 `env:"USER_ID" envDefault:"1"`
}

// LoadConfig loads envFile (when present) and then Config from the environment.
// Variables already set in the process win over the file.
func LoadConfig(envFile string) (Config, error) {
	if envFile = strings.TrimSpace(envFile); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultConfig returns the envDefault values without reading the environment.
func DefaultConfig() Config {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix, Environment: map[string]string{}}); err != nil {
		panic(fmt.Sprintf("app: invalid config defaults: %v", err))
	}
	return cfg
}

// Validate checks values the struct tags cannot express.
func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("config: HTTP_ADDR is empty")
	}
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "json", "text", "pretty":
	default:
		return fmt.Errorf("config: LOG_FORMAT %q is not one of json, text, pretty", c.LogFormat)
	}
	if c.DBMinConns < 0 || c.DBMaxConns < 0 || (c.DBMaxConns > 0 && c.DBMinConns > c.DBMaxConns) {
		return fmt.Errorf("config: invalid db pool bounds min=%d max=%d", c.DBMinConns, c.DBMaxConns)
	}
	if c.Demo.Enabled && (strings.TrimSpace(c.Demo.Username) == "" || c.Demo.Password == "") {
		return errors.New("config: demo account needs DEMO_USERNAME and DEMO_PASSWORD")
	}
	if err := c.Password.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
