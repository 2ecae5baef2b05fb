package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// DefaultAPIBase is the backend's default uvicorn origin.
const DefaultAPIBase = "http://127.0.0.1:8000"

type Config struct {
	APIBase          string `koanf:"api_base"`          // backend origin; empty means DefaultAPIBase
	HealthPath       string `koanf:"health_path"`       // liveness endpoint path
	HealthTimeoutMS  int    `koanf:"health_timeout_ms"` // per-probe timeout
	RetryBaseMS      int    `koanf:"retry_base_ms"`
	RetryMaxMS       int    `koanf:"retry_max_ms"`
	RetryOnCollision bool   `koanf:"retry_on_collision"` // reschedule a retry that fires mid-check instead of dropping it
	PollIntervalMS   int    `koanf:"poll_interval_ms"`   // 0 disables steady-state polling

	ConnectivityHost       string `koanf:"connectivity_host"` // empty disables the watcher
	ConnectivityIntervalMS int    `koanf:"connectivity_interval_ms"`

	Addr     string `koanf:"api_addr"` // e.g. "127.0.0.1:8080" or ":8080" in Docker
	LogDir   string `koanf:"log_dir"`
	LogLevel string `koanf:"log_level"`
	LogMode  string `koanf:"log_mode"` // development or production

	DatabaseURL string `koanf:"database_url"` // empty means in-memory stores

	PublicAPIKeysRaw  string `koanf:"public_api_keys"`
	AdminAPIKeysRaw   string `koanf:"admin_api_keys"`
	PublicRPM         int    `koanf:"public_rpm"`
	PublicBurst       int    `koanf:"public_burst"`
	AllowedOriginsRaw string `koanf:"allowed_origins"`

	SlackWebhookURL string `koanf:"slack_webhook_url"`
	NATSURL         string `koanf:"nats_url"`
	NATSSubject     string `koanf:"nats_subject"`
	AlertOnRecovery bool   `koanf:"alert_on_recovery"`
	AlertCooldownMS int    `koanf:"alert_cooldown_ms"`
}

func Default() Config {
	return Config{
		APIBase:                DefaultAPIBase,
		HealthPath:             "/health",
		HealthTimeoutMS:        5000,
		RetryBaseMS:            10000,
		RetryMaxMS:             30000,
		ConnectivityIntervalMS: 5000,
		Addr:                   "127.0.0.1:8080",
		LogDir:                 "logs",
		LogLevel:               "info",
		LogMode:                "production",
		PublicRPM:              120,
		PublicBurst:            60,
		NATSSubject:            "healthwatch.status",
		AlertOnRecovery:        true,
		AlertCooldownMS:        300000,
	}
}

// Load reads an optional YAML file, then environment variables on top.
// API_BASE maps to api_base, LOG_DIR to log_dir, and so on.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(b), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if strings.TrimSpace(cfg.APIBase) == "" {
		cfg.APIBase = DefaultAPIBase
	}
	cfg.APIBase = strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv is Load without a config file.
func FromEnv() (Config, error) { return Load("") }

func (c Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.APIBase); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api_base %q is not an absolute URL", c.APIBase))
	}
	if !strings.HasPrefix(c.HealthPath, "/") {
		errs = append(errs, fmt.Errorf("health_path %q must start with /", c.HealthPath))
	}
	if c.HealthTimeoutMS <= 0 {
		errs = append(errs, errors.New("health_timeout_ms must be positive"))
	}
	if c.RetryBaseMS <= 0 || c.RetryMaxMS < c.RetryBaseMS {
		errs = append(errs, fmt.Errorf("retry window %d..%d ms is invalid", c.RetryBaseMS, c.RetryMaxMS))
	}
	if c.PollIntervalMS < 0 || c.ConnectivityIntervalMS <= 0 || c.AlertCooldownMS < 0 {
		errs = append(errs, errors.New("intervals must not be negative"))
	}
	if c.PublicRPM <= 0 || c.PublicBurst <= 0 {
		errs = append(errs, errors.New("public_rpm and public_burst must be positive"))
	}
	switch c.LogMode {
	case "development", "production":
	default:
		errs = append(errs, fmt.Errorf("log_mode %q must be development or production", c.LogMode))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c Config) HealthTimeout() time.Duration { return ms(c.HealthTimeoutMS) }
func (c Config) RetryBase() time.Duration     { return ms(c.RetryBaseMS) }
func (c Config) RetryMax() time.Duration      { return ms(c.RetryMaxMS) }
func (c Config) PollInterval() time.Duration  { return ms(c.PollIntervalMS) }
func (c Config) AlertCooldown() time.Duration { return ms(c.AlertCooldownMS) }

func (c Config) ConnectivityInterval() time.Duration { return ms(c.ConnectivityIntervalMS) }

func (c Config) PublicAPIKeys() []string  { return splitList(c.PublicAPIKeysRaw) }
func (c Config) AdminAPIKeys() []string   { return splitList(c.AdminAPIKeysRaw) }
func (c Config) AllowedOrigins() []string { return splitList(c.AllowedOriginsRaw) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
