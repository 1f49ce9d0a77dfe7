// Package config loads pacer configuration from ~/.pacer/config.toml and
// PACER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bnema/pacer/internal/domain"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".pacer"
	envPrefix  = "PACER"

	BackendFile  = "file"
	BackendRedis = "redis"
)

type Config struct {
	Account    AccountConfig
	Session    SessionConfig
	Platform   PlatformConfig
	RateLimits domain.RateLimitConfig
	Delays     domain.DelayConfig
	Safety     domain.SafetyConfig
	Journal    JournalConfig
	Log        LogConfig
	Secrets    SecretsConfig
}

type AccountConfig struct {
	Username  string
	SecretRef string
}

type SessionConfig struct {
	Backend string
	// Path is the TOML sessions file used by the file backend.
	Path   string
	Policy domain.SessionPolicy
	Redis  RedisConfig
}

type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
}

type PlatformConfig struct {
	BaseURL      string
	LoginPath    string
	IdentityPath string
	UserAgent    string
	Timeout      time.Duration
}

type JournalConfig struct {
	Enabled bool
	Path    string
	// Retention is how long journal records are kept before pruning.
	Retention time.Duration
}

type LogConfig struct {
	Level string
}

type SecretsConfig struct {
	Dir      string
	EnvFiles []string
}

// Dir returns the pacer state directory under home.
func Dir(home string) string {
	return filepath.Join(home, configDir)
}

// Load reads the config file (a missing file is fine), applies PACER_*
// overrides and validates the result.
func Load(v *viper.Viper, home string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	if strings.TrimSpace(home) == "" {
		return Config{}, errors.New("home directory is empty")
	}

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(Dir(home))
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, home)

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := decode(v, home)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, home string) {
	session := domain.DefaultSessionPolicy()
	delays := domain.DefaultDelayConfig()
	safety := domain.DefaultSafetyConfig()
	limits := domain.DefaultRateLimitConfig()

	v.SetDefault("account.username", "")
	v.SetDefault("account.secret_ref", "")

	v.SetDefault("session.backend", BackendFile)
	v.SetDefault("session.path", filepath.Join(Dir(home), "sessions.toml"))
	v.SetDefault("session.max_age", session.MaxAge)
	v.SetDefault("session.min_login_interval", session.MinLoginInterval)
	v.SetDefault("session.revalidate_after", session.RevalidateAfter)
	v.SetDefault("session.redis.addr", "")
	v.SetDefault("session.redis.username", "")
	v.SetDefault("session.redis.password", "")
	v.SetDefault("session.redis.db", 0)

	v.SetDefault("platform.base_url", "")
	v.SetDefault("platform.login_path", "/api/v1/accounts/login")
	v.SetDefault("platform.identity_path", "/api/v1/accounts/current_user")
	v.SetDefault("platform.user_agent", "pacer")
	v.SetDefault("platform.timeout", 30*time.Second)

	v.SetDefault("rate_limits.enabled", limits.Enabled)
	for actionType, limit := range limits.Limits {
		v.SetDefault(limitKey(string(actionType), "max"), limit.Max)
		v.SetDefault(limitKey(string(actionType), "window"), string(limit.Window))
	}

	v.SetDefault("delays.action.min", delays.Action.Min)
	v.SetDefault("delays.action.max", delays.Action.Max)
	v.SetDefault("delays.request.min", delays.Request.Min)
	v.SetDefault("delays.request.max", delays.Request.Max)
	v.SetDefault("delays.error.min", delays.Error.Min)
	v.SetDefault("delays.error.max", delays.Error.Max)

	v.SetDefault("safety.max_daily_actions", safety.MaxDailyActions)
	v.SetDefault("safety.min_success_rate", safety.MinSuccessRate)
	v.SetDefault("safety.max_hourly_errors", safety.MaxHourlyErrors)

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", filepath.Join(Dir(home), "journal.db"))
	v.SetDefault("journal.retention", 30*24*time.Hour)

	v.SetDefault("log.level", "warn")

	v.SetDefault("secrets.dir", filepath.Join(Dir(home), "secrets"))
	v.SetDefault("secrets.env_files", []string{".env", filepath.Join(Dir(home), ".env")})
}

func limitKey(actionType string, field string) string {
	return "rate_limits.actions." + actionType + "." + field
}

func decode(v *viper.Viper, home string) Config {
	cfg := Config{
		Account: AccountConfig{
			Username:  strings.TrimSpace(v.GetString("account.username")),
			SecretRef: strings.TrimSpace(v.GetString("account.secret_ref")),
		},
		Session: SessionConfig{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString("session.backend"))),
			Path:    expandHome(v.GetString("session.path"), home),
			Policy: domain.SessionPolicy{
				MaxAge:           v.GetDuration("session.max_age"),
				MinLoginInterval: v.GetDuration("session.min_login_interval"),
				RevalidateAfter:  v.GetDuration("session.revalidate_after"),
			},
			Redis: RedisConfig{
				Addr:     v.GetString("session.redis.addr"),
				Username: v.GetString("session.redis.username"),
				Password: v.GetString("session.redis.password"),
				DB:       v.GetInt("session.redis.db"),
			},
		},
		Platform: PlatformConfig{
			BaseURL:      strings.TrimSpace(v.GetString("platform.base_url")),
			LoginPath:    v.GetString("platform.login_path"),
			IdentityPath: v.GetString("platform.identity_path"),
			UserAgent:    v.GetString("platform.user_agent"),
			Timeout:      v.GetDuration("platform.timeout"),
		},
		RateLimits: domain.RateLimitConfig{
			Enabled: v.GetBool("rate_limits.enabled"),
			Limits:  map[domain.ActionType]domain.Limit{},
		},
		Delays: domain.DelayConfig{
			Action:  domain.DelayRange{Min: v.GetDuration("delays.action.min"), Max: v.GetDuration("delays.action.max")},
			Request: domain.DelayRange{Min: v.GetDuration("delays.request.min"), Max: v.GetDuration("delays.request.max")},
			Error:   domain.DelayRange{Min: v.GetDuration("delays.error.min"), Max: v.GetDuration("delays.error.max")},
		},
		Safety: domain.SafetyConfig{
			MaxDailyActions: v.GetInt("safety.max_daily_actions"),
			MinSuccessRate:  v.GetFloat64("safety.min_success_rate"),
			MaxHourlyErrors: v.GetInt("safety.max_hourly_errors"),
		},
		Journal: JournalConfig{
			Enabled:   v.GetBool("journal.enabled"),
			Path:      expandHome(v.GetString("journal.path"), home),
			Retention: v.GetDuration("journal.retention"),
		},
		Log: LogConfig{Level: strings.ToLower(strings.TrimSpace(v.GetString("log.level")))},
		Secrets: SecretsConfig{
			Dir: expandHome(v.GetString("secrets.dir"), home),
		},
	}

	for _, file := range v.GetStringSlice("secrets.env_files") {
		if file = strings.TrimSpace(file); file != "" {
			cfg.Secrets.EnvFiles = append(cfg.Secrets.EnvFiles, expandHome(file, home))
		}
	}

	for _, name := range limitNames(v) {
		cfg.RateLimits.Limits[domain.ActionType(name)] = domain.Limit{
			Max:    v.GetInt(limitKey(name, "max")),
			Window: domain.Window(strings.ToLower(v.GetString(limitKey(name, "window")))),
		}
	}

	return cfg
}

// limitNames lists action types configured anywhere, defaults included.
func limitNames(v *viper.Viper) []string {
	const prefix = "rate_limits.actions."

	var names []string
	for _, key := range v.AllKeys() {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		name, _, ok := strings.Cut(rest, ".")
		if !ok || name == "" || slices.Contains(names, name) {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

func expandHome(path string, home string) string {
	path = strings.TrimSpace(path)
	switch {
	case path == "~":
		return home
	case strings.HasPrefix(path, "~/"):
		return filepath.Join(home, path[2:])
	default:
		return path
	}
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error

	if c.Account.Username == "" {
		errs = append(errs, errors.New("account.username must not be empty"))
	} else if strings.ContainsAny(c.Account.Username, " /\\") {
		errs = append(errs, errors.New("account.username must not contain spaces or slashes"))
	}

	switch c.Session.Backend {
	case BackendFile:
		if c.Session.Path == "" {
			errs = append(errs, errors.New("session.path must not be empty for the file backend"))
		}
	case BackendRedis:
		if c.Session.Redis.Addr == "" {
			errs = append(errs, errors.New("session.redis.addr must be set for the redis backend"))
		}
		if c.Session.Redis.DB < 0 {
			errs = append(errs, errors.New("session.redis.db must be >= 0"))
		}
	default:
		errs = append(errs, fmt.Errorf("session.backend must be %q or %q", BackendFile, BackendRedis))
	}
	if c.Session.Policy.MaxAge < 0 {
		errs = append(errs, errors.New("session.max_age must be >= 0 (0 = never expires)"))
	}
	if c.Session.Policy.MinLoginInterval < 0 {
		errs = append(errs, errors.New("session.min_login_interval must be >= 0"))
	}
	if c.Session.Policy.RevalidateAfter < 0 {
		errs = append(errs, errors.New("session.revalidate_after must be >= 0 (0 = always probe)"))
	}

	if c.Platform.BaseURL != "" {
		u, err := url.ParseRequestURI(c.Platform.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, errors.New("platform.base_url must be a valid http or https URL"))
		}
	}
	if !strings.HasPrefix(c.Platform.LoginPath, "/") {
		errs = append(errs, errors.New("platform.login_path must start with /"))
	}
	if !strings.HasPrefix(c.Platform.IdentityPath, "/") {
		errs = append(errs, errors.New("platform.identity_path must start with /"))
	}
	if c.Platform.Timeout < 0 {
		errs = append(errs, errors.New("platform.timeout must be >= 0"))
	}

	if err := c.RateLimits.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Delays.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Safety.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Journal.Enabled && c.Journal.Path == "" {
		errs = append(errs, errors.New("journal.path must be set when journal.enabled is true"))
	}
	if c.Journal.Retention < 0 {
		errs = append(errs, errors.New("journal.retention must be >= 0 (0 = keep forever)"))
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level))
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, errors.Join(errs...))
}

// SlogLevel maps log.level onto a slog level.
func (c LogConfig) SlogLevel() slog.Level {
	return ParseLevel(c.Level)
}

// ParseLevel falls back to warn for unknown names.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
