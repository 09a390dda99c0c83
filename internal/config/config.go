package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultControlTimeout  = 5 * time.Second
	defaultListTimeout     = 10 * time.Second
	defaultRefreshInterval = 5 * time.Second

	envPrefix = "PROCCTL"
)

// Config aggregates tunables for the daemon and its clients.
type Config struct {
	// Source selects the listing backend: auto, tasklist, ps or native.
	Source string
	// Exclude hides processes whose name matches exactly (case-insensitive).
	Exclude []string
	// Killer selects forced termination: command or native.
	Killer string
	// KillCommand overrides the termination argv; "{pid}" is substituted.
	KillCommand []string

	ControlTimeout time.Duration
	ListTimeout    time.Duration
	// RefreshInterval drives the daemon's auto refresh; 0 disables it.
	RefreshInterval time.Duration

	LogLevel  string
	LogFormat string
}

// Default returns the built-in configuration for the running platform.
func Default() Config {
	cfg := Config{
		Source:          "auto",
		Killer:          "command",
		ControlTimeout:  defaultControlTimeout,
		ListTimeout:     defaultListTimeout,
		RefreshInterval: defaultRefreshInterval,
		LogLevel:        "info",
		LogFormat:       "text",
	}
	if runtime.GOOS == "windows" {
		cfg.Exclude = []string{"svchost.exe"}
	}
	return cfg
}

// Load builds a Config from an optional file (JSON, YAML or TOML, by
// extension) plus PROCCTL_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetDefault("source", cfg.Source)
	v.SetDefault("exclude", cfg.Exclude)
	v.SetDefault("killer", cfg.Killer)
	v.SetDefault("kill_command", cfg.KillCommand)
	v.SetDefault("control_timeout", cfg.ControlTimeout.String())
	v.SetDefault("list_timeout", cfg.ListTimeout.String())
	v.SetDefault("refresh_interval", cfg.RefreshInterval.String())
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	cfg.Source = strings.TrimSpace(v.GetString("source"))
	cfg.Exclude = stringList(v.Get("exclude"))
	cfg.Killer = strings.TrimSpace(v.GetString("killer"))
	cfg.KillCommand = stringList(v.Get("kill_command"))
	cfg.LogLevel = v.GetString("log_level")
	cfg.LogFormat = v.GetString("log_format")

	var err error
	if cfg.ControlTimeout, err = duration(v, "control_timeout", false); err != nil {
		return cfg, err
	}
	if cfg.ListTimeout, err = duration(v, "list_timeout", false); err != nil {
		return cfg, err
	}
	if cfg.RefreshInterval, err = duration(v, "refresh_interval", true); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	switch strings.ToLower(c.Source) {
	case "", "auto", "tasklist", "ps", "native":
	default:
		return fmt.Errorf("source must be one of auto, tasklist, ps, native (got %q)", c.Source)
	}
	switch strings.ToLower(c.Killer) {
	case "", "command", "native":
	default:
		return fmt.Errorf("killer must be command or native (got %q)", c.Killer)
	}
	if c.ControlTimeout <= 0 {
		return errors.New("control_timeout must be > 0")
	}
	if c.ListTimeout <= 0 {
		return errors.New("list_timeout must be > 0")
	}
	if c.RefreshInterval < 0 {
		return errors.New("refresh_interval must be >= 0")
	}
	return nil
}

func duration(v *viper.Viper, key string, allowZero bool) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if dur < 0 || (dur == 0 && !allowZero) {
		if allowZero {
			return 0, fmt.Errorf("%s must be >= 0", key)
		}
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return dur, nil
}

// stringList accepts a list from a config file or a comma-separated env value.
func stringList(raw any) []string {
	var items []string
	switch val := raw.(type) {
	case nil:
		return nil
	case string:
		items = strings.Split(val, ",")
	case []string:
		items = val
	case []any:
		for _, it := range val {
			items = append(items, fmt.Sprint(it))
		}
	default:
		items = []string{fmt.Sprint(val)}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
