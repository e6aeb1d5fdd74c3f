package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/deevus/carbon-tui/internal/api"
)

// Defaults applied after parsing.
const (
	DefaultTimeout             = 15 * time.Second
	DefaultRequestsPerSecond   = 10
	DefaultPageSize            = 20
	DefaultStaleTTL            = 30 * time.Second
	DefaultNotificationTimeout = 5 * time.Second
	DefaultSSHPort             = 22
)

// Config is the top-level configuration.
type Config struct {
	LogFile     string             `toml:"log_file"`
	LogLevel    string             `toml:"log_level"`
	MetricsAddr string             `toml:"metrics_addr"`
	UI          UIConfig           `toml:"ui"`
	Profiles    map[string]Profile `toml:"profiles"`
}

// UIConfig holds display settings shared by all profiles.
type UIConfig struct {
	StaleTTL             time.Duration `toml:"stale_ttl"`
	NotificationTimeout  time.Duration `toml:"notification_timeout"`
	NotificationPosition string        `toml:"notification_position"`
	// RefreshSchedule is a cron spec for refreshing the active view. Empty
	// disables scheduled refresh.
	RefreshSchedule string `toml:"refresh_schedule"`
}

// Profile holds connection details for one marketplace account.
type Profile struct {
	BaseURL            string        `toml:"base_url"`
	Token              string        `toml:"token"`
	Role               api.Role      `toml:"role"`
	UserID             string        `toml:"user_id"`
	InsecureSkipVerify bool          `toml:"insecure_skip_verify"`
	Timeout            time.Duration `toml:"timeout"`
	RequestsPerSecond  float64       `toml:"requests_per_second"`
	PageSize           int           `toml:"page_size"`
	SSH                *SSHConfig    `toml:"ssh"`
}

// SSHConfig holds an optional SSH jump host used to reach base_url.
type SSHConfig struct {
	Host               string `toml:"host"`
	Port               int    `toml:"port"`
	Username           string `toml:"username"`
	PrivateKeyPath     string `toml:"private_key_path"`
	HostKeyFingerprint string `toml:"host_key_fingerprint"`
}

// DefaultPath returns the default config file path using XDG conventions.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "carbon-tui", "config.toml")
}

// LoadEnvFile loads KEY=value pairs from path into the environment without
// overriding variables already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// LoadFrom reads and parses the config file at the given path, applies
// defaults and expands ~ and $VAR in paths, URLs and tokens.
func LoadFrom(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	if len(cfg.Profiles) == 0 {
		return nil, fmt.Errorf("config has no profiles defined")
	}

	cfg.LogFile = expandPath(cfg.LogFile)
	if err := cfg.UI.applyDefaults(); err != nil {
		return nil, err
	}
	for name, p := range cfg.Profiles {
		if err := p.applyDefaults(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		cfg.Profiles[name] = p
	}
	return &cfg, nil
}

func (u *UIConfig) applyDefaults() error {
	if u.StaleTTL == 0 {
		u.StaleTTL = DefaultStaleTTL
	}
	if u.NotificationTimeout == 0 {
		u.NotificationTimeout = DefaultNotificationTimeout
	}
	switch u.NotificationPosition {
	case "":
		u.NotificationPosition = "toast"
	case "toast", "inline":
	default:
		return fmt.Errorf("ui.notification_position must be toast or inline, got %q", u.NotificationPosition)
	}
	if u.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(u.RefreshSchedule); err != nil {
			return fmt.Errorf("ui.refresh_schedule: %w", err)
		}
	}
	return nil
}

func (p *Profile) applyDefaults() error {
	p.BaseURL = os.ExpandEnv(p.BaseURL)
	p.Token = os.ExpandEnv(p.Token)
	p.UserID = os.ExpandEnv(p.UserID)
	if p.BaseURL == "" {
		return errors.New("base_url is required")
	}
	u, err := url.Parse(p.BaseURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("base_url %q is not a valid URL", p.BaseURL)
	}

	if p.Timeout == 0 {
		p.Timeout = DefaultTimeout
	}
	if p.RequestsPerSecond == 0 {
		p.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if p.PageSize == 0 {
		p.PageSize = DefaultPageSize
	}

	// Role and user id may come from the token instead of the file.
	if (p.Role == "" || p.UserID == "") && p.Token != "" {
		if s, err := api.ParseSession(p.Token); err == nil {
			if p.Role == "" {
				p.Role = s.Role
			}
			if p.UserID == "" {
				p.UserID = s.UserID
			}
		}
	}
	p.Role = api.Role(strings.ToLower(string(p.Role)))
	if p.Role == "" {
		return errors.New("role is required (set role or use a token with a role claim)")
	}
	if !p.Role.Valid() {
		return fmt.Errorf("unknown role %q", p.Role)
	}

	if p.SSH != nil {
		if p.SSH.Host == "" {
			p.SSH.Host = u.Hostname()
		}
		if p.SSH.Port == 0 {
			p.SSH.Port = DefaultSSHPort
		}
		if p.SSH.Username == "" {
			p.SSH.Username = os.Getenv("USER")
		}
		p.SSH.PrivateKeyPath = expandPath(p.SSH.PrivateKeyPath)
	}
	return nil
}

// expandPath expands ~ to $HOME and then expands all environment variables.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		path = "$HOME" + path[1:]
	}
	return os.ExpandEnv(path)
}

// ProfileNames returns the sorted list of profile names.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve picks the named profile. An empty name selects the only profile
// when exactly one is configured.
func (c *Config) Resolve(name string) (string, Profile, error) {
	if name == "" {
		names := c.ProfileNames()
		if len(names) != 1 {
			return "", Profile{}, fmt.Errorf("multiple profiles configured, use --profile (available: %s)", strings.Join(names, ", "))
		}
		name = names[0]
	}
	p, ok := c.Profiles[name]
	if !ok {
		return "", Profile{}, fmt.Errorf("profile %q not found in config", name)
	}
	return name, p, nil
}
