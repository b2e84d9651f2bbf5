package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	ModeLocal  = "local"
	ModeRemote = "remote"

	SlotSQLite = "sqlite"
	SlotRedis  = "redis"

	// MaxUserIDLen keeps the realtime channel "tasks:<user_id>" within the
	// 63 byte Postgres identifier limit.
	MaxUserIDLen = 57
)

type Config struct {
	Mode string `json:"mode" env:"LAZYTODO_MODE"`

	DBPath      string `json:"db_path" env:"LAZYTODO_DB_PATH"`
	Slot        string `json:"slot" env:"LAZYTODO_SLOT"`
	SnapshotKey string `json:"snapshot_key" env:"LAZYTODO_SNAPSHOT_KEY"`
	RedisURL    string `json:"redis_url" env:"LAZYTODO_REDIS_URL"`

	PostgresDSN string `json:"postgres_dsn" env:"LAZYTODO_POSTGRES_DSN"`
	UserID      string `json:"user_id" env:"LAZYTODO_USER_ID"`

	WebEnabled bool `json:"web_enabled" env:"LAZYTODO_WEB"`
	WebPort    int  `json:"web_port" env:"LAZYTODO_WEB_PORT"`

	ReminderInterval  Duration `json:"reminder_interval" env:"LAZYTODO_REMINDER_INTERVAL"`
	ReminderTolerance Duration `json:"reminder_tolerance" env:"LAZYTODO_REMINDER_TOLERANCE"`

	LogLevel  string `json:"log_level" env:"LAZYTODO_LOG_LEVEL"`
	LogFormat string `json:"log_format" env:"LAZYTODO_LOG_FORMAT"`
	LogPath   string `json:"log_path" env:"LAZYTODO_LOG_PATH"`
}

func Default() Config {
	return Config{
		Mode:              ModeLocal,
		Slot:              SlotSQLite,
		SnapshotKey:       "tasks",
		WebPort:           8080,
		ReminderInterval:  Duration(time.Second),
		ReminderTolerance: Duration(time.Second),
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "lazytodo", "config.json"), nil
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

// LoadFile reads the JSON config at path over the defaults. A missing file
// is not an error. Environment overrides are not applied.
func LoadFile(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}
	if err == nil {
		if err := json.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	return config, nil
}

// ApplyEnv overlays the LAZYTODO_* environment variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("read env: %w", err)
	}
	return nil
}

// Load is LoadFile followed by ApplyEnv. The result is not validated so
// callers can apply their own overrides first.
func Load(path string) (Config, error) {
	config, err := LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := ApplyEnv(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Resolve builds the effective config from the file, the environment and
// override, in increasing precedence. The file is rewritten with override
// applied but without environment values, so secrets passed through the
// environment never reach disk.
func Resolve(path string, override func(*Config)) (Config, error) {
	if override == nil {
		override = func(*Config) {}
	}

	persisted, err := LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	override(&persisted)
	if err := Save(path, persisted); err != nil {
		return Config{}, err
	}

	config := persisted
	if err := ApplyEnv(&config); err != nil {
		return Config{}, err
	}
	override(&config)

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Save writes cfg owner-readable only, since it may hold database
// credentials.
func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeLocal:
		switch c.Slot {
		case SlotSQLite:
		case SlotRedis:
			if c.RedisURL == "" {
				return fmt.Errorf("redis slot requires redis_url")
			}
		default:
			return fmt.Errorf("unknown slot %q", c.Slot)
		}
	case ModeRemote:
		if c.PostgresDSN == "" {
			return fmt.Errorf("remote mode requires postgres_dsn")
		}
		if strings.TrimSpace(c.UserID) == "" {
			return fmt.Errorf("remote mode requires user_id")
		}
		if len(c.UserID) > MaxUserIDLen {
			return fmt.Errorf("user_id must be at most %d bytes", MaxUserIDLen)
		}
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.ReminderInterval.Duration() <= 0 {
		return fmt.Errorf("reminder_interval must be positive")
	}
	return nil
}

// Duration reads "10s", "5m" or a bare number of seconds. JSON accepts
// both a string and a plain number.
type Duration time.Duration

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	return d.SetValue(string(text))
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" {
		return nil
	}
	if strings.HasPrefix(text, `"`) {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		return d.SetValue(value)
	}
	return d.SetValue(text)
}

// SetValue implements cleanenv.Setter.
func (d *Duration) SetValue(s string) error {
	v, err := parseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')) {
		s = s[1 : len(s)-1]
	}

	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("duration must be like 10s, 5m or a number of seconds: %w", err)
	}
	return d, nil
}
