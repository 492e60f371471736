package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/TWRT/tasksync/internal/logger"
)

const EnvPrefix = "TODO"

var (
	storageDrivers = []string{"sqlite", "file", "redis", "memory"}
	notifyDrivers  = []string{"log", "console", "nats"}
)

type Config struct {
	User    string         `mapstructure:"user"`
	Storage StorageConfig  `mapstructure:"storage"`
	Redis   RedisConfig    `mapstructure:"redis"`
	Sync    SyncConfig     `mapstructure:"sync"`
	Notify  NotifyConfig   `mapstructure:"notify"`
	NATS    NATSConfig     `mapstructure:"nats"`
	Server  ServerConfig   `mapstructure:"server"`
	Log     logger.Options `mapstructure:"log"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	// Path is the sqlite database file or the directory for the file driver.
	Path string `mapstructure:"path"`
	Key  string `mapstructure:"key"`
}

type RedisConfig struct {
	Addr   string `mapstructure:"addr"`
	Prefix string `mapstructure:"prefix"`
}

type SyncConfig struct {
	URL          string        `mapstructure:"url"`
	Interval     time.Duration `mapstructure:"interval"`
	Debounce     time.Duration `mapstructure:"debounce"`
	Timeout      time.Duration `mapstructure:"timeout"`
	StatusSettle time.Duration `mapstructure:"status_settle"`
}

// Enabled reports whether a remote endpoint is configured.
func (s SyncConfig) Enabled() bool {
	return strings.TrimSpace(s.URL) != ""
}

type NotifyConfig struct {
	Driver string `mapstructure:"driver"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type ServerConfig struct {
	Addr       string `mapstructure:"addr"`
	StorageKey string `mapstructure:"storage_key"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("user", "default")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "./tasksync.db")
	v.SetDefault("storage.key", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.prefix", "tasksync:")
	v.SetDefault("sync.url", "")
	v.SetDefault("sync.interval", 60*time.Second)
	v.SetDefault("sync.debounce", 1500*time.Millisecond)
	v.SetDefault("sync.timeout", 10*time.Second)
	v.SetDefault("sync.status_settle", 2*time.Second)
	v.SetDefault("notify.driver", "log")
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.subject", "tasksync.reminders")
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.storage_key", "todos_remote")
	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.output", "STDERR")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.time_format", "RFC3339")
}

// Override adjusts settings after every other source has been read.
type Override func(v *viper.Viper)

func WithUser(user string) Override {
	return func(v *viper.Viper) {
		v.Set("user", user)
	}
}

// Load reads .env, then the optional YAML file at path, then TODO_* environment
// variables, then overrides, each layer winning over the previous one.
func Load(path string, overrides ...Override) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, o := range overrides {
		o(v)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Storage.Key == "" {
		cfg.Storage.Key = StorageKey(cfg.User)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// StorageKey is the per-user blob key.
func StorageKey(user string) string {
	return "todos_" + user
}

func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.User) == "" {
		errs = append(errs, errors.New("user is required"))
	}
	if !oneOf(c.Storage.Driver, storageDrivers) {
		errs = append(errs, fmt.Errorf("storage.driver %q: must be one of %s", c.Storage.Driver, strings.Join(storageDrivers, ", ")))
	}
	if (c.Storage.Driver == "sqlite" || c.Storage.Driver == "file") && c.Storage.Path == "" {
		errs = append(errs, fmt.Errorf("storage.path is required for driver %s", c.Storage.Driver))
	}
	if !oneOf(c.Notify.Driver, notifyDrivers) {
		errs = append(errs, fmt.Errorf("notify.driver %q: must be one of %s", c.Notify.Driver, strings.Join(notifyDrivers, ", ")))
	}
	if c.Notify.Driver == "nats" && c.NATS.Subject == "" {
		errs = append(errs, errors.New("nats.subject is required for the nats notifier"))
	}

	durations := map[string]time.Duration{
		"sync.interval":      c.Sync.Interval,
		"sync.debounce":      c.Sync.Debounce,
		"sync.timeout":       c.Sync.Timeout,
		"sync.status_settle": c.Sync.StatusSettle,
	}
	for _, name := range []string{"sync.interval", "sync.debounce", "sync.timeout", "sync.status_settle"} {
		if durations[name] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, durations[name]))
		}
	}

	if !logger.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level %q is not a known level", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func oneOf(s string, options []string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}
