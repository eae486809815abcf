package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type StoreConfig struct {
	Type string `mapstructure:"type"`
	Path string `mapstructure:"path"`
}

type ReconcileConfig struct {
	Spec  string        `mapstructure:"spec"`
	Grace time.Duration `mapstructure:"grace"`
}

type RateLimitConfig struct {
	Commands int           `mapstructure:"commands"`
	Interval time.Duration `mapstructure:"interval"`
}

type Config struct {
	Token            string          `mapstructure:"token"`
	Mode             string          `mapstructure:"mode"`
	Port             int             `mapstructure:"port"`
	HTTPEnabled      bool            `mapstructure:"http_enabled"`
	CommandPrefix    string          `mapstructure:"command_prefix"`
	RoomNameTemplate string          `mapstructure:"room_name_template"`
	Store            StoreConfig     `mapstructure:"store"`
	Reconcile        ReconcileConfig `mapstructure:"reconcile"`
	RateLimit        RateLimitConfig `mapstructure:"rate_limit"`
	LogLevel         string          `mapstructure:"log_level"`
	UserCacheSize    int             `mapstructure:"user_cache_size"`
}

// Loader keeps the viper instance around so the file can be watched.
type Loader struct {
	v *viper.Viper
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("token", "")
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("http_enabled", false)
	v.SetDefault("command_prefix", ".v ")
	v.SetDefault("room_name_template", "{user}'s Room")
	v.SetDefault("store.type", "json")
	v.SetDefault("store.path", "data.json")
	v.SetDefault("reconcile.spec", "@every 5m")
	v.SetDefault("reconcile.grace", "1m")
	v.SetDefault("rate_limit.commands", 5)
	v.SetDefault("rate_limit.interval", "10s")
	v.SetDefault("log_level", "info")
	v.SetDefault("user_cache_size", 512)
}

// FileName picks the config file: path if given, otherwise
// config/config.<CONFIG_ENV>.yaml with CONFIG_ENV defaulting to dev.
func FileName(path string) string {
	if path != "" {
		return path
	}
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return fmt.Sprintf("config/config.%s.yaml", env)
}

// Load reads defaults, then the YAML file, then TEMPVOICE_* environment
// variables. A missing file is not an error.
func Load(path string) (*Config, *Loader, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	fileName := FileName(path)
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("TEMPVOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Str("store", cfg.Store.Type).
		Bool("http", cfg.HTTPEnabled).Int("port", cfg.Port).Msg("config ready")
	return cfg, &Loader{v: v}, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Validate checks what the bot needs to connect. The admin CLI skips it.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("config: token is required")
	}
	return nil
}

// OnChange watches the config file and hands every successfully decoded
// version to fn. Only hot-reloadable settings should be read from it.
func (l *Loader) OnChange(fn func(*Config)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(l.v)
		if err != nil {
			log.Warn().Err(err).Str("module", "config").Str("file", e.Name).Msg("ignoring invalid config change")
			return
		}
		log.Info().Str("module", "config").Str("file", e.Name).Msg("config changed")
		fn(cfg)
	})
	l.v.WatchConfig()
}
