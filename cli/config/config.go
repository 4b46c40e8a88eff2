package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "MODPANEL"
	ConfigName = "modpanel"

	BaseURLKey        = "base_url"
	TimeoutKey        = "timeout"
	NotifyDelayKey    = "notify_delay"
	StatusIntervalKey = "status_interval"
	LogFileKey        = "log_file"
	LogLevelKey       = "log_level"
	KeyringKey        = "keyring"
)

type Config struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	NotifyDelay    time.Duration `mapstructure:"notify_delay"`
	StatusInterval time.Duration `mapstructure:"status_interval"`
	LogFile        string        `mapstructure:"log_file"`
	LogLevel       string        `mapstructure:"log_level"`
	Keyring        bool          `mapstructure:"keyring"`

	v *viper.Viper
}

// Load reads configuration from, in rising precedence: defaults, the config
// file, a .env file in the working directory and MODPANEL_* variables.
// cfgFile, when set, replaces the config file search.
func Load(cfgFile string) (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	} else {
		for _, name := range searchPaths() {
			if _, err := os.Stat(name); err != nil {
				continue
			}
			v.SetConfigFile(name)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config file %s: %w", name, err)
			}
			break
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %s", TimeoutKey, cfg.Timeout)
	}
	cfg.v = v
	return &cfg, nil
}

func searchPaths() []string {
	paths := []string{ConfigName + ".yaml", ConfigName + ".yml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, ConfigName, "config.yaml"))
	}
	return paths
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(BaseURLKey, "http://localhost:5000")
	v.SetDefault(TimeoutKey, 30*time.Second)
	v.SetDefault(NotifyDelayKey, 5*time.Second)
	v.SetDefault(StatusIntervalKey, 60*time.Second)
	v.SetDefault(LogFileKey, defaultLogFile())
	v.SetDefault(LogLevelKey, "info")
	v.SetDefault(KeyringKey, true)
}

func defaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, ConfigName, ConfigName+".log")
}

// Set overrides a key, typically from a command-line flag.
func (c *Config) Set(key string, value any) {
	if c.v == nil {
		return
	}
	c.v.Set(key, value)
	if err := c.v.Unmarshal(c); err == nil {
		c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	}
}

func (c *Config) ConfigFileUsed() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}
