package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	Addr            string `mapstructure:"addr" yaml:"addr"`
	DataDir         string `mapstructure:"data_dir" yaml:"data_dir"`
	DefaultDataPath string `mapstructure:"default_data_path" yaml:"default_data_path"`
	LogLevel        string `mapstructure:"log_level" yaml:"log_level"`

	// Ingestion limits
	MaxUploadMB int `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	MaxRows     int `mapstructure:"max_rows" yaml:"max_rows"`
	SampleRows  int `mapstructure:"sample_rows" yaml:"sample_rows"`

	HistogramBins int `mapstructure:"histogram_bins" yaml:"histogram_bins"`

	// HTTP server
	ReadTimeoutSec  int `mapstructure:"read_timeout_sec" yaml:"read_timeout_sec"`
	WriteTimeoutSec int `mapstructure:"write_timeout_sec" yaml:"write_timeout_sec"`
	UploadTTLHours  int `mapstructure:"upload_ttl_hours" yaml:"upload_ttl_hours"`
}

// Keys lists every configuration key in display order.
var Keys = []string{
	"addr", "data_dir", "default_data_path", "log_level",
	"max_upload_mb", "max_rows", "sample_rows", "histogram_bins",
	"read_timeout_sec", "write_timeout_sec", "upload_ttl_hours",
}

// MaxUploadBytes returns the upload cap in bytes.
func (c *Global) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) << 20 }

// UploadTTL returns how long uploads are kept; zero keeps them forever.
func (c *Global) UploadTTL() time.Duration { return time.Duration(c.UploadTTLHours) * time.Hour }

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".winelens"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.winelens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Command flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("WINELENS")
	v.AutomaticEnv()

	v.SetDefault("addr", "127.0.0.1:8050")
	v.SetDefault("data_dir", "")
	v.SetDefault("default_data_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("max_upload_mb", 32)
	v.SetDefault("max_rows", 100000)
	v.SetDefault("sample_rows", 5)
	v.SetDefault("histogram_bins", 30)
	v.SetDefault("read_timeout_sec", 30)
	v.SetDefault("write_timeout_sec", 60)
	v.SetDefault("upload_ttl_hours", 24)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Resolve data_dir default: ~/.winelens
	if c.DataDir == "" {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		c.DataDir = dir
	}
	return &c, nil
}
