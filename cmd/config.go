package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/winelens/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set winelens configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		for _, k := range cfgpkg.Keys {
			fmt.Printf("%s: %s\n", k, configValue(cfg, k))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := currentConfig()
		if err != nil {
			return err
		}
		if err := setConfigValue(c, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Println("✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func configValue(c *cfgpkg.Global, key string) string {
	switch key {
	case "addr":
		return c.Addr
	case "data_dir":
		return c.DataDir
	case "default_data_path":
		return c.DefaultDataPath
	case "log_level":
		return c.LogLevel
	case "max_upload_mb":
		return strconv.Itoa(c.MaxUploadMB)
	case "max_rows":
		return strconv.Itoa(c.MaxRows)
	case "sample_rows":
		return strconv.Itoa(c.SampleRows)
	case "histogram_bins":
		return strconv.Itoa(c.HistogramBins)
	case "read_timeout_sec":
		return strconv.Itoa(c.ReadTimeoutSec)
	case "write_timeout_sec":
		return strconv.Itoa(c.WriteTimeoutSec)
	case "upload_ttl_hours":
		return strconv.Itoa(c.UploadTTLHours)
	}
	return ""
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	atoi := func(min int) (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < min {
			return 0, fmt.Errorf("invalid int for %s: %v (minimum %d)", key, val, min)
		}
		return i, nil
	}
	var err error
	switch key {
	case "addr":
		c.Addr = val
	case "data_dir":
		c.DataDir = val
	case "default_data_path":
		c.DefaultDataPath = val
	case "log_level":
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(strings.ToLower(val))); err != nil {
			return fmt.Errorf("invalid log_level: %s (use debug|info|warn|error)", val)
		}
		c.LogLevel = lvl.String()
	case "max_upload_mb":
		c.MaxUploadMB, err = atoi(1)
	case "max_rows":
		c.MaxRows, err = atoi(0)
	case "sample_rows":
		c.SampleRows, err = atoi(0)
	case "histogram_bins":
		c.HistogramBins, err = atoi(0)
	case "read_timeout_sec":
		c.ReadTimeoutSec, err = atoi(0)
	case "write_timeout_sec":
		c.WriteTimeoutSec, err = atoi(0)
	case "upload_ttl_hours":
		c.UploadTTLHours, err = atoi(0)
	default:
		return fmt.Errorf("unknown key: %s (valid: %s)", key, strings.Join(cfgpkg.Keys, ", "))
	}
	return err
}
