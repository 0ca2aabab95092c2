package cmd

import (
	"fmt"
	"os"
	"strings"

	cfgpkg "github.com/KaramelBytes/winelens/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global
	// Process logger, built once config is loaded.
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "winelens",
	Short: "winelens: explore the wine-quality dataset in the browser",
	Long: `winelens serves a single-page dashboard for the wine-quality dataset.
Upload a CSV and the page renders the data preview, quality distribution,
histograms, correlation map, scatter plots and boxplots. The same figures and
statistics are available from the command line via analyze and render.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loadConfig()
		l, err := newLogger()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.winelens/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
}

// newLogger builds the production zap logger. --debug wins over log_level.
func newLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	level := zapcore.InfoLevel
	if cfg != nil && cfg.LogLevel != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.LogLevel))); err != nil {
			return nil, fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
		}
	}
	if debug {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// currentConfig returns the loaded config, loading it on demand.
func currentConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}
