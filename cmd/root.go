package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kayz/ctf-assets/internal/config"
	"github.com/kayz/ctf-assets/internal/debug"
	"github.com/kayz/ctf-assets/internal/logger"
)

// Environment overrides, used when the matching flag is not set.
const (
	envConfigPath = "CTF_ASSETS_CONFIG"
	envLogLevel   = "CTF_ASSETS_LOG"
)

var (
	logLevel   string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "ctf-assets",
	Short: "Generate CTF flags, stories and images with an OpenAI-compatible API",
	Long: `ctf-assets composes prompts for Capture-The-Flag exercises and asks an
OpenAI-compatible API for the assets.

Examples:
  ctf-assets generate flags --theme "space pirates" --quantity 5
  ctf-assets generate stories generate_stories_with_titles --tone playful
  ctf-assets generate images --theme "campus of the future" --out-dir imgs
  ctf-assets models --resolve gpt-4o
  ctf-assets history --limit 10`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return applyLogLevel(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "",
		"Log level: trace, debug, info, warn, error, fatal, panic (default from config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default: .ctf-assets.yaml next to the executable)")
}

// applyLogLevel sets the log level. Priority: flag > environment > config file.
func applyLogLevel(cmd *cobra.Command) error {
	raw := logLevel
	if raw == "" {
		raw = os.Getenv(envLogLevel)
	}
	if raw == "" {
		if cfg, err := loadConfig(); err == nil {
			raw = cfg.Logging.Level
		}
	}
	if debug.Enabled {
		raw = "trace"
	}
	if raw == "" {
		raw = "info"
	}

	level, err := logger.ParseLevel(raw)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	return nil
}

// resolveConfigPath returns the config file in use. Priority: flag >
// environment > default location.
func resolveConfigPath() string {
	if strings.TrimSpace(configPath) != "" {
		return configPath
	}
	if p := strings.TrimSpace(os.Getenv(envConfigPath)); p != "" {
		return p
	}
	return config.ConfigPath()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromPath(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func Execute() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
