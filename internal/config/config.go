package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var (
	exeDirCache string
)

// getExecutableDir returns the directory where the executable is located
func getExecutableDir() string {
	if exeDirCache != "" {
		return exeDirCache
	}
	execPath, err := os.Executable()
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	exeDirCache = filepath.Dir(execPath)
	return exeDirCache
}

type Config struct {
	AI         AIConfig         `yaml:"ai"`
	Generation GenerationConfig `yaml:"generation"`
	Images     ImageConfig      `yaml:"images"`
	History    HistoryConfig    `yaml:"history"`
	Audit      AuditConfig      `yaml:"audit"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AIConfig configures the OpenAI-compatible API and model selection.
type AIConfig struct {
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv         string   `yaml:"api_key_env"`
	BaseURL           string   `yaml:"base_url,omitempty"`
	DefaultModel      string   `yaml:"default_model"`
	DefaultImageModel string   `yaml:"default_image_model"`
	Temperature       float64  `yaml:"temperature"`
	ReasoningPrefixes []string `yaml:"reasoning_prefixes"`
	ImagePrefixes     []string `yaml:"image_prefixes"`
}

// GenerationConfig holds the request defaults used when CLI flags are not set.
type GenerationConfig struct {
	Language   string `yaml:"language"`
	Tone       string `yaml:"tone"`
	FlagFormat string `yaml:"flag_format"`
	OutputDir  string `yaml:"output_dir"`
	FilePrefix string `yaml:"file_prefix"`
}

type ImageConfig struct {
	Size    string `yaml:"size"`
	Quality string `yaml:"quality"`
	Style   string `yaml:"style"`
}

// HistoryConfig controls the SQLite run history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// AuditConfig controls the JSONL audit of composed prompts.
type AuditConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
	FilePrefix    string `yaml:"file_prefix"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func DefaultConfig() *Config {
	return &Config{
		AI: AIConfig{
			APIKeyEnv:         "OPENAI_API_KEY",
			DefaultModel:      "gpt-4o-mini",
			DefaultImageModel: "dall-e-3",
			Temperature:       0.65,
			ReasoningPrefixes: []string{"o"},
			ImagePrefixes:     []string{"dall"},
		},
		Generation: GenerationConfig{
			Language:   "es-PR",
			Tone:       "neutral",
			FlagFormat: "ctf{..}",
			OutputDir:  "output",
			FilePrefix: "ctf",
		},
		Images: ImageConfig{
			Size:    "1024x1024",
			Quality: "hd",
			Style:   "natural",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(ConfigDir(), "history.db"),
		},
		Audit: AuditConfig{
			Enabled:       false,
			Dir:           filepath.Join(ConfigDir(), "prompt-audit"),
			RetentionDays: 7,
			FilePrefix:    "prompts",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func ConfigDir() string {
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, ".ctf-assets")
}

func ConfigPath() string {
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, ".ctf-assets.yaml")
}

// LoadFromPath reads a config file over the defaults. A missing file is not
// an error.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveTo writes the config as YAML to path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
