package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromPathOverridesDefaults(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, ".ctf-assets.yaml")
	content := `ai:
  default_model: "gpt-4o"
  temperature: 0.3
  reasoning_prefixes:
    - "o"
    - "gpt-5"
generation:
  language: "en-US"
  flag_format: "flag{...}"
images:
  quality: "standard"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AI.DefaultModel != "gpt-4o" {
		t.Fatalf("unexpected default model: %q", cfg.AI.DefaultModel)
	}
	if cfg.AI.Temperature != 0.3 {
		t.Fatalf("unexpected temperature: %v", cfg.AI.Temperature)
	}
	if len(cfg.AI.ReasoningPrefixes) != 2 || cfg.AI.ReasoningPrefixes[1] != "gpt-5" {
		t.Fatalf("unexpected reasoning prefixes: %#v", cfg.AI.ReasoningPrefixes)
	}
	if cfg.Generation.Language != "en-US" || cfg.Generation.FlagFormat != "flag{...}" {
		t.Fatalf("unexpected generation section: %#v", cfg.Generation)
	}
	// untouched keys keep their defaults
	if cfg.AI.DefaultImageModel != "dall-e-3" {
		t.Fatalf("expected default image model to survive, got %q", cfg.AI.DefaultImageModel)
	}
	if cfg.Images.Quality != "standard" || cfg.Images.Size != "1024x1024" {
		t.Fatalf("unexpected images section: %#v", cfg.Images)
	}
}

func TestLoadFromPathMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AI.DefaultModel != "gpt-4o-mini" || cfg.Generation.Language != "es-PR" {
		t.Fatalf("expected defaults, got %#v", cfg.AI)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cfg.yaml")
	cfg := DefaultConfig()
	cfg.Generation.FilePrefix = "picoctf"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Generation.FilePrefix != "picoctf" {
		t.Fatalf("prefix not persisted: %q", loaded.Generation.FilePrefix)
	}
}

func TestCredentialsPrefersEnvironment(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CTF_TEST_KEY=from-file\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("CTF_TEST_KEY", "from-env")

	c := NewCredentials("CTF_TEST_KEY", dir)
	key, err := c.APIKey(true)
	if err != nil {
		t.Fatalf("APIKey: %v", err)
	}
	if key != "from-env" {
		t.Fatalf("expected env key, got %q", key)
	}
}

func TestCredentialsFindsDotEnvInParent(t *testing.T) {
	root := t.TempDir()
	child := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(child, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, ".env"), []byte("CTF_TEST_PARENT_KEY=\"parent-key\"\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	c := NewCredentials("CTF_TEST_PARENT_KEY", child)
	key, err := c.APIKey(true)
	if err != nil {
		t.Fatalf("APIKey: %v", err)
	}
	if key != "parent-key" {
		t.Fatalf("expected key from parent .env, got %q", key)
	}
}

func TestCredentialsCachesFirstValue(t *testing.T) {
	t.Setenv("CTF_TEST_CACHE_KEY", "first")
	c := NewCredentials("CTF_TEST_CACHE_KEY", t.TempDir())
	if key, _ := c.APIKey(true); key != "first" {
		t.Fatalf("unexpected key %q", key)
	}
	t.Setenv("CTF_TEST_CACHE_KEY", "second")
	if key, _ := c.APIKey(true); key != "first" {
		t.Fatalf("expected cached key, got %q", key)
	}
}

func TestCredentialsMissingStrictAndLenient(t *testing.T) {
	c := NewCredentials("CTF_TEST_ABSENT_KEY", t.TempDir())
	c.lookup = func(string) (string, bool) { return "", false }

	if _, err := c.APIKey(true); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}

	key, err := c.APIKey(false)
	if err != nil {
		t.Fatalf("lenient mode should not error: %v", err)
	}
	if key != "" {
		t.Fatalf("expected empty key, got %q", key)
	}
}
