package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/kayz/ctf-assets/internal/logger"
)

// DotEnvName is the project-local override file searched for upward from the
// working directory.
const DotEnvName = ".env"

// ErrMissingAPIKey is returned in strict mode when no API key can be found.
var ErrMissingAPIKey = errors.New("API key is missing")

// Credentials resolves the API key once and caches it for the process.
// Process environment wins over values from the .env file.
type Credentials struct {
	envVar   string
	startDir string
	lookup   func(string) (string, bool)

	mu  sync.Mutex
	key string
}

// NewCredentials creates a resolver for envVar. startDir is where the .env
// search begins; empty means the working directory.
func NewCredentials(envVar, startDir string) *Credentials {
	if strings.TrimSpace(envVar) == "" {
		envVar = "OPENAI_API_KEY"
	}
	return &Credentials{
		envVar:   envVar,
		startDir: startDir,
		lookup:   os.LookupEnv,
	}
}

// APIKey returns the cached key, resolving it on first use. When the key is
// missing, strict mode returns ErrMissingAPIKey; otherwise a warning is
// logged and an empty key with a nil error is returned.
func (c *Credentials) APIKey(strict bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key != "" {
		return c.key, nil
	}

	key := c.resolve()
	if key == "" {
		message := fmt.Sprintf("%s is missing! Set it in your system environment variables or %s file.", c.envVar, DotEnvName)
		if strict {
			return "", fmt.Errorf("%w: %s", ErrMissingAPIKey, message)
		}
		logger.Warn("%s Continuing without an API client.", message)
		return "", nil
	}

	c.key = key
	return c.key, nil
}

func (c *Credentials) resolve() string {
	if v, ok := c.lookup(c.envVar); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}

	start := c.startDir
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}
		start = wd
	}

	path, ok := FindDotEnv(start)
	if !ok {
		return ""
	}
	values, err := godotenv.Read(path)
	if err != nil {
		logger.Warn("Failed to read %s: %v", path, err)
		return ""
	}
	logger.Debug("Loaded %s from %s", c.envVar, path)
	return strings.TrimSpace(values[c.envVar])
}

// FindDotEnv walks from dir up to the filesystem root looking for a .env
// file and returns the first match.
func FindDotEnv(dir string) (string, bool) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(abs, DotEnvName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", false
		}
		abs = parent
	}
}
