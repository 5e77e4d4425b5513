package debug

import (
	"os"

	"github.com/kayz/ctf-assets/internal/logger"
)

// enabled is set via ldflags for debug builds
var enabled = ""

// Enabled controls whether request/response dumps are logged
var Enabled = false

func init() {
	if enabled == "true" {
		Enabled = true
	}
	// Enable debug via environment variable (overrides ldflags)
	if os.Getenv("CTF_ASSETS_DEBUG") == "1" {
		Enabled = true
	}
}

// Log prints a debug message if debug mode is enabled
func Log(format string, args ...any) {
	if Enabled {
		logger.Debug("[DEBUG] "+format, args...)
	}
}
