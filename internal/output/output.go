// Package output writes generated assets to disk.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// TimestampLayout is the timestamp used in generated file names.
const TimestampLayout = "20060102-150405"

var (
	prefixPattern       = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	invalidFilenameChar = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	invalidPrefixChar   = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

// SanitizeFilename keeps letters, digits, '.', '_' and '-'. Spaces become
// underscores and an empty result becomes "output".
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	name = invalidFilenameChar.ReplaceAllString(name, "")
	if name == "" || name == "." || name == ".." {
		return "output"
	}
	return name
}

// SanitizePrefix is SanitizeFilename without '.', for use as the leading part
// of a generated name.
func SanitizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefixPattern.MatchString(prefix) {
		return prefix
	}
	prefix = strings.ReplaceAll(prefix, " ", "_")
	prefix = invalidPrefixChar.ReplaceAllString(prefix, "")
	if prefix == "" {
		return "output"
	}
	return prefix
}

// WriteFile creates or overwrites path, creating parent directories, and
// returns the absolute path written.
func WriteFile(path string, content []byte) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", abs, err)
	}
	if err := os.WriteFile(abs, content, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", abs, err)
	}
	return abs, nil
}

// ImageName returns "<prefix>_<timestamp>_<index>.png" with a sanitized prefix.
func ImageName(prefix string, at time.Time, index int) string {
	return fmt.Sprintf("%s_%s_%d.png", SanitizePrefix(prefix), at.Format(TimestampLayout), index)
}

// TextName returns "<prefix>_<label>_<timestamp>.<ext>" for saved text assets.
func TextName(prefix, label string, at time.Time, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "json"
	}
	return SanitizeFilename(fmt.Sprintf("%s_%s_%s.%s",
		SanitizePrefix(prefix), SanitizePrefix(label), at.Format(TimestampLayout), ext))
}

// WriteImages writes each image under dir and returns the written paths in
// order. Indexes start at 1.
func WriteImages(dir, prefix string, images [][]byte, at time.Time) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	paths := make([]string, 0, len(images))
	for i, data := range images {
		p, err := WriteFile(filepath.Join(dir, ImageName(prefix, at, i+1)), data)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}
