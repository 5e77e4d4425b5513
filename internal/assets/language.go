package assets

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/kayz/ctf-assets/internal/logger"
)

// DefaultLanguage is used when neither the request nor the config name one.
const DefaultLanguage = "es-PR"

// NormalizeLanguage canonicalizes a BCP 47 tag ("en_us" -> "en-US"). Empty or
// unparsable tags fall back to fallback, then DefaultLanguage.
func NormalizeLanguage(tag, fallback string) string {
	if strings.TrimSpace(fallback) == "" {
		fallback = DefaultLanguage
	}
	raw := strings.TrimSpace(strings.ReplaceAll(tag, "_", "-"))
	if raw == "" {
		return fallback
	}
	t, err := language.Parse(raw)
	if err != nil {
		logger.Warn("Unsupported language tag %q, using %s", tag, fallback)
		return fallback
	}
	return t.String()
}
