package ai

import (
	"context"
	"strings"

	"github.com/kayz/ctf-assets/internal/assets"
	"github.com/kayz/ctf-assets/internal/logger"
)

// Resolve maps a requested text model onto a served one. Unknown names and
// image models are replaced by the default; the replacement is reported in
// the returned choice rather than as an error.
func (c *Catalog) Resolve(ctx context.Context, requested string) assets.ModelChoice {
	return c.resolve(ctx, requested, c.defaultModel, func(id string) bool {
		return !c.IsImage(id)
	})
}

// ResolveImage maps a requested image model onto a served image model.
func (c *Catalog) ResolveImage(ctx context.Context, requested string) assets.ModelChoice {
	return c.resolve(ctx, requested, c.defaultImageModel, c.IsImage)
}

func (c *Catalog) resolve(ctx context.Context, requested, fallback string, fits func(string) bool) assets.ModelChoice {
	name := strings.TrimSpace(requested)
	choice := assets.ModelChoice{Requested: name, Effective: fallback}

	switch {
	case name == "" || name == fallback:
	case !fits(name):
		logger.Warn("Model %q cannot serve this request, using %q", name, fallback)
		choice.Substituted = true
	default:
		ok, err := c.Contains(ctx, name)
		if err != nil {
			logger.Warn("Model catalog unavailable (%v), using %q instead of %q", err, fallback, name)
			choice.Substituted = true
		} else if ok {
			choice.Effective = name
		} else {
			logger.Warn("Model %q is not served, using %q", name, fallback)
			choice.Substituted = true
		}
	}

	choice.Reasoning = c.IsReasoning(choice.Effective)
	return choice
}
