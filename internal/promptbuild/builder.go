package promptbuild

import (
	"github.com/kayz/ctf-assets/internal/assets"
	"github.com/kayz/ctf-assets/internal/config"
	"github.com/kayz/ctf-assets/internal/logger"
)

// Builder composes prompt pairs for generation requests and optionally
// audits every composed pair.
type Builder struct {
	cfg config.AuditConfig
}

// NewBuilder creates a new Builder from config.
func NewBuilder(cfg config.AuditConfig) *Builder {
	return &Builder{cfg: cfg}
}

// Build composes the prompt pair for req. It never fails; audit problems are
// logged and otherwise ignored.
func (b *Builder) Build(req assets.Request) assets.PromptPair {
	req.Quantity = req.EffectiveQuantity()

	var pair assets.PromptPair
	switch req.Kind {
	case assets.KindFlag:
		pair = FlagPrompt(req)
	case assets.KindStory:
		if req.Titled {
			pair = TitledStoryPrompt(req)
		} else {
			pair = StoryPrompt(req)
		}
	case assets.KindImage:
		pair = ImagePrompt(req)
	default:
		logger.Warn("Unknown asset kind %q, composing a flag prompt", req.Kind)
		pair = FlagPrompt(req)
	}

	if err := b.writeAuditRecord(req, pair); err != nil {
		logger.Warn("record prompt audit failed: %v", err)
	}
	return pair
}
