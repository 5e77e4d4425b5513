// Package ai tracks which models the configured API serves and how a
// requested model name resolves against that set.
package ai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kayz/ctf-assets/internal/config"
	"github.com/kayz/ctf-assets/internal/logger"
)

// ErrNoLister is returned when the catalog has no API client to query.
var ErrNoLister = errors.New("no model lister configured")

// ModelLister is the subset of the go-openai client the catalog needs.
type ModelLister interface {
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// Entry describes one listed model.
type Entry struct {
	ID        string `json:"id" yaml:"id"`
	OwnedBy   string `json:"owned_by,omitempty" yaml:"owned_by,omitempty"`
	Reasoning bool   `json:"reasoning" yaml:"reasoning"`
	Image     bool   `json:"image" yaml:"image"`
}

// Catalog is the lazily loaded set of model IDs. A successful listing is
// kept for the life of the catalog; a failed one is retried on next use.
type Catalog struct {
	lister            ModelLister
	defaultModel      string
	defaultImageModel string
	reasoningPrefixes []string
	imagePrefixes     []string

	mu      sync.Mutex
	loaded  bool
	entries []Entry
	index   map[string]struct{}
}

// NewCatalog creates a catalog. lister may be nil, in which case every
// lookup falls back to the configured defaults.
func NewCatalog(lister ModelLister, cfg config.AIConfig) *Catalog {
	defaults := config.DefaultConfig().AI
	c := &Catalog{
		lister:            lister,
		defaultModel:      strings.TrimSpace(cfg.DefaultModel),
		defaultImageModel: strings.TrimSpace(cfg.DefaultImageModel),
		reasoningPrefixes: cfg.ReasoningPrefixes,
		imagePrefixes:     cfg.ImagePrefixes,
	}
	if c.defaultModel == "" {
		c.defaultModel = defaults.DefaultModel
	}
	if c.defaultImageModel == "" {
		c.defaultImageModel = defaults.DefaultImageModel
	}
	if len(c.reasoningPrefixes) == 0 {
		c.reasoningPrefixes = defaults.ReasoningPrefixes
	}
	if len(c.imagePrefixes) == 0 {
		c.imagePrefixes = defaults.ImagePrefixes
	}
	return c
}

// DefaultModel is the text model used when a request names an unknown one.
func (c *Catalog) DefaultModel() string { return c.defaultModel }

// DefaultImageModel is the image model used when a request names an unknown one.
func (c *Catalog) DefaultImageModel() string { return c.defaultImageModel }

// Entries returns the listed models sorted by ID.
func (c *Catalog) Entries(ctx context.Context) ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(ctx); err != nil {
		return nil, err
	}
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out, nil
}

// Contains reports whether id is in the listing.
func (c *Catalog) Contains(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(ctx); err != nil {
		return false, err
	}
	_, ok := c.index[id]
	return ok, nil
}

// IsReasoning reports whether id belongs to the reasoning family. Reasoning
// models reject a temperature parameter.
func (c *Catalog) IsReasoning(id string) bool {
	return hasAnyPrefix(id, c.reasoningPrefixes)
}

// IsImage reports whether id belongs to the image model family.
func (c *Catalog) IsImage(id string) bool {
	return hasAnyPrefix(id, c.imagePrefixes)
}

// loadLocked lists models once. The caller must hold c.mu, so concurrent
// callers wait on a single listing request.
func (c *Catalog) loadLocked(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	if c.lister == nil {
		return ErrNoLister
	}

	list, err := c.lister.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}

	entries := make([]Entry, 0, len(list.Models))
	index := make(map[string]struct{}, len(list.Models))
	for _, m := range list.Models {
		id := strings.TrimSpace(m.ID)
		if id == "" {
			continue
		}
		if _, dup := index[id]; dup {
			continue
		}
		index[id] = struct{}{}
		entries = append(entries, Entry{
			ID:        id,
			OwnedBy:   m.OwnedBy,
			Reasoning: c.IsReasoning(id),
			Image:     c.IsImage(id),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	c.entries = entries
	c.index = index
	c.loaded = true
	logger.Debug("Model catalog loaded: %d models", len(entries))
	return nil
}

func hasAnyPrefix(id string, prefixes []string) bool {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, p := range prefixes {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}
