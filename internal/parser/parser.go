// Package parser turns raw model output into typed asset lists.
//
// Model output is unpredictable, so nothing here returns an error: malformed
// input degrades to an empty (or, for titled stories, partial) result.
package parser

import (
	"encoding/json"
	"strings"

	"github.com/kayz/ctf-assets/internal/assets"
	"github.com/kayz/ctf-assets/internal/logger"
	"github.com/kayz/ctf-assets/internal/schema"
)

// Payload is the normalized form of an API response: either an already
// decoded JSON object or raw text expected to contain one.
type Payload interface {
	object() (map[string]any, bool)
}

// StructuredPayload is a decoded JSON object.
type StructuredPayload map[string]any

// TextPayload is raw response text.
type TextPayload string

func (p StructuredPayload) object() (map[string]any, bool) {
	if p == nil {
		return nil, false
	}
	return map[string]any(p), true
}

func (p TextPayload) object() (map[string]any, bool) {
	text := strings.TrimSpace(string(p))
	if text == "" {
		return nil, false
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		logger.Debug("Response is not a JSON object: %v", err)
		return nil, false
	}
	return out, out != nil
}

// Flags extracts the "flags" list.
func Flags(p Payload) []string {
	return stringList(p, schema.KeyFlags)
}

// Stories extracts the untitled "stories" list.
func Stories(p Payload) []string {
	return stringList(p, schema.KeyStories)
}

// TitledStories extracts "stories_with_titles". Entries that are not objects
// with string "title" and "story" fields are dropped individually.
func TitledStories(p Payload) []assets.TitledStory {
	items, ok := list(p, schema.KeyStoriesWithTitles)
	if !ok {
		return []assets.TitledStory{}
	}
	out := make([]assets.TitledStory, 0, len(items))
	for i, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			logger.Debug("Dropping titled story %d: not an object", i)
			continue
		}
		title, okTitle := entry["title"].(string)
		story, okStory := entry["story"].(string)
		if !okTitle || !okStory {
			logger.Debug("Dropping titled story %d: missing or non-string title/story", i)
			continue
		}
		out = append(out, assets.TitledStory{Title: title, Story: story})
	}
	return out
}

func stringList(p Payload, key string) []string {
	items, ok := list(p, key)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			// a mixed list means the shape is wrong as a whole
			return []string{}
		}
		out = append(out, s)
	}
	return out
}

func list(p Payload, key string) ([]any, bool) {
	if p == nil {
		return nil, false
	}
	obj, ok := p.object()
	if !ok {
		return nil, false
	}
	switch v := obj[key].(type) {
	case []any:
		return v, true
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return items, true
	case []map[string]any:
		items := make([]any, len(v))
		for i, m := range v {
			items[i] = m
		}
		return items, true
	default:
		return nil, false
	}
}
