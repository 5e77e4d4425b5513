// Package assets holds the value types that flow through the generation
// pipeline: requests, composed prompts, and generated results.
package assets

import (
	"fmt"
	"strings"
)

// Kind is the category of content being generated.
type Kind string

const (
	KindFlag  Kind = "flag"
	KindStory Kind = "story"
	KindImage Kind = "image"
)

// ParseKind accepts the singular or plural CLI spelling of a kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flag", "flags":
		return KindFlag, nil
	case "story", "stories":
		return KindStory, nil
	case "image", "images":
		return KindImage, nil
	default:
		return "", fmt.Errorf("unknown asset kind %q (valid: flags, stories, images)", s)
	}
}

const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// Request describes one generation call.
type Request struct {
	Kind               Kind    `json:"kind" yaml:"kind"`
	Theme              string  `json:"theme,omitempty" yaml:"theme,omitempty"`
	Tone               string  `json:"tone,omitempty" yaml:"tone,omitempty"`
	Quantity           int     `json:"quantity" yaml:"quantity"`
	Language           string  `json:"language" yaml:"language"`
	FlagFormat         string  `json:"flag_format,omitempty" yaml:"flag_format,omitempty"`
	Titled             bool    `json:"titled,omitempty" yaml:"titled,omitempty"`
	Instructions       string  `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	SystemInstructions string  `json:"system_instructions,omitempty" yaml:"system_instructions,omitempty"`
	Model              string  `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature        float64 `json:"temperature" yaml:"temperature"`
}

// EffectiveQuantity never returns less than 1.
func (r Request) EffectiveQuantity() int {
	return ClampQuantity(r.Quantity)
}

// ClampQuantity returns max(1, n).
func ClampQuantity(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// ClampTemperature keeps t inside [MinTemperature, MaxTemperature].
func ClampTemperature(t float64) float64 {
	if t < MinTemperature {
		return MinTemperature
	}
	if t > MaxTemperature {
		return MaxTemperature
	}
	return t
}

// Normalize returns a copy with quantity, temperature and language corrected.
func (r Request) Normalize(defaultLanguage string) Request {
	r.Quantity = r.EffectiveQuantity()
	r.Temperature = ClampTemperature(r.Temperature)
	r.Language = NormalizeLanguage(r.Language, defaultLanguage)
	return r
}

// PromptPair is the system and user text assembled for one request.
type PromptPair struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// Combined joins both halves for APIs that take a single instruction string.
func (p PromptPair) Combined() string {
	if p.System == "" {
		return p.User
	}
	if p.User == "" {
		return p.System
	}
	return p.System + " " + p.User
}

// TitledStory is one story with its title.
type TitledStory struct {
	Title string `json:"title" yaml:"title"`
	Story string `json:"story" yaml:"story"`
}

// ModelChoice records how a requested model name was resolved.
type ModelChoice struct {
	Requested   string `json:"requested"`
	Effective   string `json:"effective"`
	Substituted bool   `json:"substituted"`
	Reasoning   bool   `json:"reasoning,omitempty"`
}

// ImageSet is the outcome of the image pipeline.
type ImageSet struct {
	Paths      []string    `json:"paths"`
	Prompt     string      `json:"prompt"`
	Requested  int         `json:"requested"`
	TextModel  ModelChoice `json:"text_model"`
	ImageModel ModelChoice `json:"image_model"`
}
