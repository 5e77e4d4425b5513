// Package schema provides the fixed structured-output contracts sent with
// every text generation request.
package schema

import (
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/kayz/ctf-assets/internal/assets"
)

// Top-level keys of the structured responses.
const (
	KeyFlags             = "flags"
	KeyStories           = "stories"
	KeyStoriesWithTitles = "stories_with_titles"
)

// Schema is a named, strict, closed JSON schema.
type Schema struct {
	Name       string                `json:"name" yaml:"name"`
	Key        string                `json:"key" yaml:"key"`
	Definition jsonschema.Definition `json:"schema" yaml:"schema"`
}

// ResponseFormat renders the schema as an OpenAI json_schema response format.
func (s Schema) ResponseFormat() *openai.ChatCompletionResponseFormat {
	def := s.Definition
	return &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   s.Name,
			Schema: &def,
			Strict: true,
		},
	}
}

// For returns the schema for a kind. ok is false for kinds that have no
// structured output (images).
func For(kind assets.Kind, titled bool) (Schema, bool) {
	switch kind {
	case assets.KindFlag:
		return Flags(), true
	case assets.KindStory:
		if titled {
			return TitledStories(), true
		}
		return Stories(), true
	default:
		return Schema{}, false
	}
}

func Flags() Schema {
	return Schema{
		Name: "FlagResponse",
		Key:  KeyFlags,
		Definition: closedObject(KeyFlags, jsonschema.Definition{
			Type:        jsonschema.Array,
			Items:       &jsonschema.Definition{Type: jsonschema.String},
			Description: "List of generated flags",
		}),
	}
}

func Stories() Schema {
	return Schema{
		Name: "StoryResponse",
		Key:  KeyStories,
		Definition: closedObject(KeyStories, jsonschema.Definition{
			Type:        jsonschema.Array,
			Items:       &jsonschema.Definition{Type: jsonschema.String},
			Description: "List of generated stories",
		}),
	}
}

func TitledStories() Schema {
	item := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"title": {Type: jsonschema.String, Description: "The title of the story."},
			"story": {Type: jsonschema.String, Description: "The content of the story."},
		},
		Required:             []string{"title", "story"},
		AdditionalProperties: false,
	}
	return Schema{
		Name: "TitledStoryResponse",
		Key:  KeyStoriesWithTitles,
		Definition: closedObject(KeyStoriesWithTitles, jsonschema.Definition{
			Type:        jsonschema.Array,
			Items:       &item,
			Description: "List of stories with titles",
		}),
	}
}

func closedObject(key string, prop jsonschema.Definition) jsonschema.Definition {
	return jsonschema.Definition{
		Type:                 jsonschema.Object,
		Properties:           map[string]jsonschema.Definition{key: prop},
		Required:             []string{key},
		AdditionalProperties: false,
	}
}
