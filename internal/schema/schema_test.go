package schema

import (
	"encoding/json"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/kayz/ctf-assets/internal/assets"
)

func decodeSchema(t *testing.T, s Schema) map[string]any {
	t.Helper()
	data, err := json.Marshal(&s.Definition)
	if err != nil {
		t.Fatalf("marshal schema %s: %v", s.Name, err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal schema %s: %v", s.Name, err)
	}
	return out
}

func TestSchemasAreClosedAndRequireTheirKey(t *testing.T) {
	for _, s := range []Schema{Flags(), Stories(), TitledStories()} {
		got := decodeSchema(t, s)
		if got["type"] != "object" {
			t.Fatalf("%s: expected object type, got %v", s.Name, got["type"])
		}
		if got["additionalProperties"] != false {
			t.Fatalf("%s: expected additionalProperties=false, got %v", s.Name, got["additionalProperties"])
		}
		required, _ := got["required"].([]any)
		if len(required) != 1 || required[0] != s.Key {
			t.Fatalf("%s: expected required [%s], got %v", s.Name, s.Key, got["required"])
		}
		props, _ := got["properties"].(map[string]any)
		if _, ok := props[s.Key]; !ok || len(props) != 1 {
			t.Fatalf("%s: expected single property %s, got %v", s.Name, s.Key, props)
		}
	}
}

func TestTitledStoryItemShape(t *testing.T) {
	got := decodeSchema(t, TitledStories())
	props := got["properties"].(map[string]any)
	arr := props[KeyStoriesWithTitles].(map[string]any)
	item := arr["items"].(map[string]any)
	if item["additionalProperties"] != false {
		t.Fatalf("item must be closed: %v", item)
	}
	required, _ := item["required"].([]any)
	if len(required) != 2 || required[0] != "title" || required[1] != "story" {
		t.Fatalf("unexpected item required list: %v", required)
	}
}

func TestForLookup(t *testing.T) {
	if s, ok := For(assets.KindFlag, true); !ok || s.Key != KeyFlags {
		t.Fatalf("flag lookup failed: %#v", s)
	}
	if s, ok := For(assets.KindStory, false); !ok || s.Key != KeyStories {
		t.Fatalf("story lookup failed: %#v", s)
	}
	if s, ok := For(assets.KindStory, true); !ok || s.Key != KeyStoriesWithTitles {
		t.Fatalf("titled story lookup failed: %#v", s)
	}
	if _, ok := For(assets.KindImage, false); ok {
		t.Fatalf("images have no structured schema")
	}
}

func TestResponseFormatIsStrict(t *testing.T) {
	rf := Flags().ResponseFormat()
	if rf.Type != openai.ChatCompletionResponseFormatTypeJSONSchema {
		t.Fatalf("unexpected response format type: %s", rf.Type)
	}
	if rf.JSONSchema == nil || !rf.JSONSchema.Strict || rf.JSONSchema.Name != "FlagResponse" {
		t.Fatalf("unexpected json schema block: %#v", rf.JSONSchema)
	}
}

func TestSchemaEncodesSnakeCase(t *testing.T) {
	s := Stories()
	data, err := json.Marshal(&s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["name"] != "StoryResponse" || out["key"] != KeyStories {
		t.Fatalf("unexpected encoding: %s", data)
	}
	body, ok := out["schema"].(map[string]any)
	if !ok || body["type"] != "object" {
		t.Fatalf("expected schema body under \"schema\": %s", data)
	}
}
