package persist

import (
	"encoding/json"
	"time"
)

// Run is one completed generation recorded in the history.
type Run struct {
	ID             string          `json:"id" yaml:"id"`
	Kind           string          `json:"kind" yaml:"kind"`
	Function       string          `json:"function" yaml:"function"`
	RequestedModel string          `json:"requested_model,omitempty" yaml:"requested_model,omitempty"`
	Model          string          `json:"model" yaml:"model"`
	Substituted    bool            `json:"substituted" yaml:"substituted"`
	Theme          string          `json:"theme,omitempty" yaml:"theme,omitempty"`
	Tone           string          `json:"tone,omitempty" yaml:"tone,omitempty"`
	Language       string          `json:"language" yaml:"language"`
	Quantity       int             `json:"quantity" yaml:"quantity"`
	ItemCount      int             `json:"item_count" yaml:"item_count"`
	Items          json.RawMessage `json:"items,omitempty" yaml:"-"`
	CreatedAt      time.Time       `json:"created_at" yaml:"created_at"`
}

// ItemsAs decodes the stored items into dst.
func (r *Run) ItemsAs(dst any) error {
	if len(r.Items) == 0 {
		return nil
	}
	return json.Unmarshal(r.Items, dst)
}

// RunFilter narrows ListRuns.
type RunFilter struct {
	Kind  string
	Limit int
}
