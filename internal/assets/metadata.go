package assets

// ChallengeMetadata describes the generation contract for a challenge. It is
// attached to CLI output so organisers can see what a batch was asked for.
type ChallengeMetadata struct {
	Role                string              `json:"role" yaml:"role"`
	Task                string              `json:"task" yaml:"task"`
	Audience            string              `json:"audience" yaml:"audience"`
	Language            string              `json:"language" yaml:"language"`
	Tone                string              `json:"tone" yaml:"tone"`
	Theme               string              `json:"theme" yaml:"theme"`
	Constraints         MetadataConstraints `json:"constraints" yaml:"constraints"`
	EthicalConstraints  EthicalConstraints  `json:"ethical_constraints" yaml:"ethical_constraints"`
	OutputFormat        string              `json:"output_format" yaml:"output_format"`
	ResponseConstraints string              `json:"response_constraints" yaml:"response_constraints"`
}

type MetadataConstraints struct {
	Format        string `json:"format" yaml:"format"`
	FlagCount     int    `json:"flag_count" yaml:"flag_count"`
	Uniqueness    bool   `json:"uniqueness" yaml:"uniqueness"`
	Coherence     bool   `json:"coherence" yaml:"coherence"`
	Accuracy      bool   `json:"accuracy" yaml:"accuracy"`
	NoFabrication bool   `json:"no_fabrication" yaml:"no_fabrication"`
}

type EthicalConstraints struct {
	NoIllegalContent        bool `json:"no_illegal_content" yaml:"no_illegal_content"`
	NoInappropriateMaterial bool `json:"no_inappropriate_material" yaml:"no_inappropriate_material"`
	Under18Safe             bool `json:"under_18_safe" yaml:"under_18_safe"`
}

// DefaultChallengeMetadata returns the baseline metadata.
func DefaultChallengeMetadata() ChallengeMetadata {
	return ChallengeMetadata{
		Role:     "cybersecurity_assistant",
		Task:     "generate_ctf_flags",
		Audience: "high_school_students",
		Language: DefaultLanguage,
		Constraints: MetadataConstraints{
			Format:        "ctf{..}",
			FlagCount:     1,
			Uniqueness:    true,
			Coherence:     true,
			Accuracy:      true,
			NoFabrication: true,
		},
		EthicalConstraints: EthicalConstraints{
			NoIllegalContent:        true,
			NoInappropriateMaterial: true,
			Under18Safe:             true,
		},
		OutputFormat:        "json",
		ResponseConstraints: "only return flags, no additional information",
	}
}

// Update sets a single field by its short key. Unknown keys and values of
// the wrong type are ignored; the return value reports whether a field
// changed.
func (m *ChallengeMetadata) Update(key string, value any) bool {
	switch key {
	case "theme":
		return setString(&m.Theme, value)
	case "tone":
		return setString(&m.Tone, value)
	case "language":
		return setString(&m.Language, value)
	case "format":
		return setString(&m.Constraints.Format, value)
	case "output_format":
		return setString(&m.OutputFormat, value)
	case "flag_count":
		n, ok := value.(int)
		if !ok {
			return false
		}
		m.Constraints.FlagCount = n
		return true
	case "under_18_safe":
		return setBool(&m.EthicalConstraints.Under18Safe, value)
	case "no_illegal_content":
		return setBool(&m.EthicalConstraints.NoIllegalContent, value)
	case "no_inappropriate_material":
		return setBool(&m.EthicalConstraints.NoInappropriateMaterial, value)
	default:
		return false
	}
}

// MetadataFor derives the metadata describing req.
func MetadataFor(req Request) ChallengeMetadata {
	m := DefaultChallengeMetadata()
	switch req.Kind {
	case KindStory:
		m.Task = "generate_ctf_stories"
		m.ResponseConstraints = "only return stories, no additional information"
	case KindImage:
		m.Task = "generate_ctf_images"
		m.ResponseConstraints = "only return image data, no additional information"
	}
	m.Update("theme", req.Theme)
	m.Update("tone", req.Tone)
	m.Update("language", req.Language)
	m.Update("flag_count", req.EffectiveQuantity())
	if req.FlagFormat != "" {
		m.Update("format", req.FlagFormat)
	}
	return m
}

func setString(dst *string, value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	*dst = s
	return true
}

func setBool(dst *bool, value any) bool {
	b, ok := value.(bool)
	if !ok {
		return false
	}
	*dst = b
	return true
}
