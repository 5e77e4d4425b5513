package promptbuild

import (
	"fmt"
	"strings"

	"github.com/kayz/ctf-assets/internal/assets"
)

const systemPreamble = "You are an expert cybersecurity assistant. " +
	"You must ensure all content is legal and appropriate for high school students under 18. " +
	"You generate content for Capture the Flag (CTF) challenges."

// DefaultFlagFormat is used when a flag request names no template.
const DefaultFlagFormat = "ctf{..}"

// ImagePromptSuffix is appended to the generated visual description before
// it is sent to the image model.
const ImagePromptSuffix = "Ensure the composition, details, and background contribute to the story."

// SystemPrompt returns the fixed preamble followed by extra verbatim.
func SystemPrompt(extra string) string {
	return joinSentences(systemPreamble, extra)
}

// FlagPrompt builds the prompt pair for flag generation.
func FlagPrompt(req assets.Request) assets.PromptPair {
	n := req.EffectiveQuantity()
	format := req.FlagFormat
	if strings.TrimSpace(format) == "" {
		format = DefaultFlagFormat
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate exactly %d unique CTF flags in %s", n, req.Language)
	writeTheme(&b, req.Theme, ", based on the theme")
	writeTone(&b, req.Tone, "apply")
	fmt.Fprintf(&b, "Each flag must strictly follow this format: '%s'. ", format)
	b.WriteString("All flags must be distinct, logically structured, and thematically relevant. ")
	fmt.Fprintf(&b, "\n\nIMPORTANT: You must generate exactly %d flags—no more, no less. \n\n", n)
	b.WriteString("The response must be in the following valid JSON format, with no additional text:\n\n")
	fmt.Fprintf(&b, `{"flags": [%s]}`, exampleList(n, func(i int) string {
		return fmt.Sprintf(`"flag_%d"`, i)
	}))
	b.WriteString("\n\n")
	b.WriteString("Do not include explanations, preambles, or any text outside the JSON response. ")
	b.WriteString("If the number of flags is incorrect or the format is not followed, the output is invalid.")

	return assets.PromptPair{
		System: SystemPrompt(req.SystemInstructions),
		User:   joinSentences(b.String(), req.Instructions),
	}
}

// StoryPrompt builds the prompt pair for untitled stories.
func StoryPrompt(req assets.Request) assets.PromptPair {
	n := req.EffectiveQuantity()

	var b strings.Builder
	fmt.Fprintf(&b, "Generate exactly %d unique stories in %s", n, req.Language)
	writeTheme(&b, req.Theme, " based on the theme")
	writeTone(&b, req.Tone, "use")
	b.WriteString("Each story must have a unique plot, characters, and setting. ")
	b.WriteString("Do NOT include titles in any of the stories. ")
	fmt.Fprintf(&b, "You must generate exactly %d stories—no more, no less. ", n)
	b.WriteString("Respond in valid JSON format with an array of stories, structured as follows:\n\n")
	fmt.Fprintf(&b, `{"stories": [%s]}`, exampleList(n, func(i int) string {
		switch i {
		case 1:
			return `"Story content..."`
		case 2:
			return `"Another story content..."`
		default:
			return `"Final story content..."`
		}
	}))
	b.WriteString("\n\n")
	b.WriteString("Do not include explanations, preambles, or any text outside the JSON response. ")
	fmt.Fprintf(&b, "If you do not generate exactly %d stories, the output is incorrect.", n)

	return assets.PromptPair{
		System: SystemPrompt(req.SystemInstructions),
		User:   joinSentences(b.String(), req.Instructions),
	}
}

// TitledStoryPrompt builds the prompt pair for stories that carry a title.
func TitledStoryPrompt(req assets.Request) assets.PromptPair {
	n := req.EffectiveQuantity()

	var b strings.Builder
	fmt.Fprintf(&b, "Generate exactly %d unique stories in %s", n, req.Language)
	writeTheme(&b, req.Theme, " based on the theme")
	writeTone(&b, req.Tone, "use")
	b.WriteString("Each story must have a unique plot, characters, and setting, and must include a title. ")
	fmt.Fprintf(&b, "You must generate exactly %d stories—no more, no less. ", n)
	b.WriteString("Respond in valid JSON format with an array of stories, structured as follows:\n\n")
	fmt.Fprintf(&b, `{"stories_with_titles": [%s]}`, exampleList(n, func(i int) string {
		switch i {
		case 1:
			return `{"title": "Story Title 1", "story": "Story content..."}`
		case 2:
			return `{"title": "Story Title 2", "story": "Another story content..."}`
		default:
			return fmt.Sprintf(`{"title": "Story Title %d", "story": "Final story content..."}`, i)
		}
	}))
	b.WriteString("\n\n")
	b.WriteString(`Each entry must be an object with exactly two string fields: "title" and "story". `)
	b.WriteString("Do not include explanations, preambles, or any text outside the JSON response. ")
	fmt.Fprintf(&b, "If you do not generate exactly %d stories, the output is incorrect.", n)

	return assets.PromptPair{
		System: SystemPrompt(req.SystemInstructions),
		User:   joinSentences(b.String(), req.Instructions),
	}
}

const imageMetaPrompt = `You are an AI assistant that generates structured prompts for AI image generation.
Your task is to take a given theme and tone and create a highly detailed and visually descriptive
prompt optimized for DALLE-2 and DALLE-3.

The generated prompt must include:
- A vivid **scene description** that sets the stage for the image.
- **Key visual elements** that make the image stand out.
- **Lighting and atmosphere** to enhance realism.
- **Depth and camera perspective** (e.g., "wide-angle shot", "close-up", "over-the-shoulder").
- A **composition style** that aligns with the theme and tone.

The theme is: **"%s"**
The mood and tone should be: **"%s"**
The image must contain fine details, accurate lighting, and a cinematic composition.
If the image includes text, ensure it is in **%s**.

### Example 1: Cybersecurity Hacker
"A dimly lit cyberpunk cityscape, glowing neon signs reflecting off the wet streets.
A lone hacker, wearing a high-tech visor, sits at a terminal surrounded by holographic data streams.
The atmosphere is dark and mysterious, with backlit silhouettes adding depth.
Camera shot: Over-the-shoulder perspective, dramatic contrast between shadows and neon lights."

### Example 2: University Campus of the Future
"A futuristic version of Universidad de Puerto Rico, Recinto de Río Piedras, with students in
a next-generation AI-powered computer lab. Transparent holographic screens project real-time code
as students engage in collaborative programming exercises.
Lush tropical gardens blend with solar-powered smart classrooms.
Camera shot: Wide-angle panoramic, capturing both the historical elements of the university and its futuristic enhancements.
Lighting: Bright and natural, mixed with soft neon glows from AI interfaces."

Now, generate a similar prompt based on the provided theme and tone.`

// ImagePrompt builds the meta-prompt whose answer is a visual description
// for the image model.
func ImagePrompt(req assets.Request) assets.PromptPair {
	tone := req.Tone
	if strings.TrimSpace(tone) == "" {
		tone = "neutral"
	}
	user := fmt.Sprintf(imageMetaPrompt, req.Theme, tone, req.Language)
	return assets.PromptPair{
		System: SystemPrompt(req.SystemInstructions),
		User:   joinSentences(user, req.Instructions),
	}
}

func writeTheme(b *strings.Builder, theme, lead string) {
	if strings.TrimSpace(theme) == "" {
		b.WriteString(". ")
		return
	}
	fmt.Fprintf(b, "%s: '%s'. ", lead, theme)
}

func writeTone(b *strings.Builder, tone, verb string) {
	if strings.TrimSpace(tone) == "" {
		return
	}
	fmt.Fprintf(b, "Tone to %s: '%s'. ", verb, tone)
}

// exampleList renders 1..n example items, eliding the middle for n > 3.
func exampleList(n int, item func(i int) string) string {
	switch {
	case n <= 1:
		return item(1)
	case n == 2:
		return item(1) + ", " + item(2)
	case n == 3:
		return item(1) + ", " + item(2) + ", " + item(3)
	default:
		return item(1) + ", " + item(2) + ", ..., " + item(n)
	}
}

func joinSentences(base, extra string) string {
	base = strings.TrimSpace(base)
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return base
	}
	return base + " " + extra
}
