package generator

import (
	"context"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kayz/ctf-assets/internal/assets"
	"github.com/kayz/ctf-assets/internal/config"
	"github.com/kayz/ctf-assets/internal/debug"
	"github.com/kayz/ctf-assets/internal/logger"
	"github.com/kayz/ctf-assets/internal/parser"
	"github.com/kayz/ctf-assets/internal/schema"
)

// GenerateFlags asks for req.Quantity flags. Malformed model output yields
// an empty list, not an error.
func (c *Client) GenerateFlags(ctx context.Context, req assets.Request) (Result[string], error) {
	req.Kind = assets.KindFlag
	req.Titled = false
	sch := schema.Flags()
	payload, choice, err := c.complete(ctx, req, &sch)
	if err != nil {
		return Result[string]{Items: []string{}, Model: choice}, err
	}
	return Result[string]{Items: parser.Flags(payload), Model: choice}, nil
}

// GenerateStories asks for untitled stories.
func (c *Client) GenerateStories(ctx context.Context, req assets.Request) (Result[string], error) {
	req.Kind = assets.KindStory
	req.Titled = false
	sch := schema.Stories()
	payload, choice, err := c.complete(ctx, req, &sch)
	if err != nil {
		return Result[string]{Items: []string{}, Model: choice}, err
	}
	return Result[string]{Items: parser.Stories(payload), Model: choice}, nil
}

// GenerateTitledStories asks for stories with titles. Incomplete entries are
// dropped individually.
func (c *Client) GenerateTitledStories(ctx context.Context, req assets.Request) (Result[assets.TitledStory], error) {
	req.Kind = assets.KindStory
	req.Titled = true
	sch := schema.TitledStories()
	payload, choice, err := c.complete(ctx, req, &sch)
	if err != nil {
		return Result[assets.TitledStory]{Items: []assets.TitledStory{}, Model: choice}, err
	}
	return Result[assets.TitledStory]{Items: parser.TitledStories(payload), Model: choice}, nil
}

// complete performs one chat completion. sch may be nil for free-text output.
func (c *Client) complete(ctx context.Context, req assets.Request, sch *schema.Schema) (parser.Payload, assets.ModelChoice, error) {
	choice := c.resolveText(ctx, req.Model)
	if c.api == nil {
		return nil, choice, ErrNoClient
	}

	req = req.Normalize(c.opts.Language)
	req.Model = choice.Effective
	pair := c.builder.Build(req)

	chatReq := openai.ChatCompletionRequest{
		Model: choice.Effective,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: pair.System},
			{Role: openai.ChatMessageRoleUser, Content: pair.User},
		},
	}
	if sch != nil {
		chatReq.ResponseFormat = sch.ResponseFormat()
	}
	if !choice.Reasoning {
		chatReq.Temperature = chatTemperature(req.Temperature)
	}

	debug.Log("chat completion: model=%s kind=%s titled=%v quantity=%d", choice.Effective, req.Kind, req.Titled, req.Quantity)
	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, choice, wrapAPIError("chat completion", choice.Effective, err)
	}
	if len(resp.Choices) == 0 {
		logger.Warn("Model %s returned no choices", choice.Effective)
		return parser.TextPayload(""), choice, nil
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	logger.Trace("Model %s answered %d bytes", choice.Effective, len(content))
	return parser.TextPayload(content), choice, nil
}

func (c *Client) resolveText(ctx context.Context, requested string) assets.ModelChoice {
	if c.catalog == nil {
		name := firstNonEmpty(requested, config.DefaultConfig().AI.DefaultModel)
		return assets.ModelChoice{Requested: requested, Effective: name}
	}
	return c.catalog.Resolve(ctx, requested)
}

// chatTemperature converts t for the wire. go-openai drops a zero
// temperature, so 0 is sent as the smallest positive float32.
func chatTemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}
