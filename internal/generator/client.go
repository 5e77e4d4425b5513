// Package generator runs generation requests against an OpenAI-compatible
// API: it resolves the model, composes the prompts, performs a single call
// and hands the response to the parser.
package generator

import (
	"context"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kayz/ctf-assets/internal/assets"
	"github.com/kayz/ctf-assets/internal/config"
	"github.com/kayz/ctf-assets/internal/logger"
	"github.com/kayz/ctf-assets/internal/promptbuild"
)

// API is the subset of the go-openai client used for generation.
type API interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateImage(ctx context.Context, req openai.ImageRequest) (openai.ImageResponse, error)
}

// ModelCatalog resolves requested model names.
type ModelCatalog interface {
	Resolve(ctx context.Context, requested string) assets.ModelChoice
	ResolveImage(ctx context.Context, requested string) assets.ModelChoice
}

// Options holds request defaults, image defaults and output placement.
type Options struct {
	Language     string
	ImageSize    string
	ImageQuality string
	ImageStyle   string
	OutputDir    string
	FilePrefix   string
}

// OptionsFromConfig builds Options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Language:     cfg.Generation.Language,
		ImageSize:    cfg.Images.Size,
		ImageQuality: cfg.Images.Quality,
		ImageStyle:   cfg.Images.Style,
		OutputDir:    cfg.Generation.OutputDir,
		FilePrefix:   cfg.Generation.FilePrefix,
	}
}

// Client performs generation requests.
type Client struct {
	api     API
	catalog ModelCatalog
	builder *promptbuild.Builder
	opts    Options
	now     func() time.Time
}

// New creates a Client. api may be nil; every generation call then fails
// with ErrNoClient.
func New(api API, catalog ModelCatalog, builder *promptbuild.Builder, opts Options) *Client {
	if builder == nil {
		builder = promptbuild.NewBuilder(config.AuditConfig{})
	}
	return &Client{
		api:     api,
		catalog: catalog,
		builder: builder,
		opts:    opts,
		now:     time.Now,
	}
}

// NewOpenAIClient builds a go-openai client from the resolved API key. In
// non-strict mode a missing key yields a nil client and a nil error.
func NewOpenAIClient(creds *config.Credentials, cfg config.AIConfig, strict bool) (*openai.Client, error) {
	key, err := creds.APIKey(strict)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, nil
	}

	clientConfig := openai.DefaultConfig(key)
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	logger.Debug("OpenAI client configured (base URL %s)", clientConfig.BaseURL)
	return openai.NewClientWithConfig(clientConfig), nil
}

// Result is a parsed list together with the model that produced it.
type Result[T any] struct {
	Items []T
	Model assets.ModelChoice
}
