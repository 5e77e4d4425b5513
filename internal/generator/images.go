package generator

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kayz/ctf-assets/internal/assets"
	"github.com/kayz/ctf-assets/internal/logger"
	"github.com/kayz/ctf-assets/internal/output"
	"github.com/kayz/ctf-assets/internal/parser"
	"github.com/kayz/ctf-assets/internal/promptbuild"
)

const maxImagesPerCall = 10

// ImageOptions overrides the client's image defaults for one call. Empty
// fields fall back to the client Options.
type ImageOptions struct {
	Model     string
	Size      string
	Quality   string
	Style     string
	OutputDir string
	Prefix    string
}

// GenerateImages runs the two-stage pipeline: a chat call turns the theme
// into a visual description, then the image model renders it. Images are
// written to disk and their paths returned.
func (c *Client) GenerateImages(ctx context.Context, req assets.Request, opts ImageOptions) (assets.ImageSet, error) {
	req.Kind = assets.KindImage
	set := assets.ImageSet{Paths: []string{}, Requested: req.EffectiveQuantity()}

	payload, textChoice, err := c.complete(ctx, req, nil)
	set.TextModel = textChoice
	if err != nil {
		return set, err
	}
	description := ""
	if text, ok := payload.(parser.TextPayload); ok {
		description = strings.TrimSpace(string(text))
	}
	if description == "" {
		return set, ErrEmptyImagePrompt
	}
	set.Prompt = description + " " + promptbuild.ImagePromptSuffix

	imageChoice := c.resolveImage(ctx, opts.Model)
	set.ImageModel = imageChoice
	imageReq := c.imageRequest(imageChoice.Effective, set.Prompt, set.Requested, opts)
	if imageReq.N != set.Requested {
		logger.Info("Model %s renders %d image(s) per call, %d requested", imageChoice.Effective, imageReq.N, set.Requested)
	}

	resp, err := c.api.CreateImage(ctx, imageReq)
	if err != nil {
		return set, wrapAPIError("image generation", imageChoice.Effective, err)
	}

	images, err := decodeImages(resp)
	if err != nil {
		return set, err
	}

	dir := firstNonEmpty(opts.OutputDir, c.opts.OutputDir, "output")
	prefix := firstNonEmpty(opts.Prefix, c.opts.FilePrefix)
	paths, err := output.WriteImages(dir, prefix, images, c.now())
	if err != nil {
		removePartial(paths)
		return set, fmt.Errorf("save images (%d of %d written, removed): %w", len(paths), len(images), err)
	}
	set.Paths = append(set.Paths, paths...)
	return set, nil
}

// removePartial deletes images written before a failed save.
func removePartial(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Error("Remove partial image %s: %v", p, err)
		}
	}
}

// ImageCount is the number of images requested from model for a wanted
// quantity. dall-e-2 renders up to ten per call; other models render one.
func ImageCount(model string, wanted int) int {
	wanted = assets.ClampQuantity(wanted)
	if model == openai.CreateImageModelDallE2 {
		if wanted > maxImagesPerCall {
			return maxImagesPerCall
		}
		return wanted
	}
	return 1
}

func (c *Client) imageRequest(model, prompt string, wanted int, opts ImageOptions) openai.ImageRequest {
	req := openai.ImageRequest{
		Prompt:         prompt,
		Model:          model,
		N:              ImageCount(model, wanted),
		Size:           firstNonEmpty(opts.Size, c.opts.ImageSize, openai.CreateImageSize1024x1024),
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	}
	switch model {
	case openai.CreateImageModelDallE2:
		// dall-e-2 accepts neither quality nor style
	default:
		req.Quality = firstNonEmpty(opts.Quality, c.opts.ImageQuality, openai.CreateImageQualityHD)
		req.Style = firstNonEmpty(opts.Style, c.opts.ImageStyle, openai.CreateImageStyleNatural)
	}
	return req
}

func (c *Client) resolveImage(ctx context.Context, requested string) assets.ModelChoice {
	if c.catalog == nil {
		name := firstNonEmpty(requested, openai.CreateImageModelDallE3)
		return assets.ModelChoice{Requested: requested, Effective: name}
	}
	return c.catalog.ResolveImage(ctx, requested)
}

func decodeImages(resp openai.ImageResponse) ([][]byte, error) {
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("image API returned no images")
	}
	images := make([][]byte, 0, len(resp.Data))
	for i, item := range resp.Data {
		if item.B64JSON == "" {
			if item.URL != "" {
				return nil, ErrImageURLOnly
			}
			return nil, fmt.Errorf("image %d has no data", i+1)
		}
		data, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("decode image %d: %w", i+1, err)
		}
		images = append(images, data)
	}
	return images, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
