package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kayz/ctf-assets/internal/ai"
	"github.com/kayz/ctf-assets/internal/assets"
	"github.com/kayz/ctf-assets/internal/config"
	"github.com/kayz/ctf-assets/internal/generator"
	"github.com/kayz/ctf-assets/internal/logger"
	"github.com/kayz/ctf-assets/internal/output"
	"github.com/kayz/ctf-assets/internal/persist"
	"github.com/kayz/ctf-assets/internal/promptbuild"
)

type generateOptions struct {
	theme              string
	tone               string
	quantity           int
	model              string
	temperature        float64
	language           string
	flagFormat         string
	outDir             string
	prefix             string
	instructions       string
	systemInstructions string
	imageModel         string
	imageSize          string
	imageQuality       string
	imageStyle         string
	save               bool
	metadata           bool
	noHistory          bool
	strict             bool
	format             string
}

// generateEnvelope is what the generate command prints.
type generateEnvelope struct {
	Kind        assets.Kind               `json:"kind" yaml:"kind"`
	Function    string                    `json:"function" yaml:"function"`
	Model       assets.ModelChoice        `json:"model" yaml:"model"`
	ImageModel  *assets.ModelChoice       `json:"image_model,omitempty" yaml:"image_model,omitempty"`
	Requested   int                       `json:"requested" yaml:"requested"`
	Count       int                       `json:"count" yaml:"count"`
	Items       any                       `json:"items" yaml:"items"`
	ImagePrompt string                    `json:"image_prompt,omitempty" yaml:"image_prompt,omitempty"`
	SavedTo     string                    `json:"saved_to,omitempty" yaml:"saved_to,omitempty"`
	Metadata    *assets.ChallengeMetadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

type generateFunc func(ctx context.Context, g *generator.Client, req assets.Request, opts *generateOptions) (*generateEnvelope, error)

type generateFunction struct {
	kind   assets.Kind
	titled bool
	run    generateFunc
}

// generateFunctions is the closed set of callable generator functions.
var generateFunctions = map[string]generateFunction{
	"generate_flags":               {kind: assets.KindFlag, run: runGenerateFlags},
	"generate_stories":             {kind: assets.KindStory, run: runGenerateStories},
	"generate_stories_with_titles": {kind: assets.KindStory, titled: true, run: runGenerateTitledStories},
	"generate_images":              {kind: assets.KindImage, run: runGenerateImages},
}

var defaultFunctions = map[assets.Kind]string{
	assets.KindFlag:  "generate_flags",
	assets.KindStory: "generate_stories",
	assets.KindImage: "generate_images",
}

func allowedFunctionNames() []string {
	names := make([]string, 0, len(generateFunctions))
	for name := range generateFunctions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lookupFunction resolves the function for kind. An empty name selects the
// kind's default.
func lookupFunction(kind assets.Kind, name string) (string, generateFunction, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultFunctions[kind]
	}
	fn, ok := generateFunctions[name]
	if !ok {
		return "", generateFunction{}, fmt.Errorf("function %q is not allowed (allowed: %s)", name, strings.Join(allowedFunctionNames(), ", "))
	}
	if fn.kind != kind {
		return "", generateFunction{}, fmt.Errorf("function %q does not generate %s assets", name, kind)
	}
	return name, fn, nil
}

func newGenerateCommand() *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate <flags|stories|images> [function]",
		Short: "Generate CTF assets",
		Long: `Generate CTF assets of one kind.

Functions:
  generate_flags                 flags (default for "flags")
  generate_stories               untitled stories (default for "stories")
  generate_stories_with_titles   stories with titles
  generate_images                images (default for "images")`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := assets.ParseKind(args[0])
			if err != nil {
				return err
			}
			fnName := ""
			if len(args) > 1 {
				fnName = args[1]
			}
			name, fn, err := lookupFunction(kind, fnName)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			req := buildRequest(cmd, cfg, opts, fn)

			g, err := newGeneratorClient(cfg, opts.strict)
			if err != nil {
				return err
			}

			env, err := fn.run(cmd.Context(), g, req, opts)
			if err != nil {
				return err
			}
			env.Kind = kind
			env.Function = name
			env.Requested = req.Quantity
			if opts.metadata {
				md := assets.MetadataFor(req)
				env.Metadata = &md
			}

			if opts.save && kind != assets.KindImage {
				dir := firstSet(opts.outDir, cfg.Generation.OutputDir, "output")
				prefix := firstSet(opts.prefix, cfg.Generation.FilePrefix)
				data, err := json.MarshalIndent(env, "", "  ")
				if err != nil {
					return fmt.Errorf("encode output: %w", err)
				}
				path, err := output.WriteFile(filepath.Join(dir, output.TextName(prefix, string(kind), time.Now(), "json")), data)
				if err != nil {
					return err
				}
				env.SavedTo = path
			}

			if !opts.noHistory && cfg.History.Enabled {
				recordHistory(cfg.History.Path, name, req, env)
			}

			return writeFormatted(cmd.OutOrStdout(), opts.format, env)
		},
	}

	addRequestFlags(cmd, opts)
	f := cmd.Flags()
	f.StringVar(&opts.outDir, "out-dir", "", "Output directory for images and saved files")
	f.StringVar(&opts.prefix, "prefix", "", "File name prefix for images and saved files")
	f.StringVar(&opts.imageModel, "image-model", "", "Image model (default from config)")
	f.StringVar(&opts.imageSize, "image-size", "", "Image size (default from config)")
	f.StringVar(&opts.imageQuality, "image-quality", "", "Image quality (default from config)")
	f.StringVar(&opts.imageStyle, "image-style", "", "Image style (default from config)")
	f.BoolVar(&opts.save, "save", false, "Also write the result to a JSON file in the output directory")
	f.BoolVar(&opts.metadata, "metadata", false, "Attach challenge metadata to the output")
	f.BoolVar(&opts.noHistory, "no-history", false, "Do not record this run in the history database")
	f.BoolVar(&opts.strict, "strict", true, "Fail when the API key is missing instead of continuing without a client")
	f.StringVar(&opts.format, "format", "json", "Output format: json, yaml")

	return cmd
}

func init() {
	rootCmd.AddCommand(newGenerateCommand())
}

// addRequestFlags registers the flags that shape a generation request.
func addRequestFlags(cmd *cobra.Command, opts *generateOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.theme, "theme", "", "Theme for the generated assets")
	f.StringVar(&opts.tone, "tone", "", "Tone (default from config)")
	f.IntVarP(&opts.quantity, "quantity", "n", 1, "Number of assets (minimum 1)")
	f.StringVar(&opts.model, "model", "", "Text model (unknown names fall back to the default)")
	f.Float64Var(&opts.temperature, "temperature", 0, "Sampling temperature 0-2 (default from config)")
	f.StringVar(&opts.language, "language", "", "Locale tag for generated text (default from config)")
	f.StringVar(&opts.flagFormat, "flag-format", "", "Flag template, e.g. ctf{..} (default from config)")
	f.StringVar(&opts.instructions, "instructions", "", "Extra instructions appended to the user prompt")
	f.StringVar(&opts.systemInstructions, "system-instructions", "", "Extra instructions appended to the system prompt")
}

// buildRequest merges flags over config defaults. Priority: flag > config.
func buildRequest(cmd *cobra.Command, cfg *config.Config, opts *generateOptions, fn generateFunction) assets.Request {
	req := assets.Request{
		Kind:               fn.kind,
		Titled:             fn.titled,
		Theme:              strings.TrimSpace(opts.theme),
		Tone:               firstSet(opts.tone, cfg.Generation.Tone),
		Quantity:           opts.quantity,
		Language:           firstSet(opts.language, cfg.Generation.Language),
		FlagFormat:         firstSet(opts.flagFormat, cfg.Generation.FlagFormat),
		Instructions:       opts.instructions,
		SystemInstructions: opts.systemInstructions,
		Model:              strings.TrimSpace(opts.model),
		Temperature:        cfg.AI.Temperature,
	}
	if cmd.Flags().Changed("temperature") {
		req.Temperature = opts.temperature
	}
	return req.Normalize(cfg.Generation.Language)
}

// newGeneratorClient wires credentials, the model catalog and the prompt
// builder into a generator client.
func newGeneratorClient(cfg *config.Config, strict bool) (*generator.Client, error) {
	client, err := generator.NewOpenAIClient(newCredentials(cfg), cfg.AI, strict)
	if err != nil {
		return nil, err
	}

	builder := promptbuild.NewBuilder(cfg.Audit)
	if client == nil {
		return generator.New(nil, ai.NewCatalog(nil, cfg.AI), builder, generator.OptionsFromConfig(cfg)), nil
	}
	return generator.New(client, ai.NewCatalog(client, cfg.AI), builder, generator.OptionsFromConfig(cfg)), nil
}

func newCredentials(cfg *config.Config) *config.Credentials {
	return config.NewCredentials(cfg.AI.APIKeyEnv, "")
}

func runGenerateFlags(ctx context.Context, g *generator.Client, req assets.Request, opts *generateOptions) (*generateEnvelope, error) {
	res, err := g.GenerateFlags(ctx, req)
	if err != nil {
		return nil, err
	}
	return &generateEnvelope{Model: res.Model, Count: len(res.Items), Items: res.Items}, nil
}

func runGenerateStories(ctx context.Context, g *generator.Client, req assets.Request, opts *generateOptions) (*generateEnvelope, error) {
	res, err := g.GenerateStories(ctx, req)
	if err != nil {
		return nil, err
	}
	return &generateEnvelope{Model: res.Model, Count: len(res.Items), Items: res.Items}, nil
}

func runGenerateTitledStories(ctx context.Context, g *generator.Client, req assets.Request, opts *generateOptions) (*generateEnvelope, error) {
	res, err := g.GenerateTitledStories(ctx, req)
	if err != nil {
		return nil, err
	}
	return &generateEnvelope{Model: res.Model, Count: len(res.Items), Items: res.Items}, nil
}

func runGenerateImages(ctx context.Context, g *generator.Client, req assets.Request, opts *generateOptions) (*generateEnvelope, error) {
	set, err := g.GenerateImages(ctx, req, generator.ImageOptions{
		Model:     opts.imageModel,
		Size:      opts.imageSize,
		Quality:   opts.imageQuality,
		Style:     opts.imageStyle,
		OutputDir: opts.outDir,
		Prefix:    opts.prefix,
	})
	if err != nil {
		return nil, err
	}
	imageModel := set.ImageModel
	return &generateEnvelope{
		Model:       set.TextModel,
		ImageModel:  &imageModel,
		Count:       len(set.Paths),
		Items:       set.Paths,
		ImagePrompt: set.Prompt,
	}, nil
}

// recordHistory stores the run. Failures are logged and do not fail the command.
func recordHistory(path, function string, req assets.Request, env *generateEnvelope) {
	store, err := persist.NewStore(path)
	if err != nil {
		logger.Warn("Open history failed: %v", err)
		return
	}
	defer store.Close()

	run := &persist.Run{
		Kind:           string(req.Kind),
		Function:       function,
		RequestedModel: env.Model.Requested,
		Model:          env.Model.Effective,
		Substituted:    env.Model.Substituted,
		Theme:          req.Theme,
		Tone:           req.Tone,
		Language:       req.Language,
		Quantity:       req.Quantity,
		ItemCount:      env.Count,
	}
	if err := store.RecordRun(run, env.Items); err != nil {
		logger.Warn("Record history failed: %v", err)
	}
}

func writeFormatted(w io.Writer, format string, v any) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (valid: json, yaml)", format)
	}
}

func firstSet(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
