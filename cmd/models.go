package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kayz/ctf-assets/internal/ai"
	"github.com/kayz/ctf-assets/internal/assets"
	"github.com/kayz/ctf-assets/internal/generator"
)

type modelsOptions struct {
	resolve string
	image   bool
	filter  string
	format  string
}

type modelsView struct {
	DefaultModel      string              `json:"default_model" yaml:"default_model"`
	DefaultImageModel string              `json:"default_image_model" yaml:"default_image_model"`
	Models            []ai.Entry          `json:"models,omitempty" yaml:"models,omitempty"`
	Resolved          *assets.ModelChoice `json:"resolved,omitempty" yaml:"resolved,omitempty"`
}

func newModelsCommand() *cobra.Command {
	opts := &modelsOptions{}

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models served by the API and show how names resolve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := generator.NewOpenAIClient(newCredentials(cfg), cfg.AI, true)
			if err != nil {
				return err
			}
			catalog := ai.NewCatalog(client, cfg.AI)
			view := modelsView{
				DefaultModel:      catalog.DefaultModel(),
				DefaultImageModel: catalog.DefaultImageModel(),
			}

			if opts.resolve != "" {
				var choice assets.ModelChoice
				if opts.image {
					choice = catalog.ResolveImage(cmd.Context(), opts.resolve)
				} else {
					choice = catalog.Resolve(cmd.Context(), opts.resolve)
				}
				view.Resolved = &choice
			} else {
				entries, err := catalog.Entries(cmd.Context())
				if err != nil {
					return err
				}
				for _, e := range entries {
					if opts.image && !e.Image {
						continue
					}
					if opts.filter != "" && !strings.Contains(e.ID, opts.filter) {
						continue
					}
					view.Models = append(view.Models, e)
				}
			}

			if opts.format != "text" {
				return writeFormatted(cmd.OutOrStdout(), opts.format, view)
			}
			writeModelsText(cmd, view)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.resolve, "resolve", "", "Show which model a requested name resolves to")
	cmd.Flags().BoolVar(&opts.image, "image", false, "Only image models (with --resolve: resolve as an image model)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Only models whose ID contains this text")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text, json, yaml")
	return cmd
}

func init() {
	rootCmd.AddCommand(newModelsCommand())
}

func writeModelsText(cmd *cobra.Command, view modelsView) {
	out := cmd.OutOrStdout()
	if view.Resolved != nil {
		r := view.Resolved
		fmt.Fprintf(out, "requested:   %s\n", r.Requested)
		fmt.Fprintf(out, "effective:   %s\n", r.Effective)
		fmt.Fprintf(out, "substituted: %v\n", r.Substituted)
		fmt.Fprintf(out, "reasoning:   %v\n", r.Reasoning)
		return
	}

	fmt.Fprintf(out, "Models (default %s, image default %s):\n", view.DefaultModel, view.DefaultImageModel)
	for _, m := range view.Models {
		var tags []string
		if m.ID == view.DefaultModel || m.ID == view.DefaultImageModel {
			tags = append(tags, "default")
		}
		if m.Reasoning {
			tags = append(tags, "reasoning")
		}
		if m.Image {
			tags = append(tags, "image")
		}
		if len(tags) > 0 {
			fmt.Fprintf(out, "- %s [%s]\n", m.ID, strings.Join(tags, ","))
		} else {
			fmt.Fprintf(out, "- %s\n", m.ID)
		}
	}
}
