package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kayz/ctf-assets/internal/assets"
	"github.com/kayz/ctf-assets/internal/promptbuild"
	"github.com/kayz/ctf-assets/internal/schema"
)

type promptView struct {
	Function string         `json:"function" yaml:"function"`
	Request  assets.Request `json:"request" yaml:"request"`
	System   string         `json:"system" yaml:"system"`
	User     string         `json:"user" yaml:"user"`
	Combined string         `json:"combined,omitempty" yaml:"combined,omitempty"`
	Schema   *schema.Schema `json:"schema,omitempty" yaml:"-"`
}

// newPromptCommand prints the prompts a generate call would send, without
// contacting the API.
func newPromptCommand() *cobra.Command {
	opts := &generateOptions{}
	var (
		outputPath string
		combined   bool
		withSchema bool
		format     string
	)

	cmd := &cobra.Command{
		Use:   "prompt <flags|stories|images> [function]",
		Short: "Show the composed prompts for a request without calling the API",
		Args:  cobra.RangeArgs(1, 2),
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
			pair := promptbuild.NewBuilder(cfg.Audit).Build(req)

			view := promptView{Function: name, Request: req, System: pair.System, User: pair.User}
			if combined {
				view.Combined = pair.Combined()
			}
			if withSchema {
				if s, ok := schema.For(kind, fn.titled); ok {
					view.Schema = &s
				}
			}

			if outputPath == "" {
				return writeFormatted(cmd.OutOrStdout(), format, view)
			}
			f, err := os.Create(outputPath)
			if err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			defer f.Close()
			return writeFormatted(f, format, view)
		},
	}

	addRequestFlags(cmd, opts)
	cmd.Flags().StringVar(&outputPath, "output", "", "Write output to file (default: stdout)")
	cmd.Flags().BoolVar(&combined, "combined", false, "Include the single-string form of the prompt")
	cmd.Flags().BoolVar(&withSchema, "schema", false, "Include the response schema (json format only)")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json, yaml")
	return cmd
}

func init() {
	rootCmd.AddCommand(newPromptCommand())
}
