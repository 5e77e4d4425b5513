package cmd

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kayz/ctf-assets/internal/assets"
	"github.com/kayz/ctf-assets/internal/persist"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit     int
		kind      string
		format    string
		withItems bool
		runID     string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded generation runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := persist.NewStore(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			if runID != "" {
				run, err := store.GetRun(runID)
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("no run with id %q", runID)
				}
				if err != nil {
					return err
				}
				if format != "text" {
					return writeFormatted(cmd.OutOrStdout(), format, run)
				}
				writeRunText(cmd, run)
				return nil
			}

			filterKind := ""
			if kind != "" {
				k, err := assets.ParseKind(kind)
				if err != nil {
					return err
				}
				filterKind = string(k)
			}

			runs, err := store.ListRuns(persist.RunFilter{Kind: filterKind, Limit: limit})
			if err != nil {
				return err
			}
			if !withItems {
				for _, r := range runs {
					r.Items = nil
				}
			}

			if format != "text" {
				if runs == nil {
					runs = []*persist.Run{}
				}
				return writeFormatted(cmd.OutOrStdout(), format, runs)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			for _, r := range runs {
				model := r.Model
				if r.Substituted {
					model = fmt.Sprintf("%s (requested %s)", r.Model, r.RequestedModel)
				}
				fmt.Fprintf(out, "%s  %s  %-28s %d/%d  %s", r.CreatedAt.Local().Format("2006-01-02 15:04:05"), shortID(r.ID), r.Function, r.ItemCount, r.Quantity, model)
				if r.Theme != "" {
					fmt.Fprintf(out, "  theme=%q", r.Theme)
				}
				fmt.Fprintln(out)
				if withItems && len(r.Items) > 0 {
					fmt.Fprintf(out, "    %s\n", r.Items)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	cmd.Flags().StringVar(&kind, "kind", "", "Only runs of this kind: flags, stories, images")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, yaml")
	cmd.Flags().BoolVar(&withItems, "items", false, "Include generated items")
	cmd.Flags().StringVar(&runID, "id", "", "Show one run (with items) by id or unique id prefix")
	return cmd
}

func init() {
	rootCmd.AddCommand(newHistoryCommand())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func writeRunText(cmd *cobra.Command, r *persist.Run) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "id:        %s\n", r.ID)
	fmt.Fprintf(out, "created:   %s\n", r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "function:  %s\n", r.Function)
	fmt.Fprintf(out, "model:     %s\n", r.Model)
	if r.Substituted {
		fmt.Fprintf(out, "requested: %s\n", r.RequestedModel)
	}
	if r.Theme != "" {
		fmt.Fprintf(out, "theme:     %s\n", r.Theme)
	}
	fmt.Fprintf(out, "items:     %d/%d\n", r.ItemCount, r.Quantity)
	if len(r.Items) > 0 {
		fmt.Fprintf(out, "%s\n", r.Items)
	}
}
