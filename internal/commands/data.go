package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/finqa/internal/fx"
	"github.com/cleared-dev/finqa/internal/tables"
	"github.com/cleared-dev/finqa/internal/tools"
)

func newExploreCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "explore <dataset>",
		Short: "Describe a dataset: columns, categories, months and sample rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := tables.ParseName(args[0])
			if err != nil {
				return err
			}
			d, err := a.loadDataset()
			if err != nil {
				return err
			}
			summary, err := d.SchemaSummary(name)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		},
	}
}

func newExtractCommand(a *app) *cobra.Command {
	var filters string

	cmd := &cobra.Command{
		Use:   "extract <dataset>",
		Short: "Run the extraction tool directly, without a model",
		Example: `  finqa extract actuals --filters '{"month":"2025-06","metric":"revenue","compare_to_budget":true}'
  finqa extract cash --filters '{"metric":"cash runway"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.loadDataset()
			if err != nil {
				return err
			}

			req := map[string]any{"dataset_name": args[0]}
			if filters != "" {
				req["filters"] = filters
			}
			raw, err := json.Marshal(req)
			if err != nil {
				return fmt.Errorf("encoding arguments: %w", err)
			}

			res := a.registry(d).Dispatch(cmd.Context(), tools.NewScope(), tools.Request{
				ID:           "cli",
				Name:         tools.ExtractCSVData,
				RawArguments: string(raw),
			})

			var buf bytes.Buffer
			if err := json.Indent(&buf, []byte(res.Text()), "", "  "); err != nil {
				return fmt.Errorf("formatting result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), buf.String())
			if !res.OK {
				return errors.New(res.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filters, "filters", "", "filters as a JSON object")

	return cmd
}

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load the four tables and report data problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()

			files, err := tables.Scan(a.cfg.Data.Dir, a.cfg.DataFiles())
			if err != nil {
				return err
			}
			d, err := a.loadDataset()
			if err != nil {
				return err
			}

			for _, f := range files {
				summary, err := d.SchemaSummary(f.Table)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%-8s %-40s %5d rows", f.Table, f.Path, summary.RowCount)
				if summary.MonthRange != "" {
					fmt.Fprintf(w, "  %s", summary.MonthRange)
				}
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%d fx rates indexed, %d category rules\n",
				fx.NewConverter(d.Rates()).Len(), len(d.Classifier().Rules()))

			problems := d.Validate()
			if len(problems) == 0 {
				fmt.Fprintln(w, "\nNo problems found.")
				return nil
			}
			fmt.Fprintf(w, "\n%d problem(s):\n", len(problems))
			for _, p := range problems {
				fmt.Fprintf(w, "  %s\n", p.Error())
			}
			return fmt.Errorf("%d data problem(s) found", len(problems))
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
