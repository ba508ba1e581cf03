package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/finqa/internal/agent"
)

// exampleQuestions are shown by `finqa ask --examples`.
var exampleQuestions = []string{
	"What was June 2025 revenue vs budget in USD?",
	"Break down Opex by category for June.",
	"Show Gross Margin % trend for the last 3 months.",
	"What is our cash runway right now?",
}

func newAskCommand(a *app) *cobra.Command {
	var asJSON, examples, showTrace, parallel bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question about the financial data",
		Example: `  finqa ask "What was June 2025 revenue vs budget in USD?"
  finqa ask --json "Show Gross Margin % trend for the last 3 months."`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if examples {
				for i, q := range exampleQuestions {
					fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, q)
				}
				return nil
			}
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("a question is required (try --examples)")
			}

			d, err := a.loadDataset()
			if err != nil {
				return err
			}
			ag, err := a.newAgent(cmd.Context(), a.registry(d), parallel)
			if err != nil {
				return err
			}

			out, askErr := ag.NewSession().Ask(cmd.Context(), question)
			if out == nil {
				return askErr
			}
			a.saveTrace(cmd, out)

			if asJSON {
				s, err := out.MarshalIndent()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), s)
			} else if err := printOutcome(cmd.OutOrStdout(), out, showTrace); err != nil {
				return err
			}
			return askErr
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full outcome as JSON")
	cmd.Flags().BoolVar(&examples, "examples", false, "list example questions")
	cmd.Flags().BoolVar(&showTrace, "trace", false, "print the execution trace")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "run the tool calls of one model reply concurrently")

	return cmd
}

func printOutcome(w io.Writer, out *agent.Outcome, showTrace bool) error {
	fmt.Fprintln(w, out.Answer)

	if out.Chart != nil {
		spec, err := json.MarshalIndent(out.Chart, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding chart: %w", err)
		}
		fmt.Fprintf(w, "\nChart (%s): %s\n%s\n", out.Chart.Type, out.Chart.Title, spec)
	}

	fmt.Fprintf(w, "\n[%s after %d iteration(s), session %s]\n", out.Status, out.Iterations, out.SessionID)

	if showTrace {
		fmt.Fprintln(w)
		printTrace(w, out.Trace)
	}
	return nil
}
