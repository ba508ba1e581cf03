package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/finqa/internal/trace"
)

// detailWidth truncates arguments and results in the table view.
const detailWidth = 80

func newTraceCommand(a *app) *cobra.Command {
	var sessionID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the recorded execution trace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := trace.Read(a.cfg.Trace.Dir)
			if err != nil {
				return err
			}
			if sessionID != "" {
				entries = trace.Filter(entries, sessionID)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No trace entries.")
				return nil
			}
			printTrace(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "only show entries of this session")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")

	return cmd
}

func printTrace(w io.Writer, entries []trace.Entry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tTIME\tITER\tKIND\tTOOL\tOK\tDETAIL")
	for _, e := range entries {
		detail := e.Result
		if e.Kind == trace.KindToolCall {
			detail = e.Arguments
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%t\t%s\n",
			e.Seq, e.Timestamp.Format(time.TimeOnly), e.Iteration, e.Kind, e.Tool, e.OK, truncate(detail, detailWidth))
	}
	_ = tw.Flush()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
