package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/finqa/internal/agent"
	"github.com/cleared-dev/finqa/internal/server"
	"github.com/cleared-dev/finqa/internal/trace"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string
	var parallel bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the question API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			d, err := a.loadDataset()
			if err != nil {
				return err
			}
			ag, err := a.newAgent(cmd.Context(), a.registry(d), parallel)
			if err != nil {
				return err
			}
			session := ag.NewSession()

			deps := server.Dependencies{Session: session, Data: d, Trace: session.Trace()}
			if a.cfg.Trace.Enabled {
				deps.OnOutcome = func(_ context.Context, out *agent.Outcome) {
					if err := trace.Append(a.cfg.Trace.Dir, out.Trace); err != nil {
						a.log.Error().Err(err).Msg("failed to write trace")
					}
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.log.Info().Str("session", session.ID).Str("provider", a.cfg.Provider.Name).Str("model", a.cfg.Provider.Model).Msg("session ready")
			return server.NewWebAPI(a.log, server.Config{Addr: addr, Dependencies: deps}).Start(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "run the tool calls of one model reply concurrently")

	return cmd
}
