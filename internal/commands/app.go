package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/finqa/internal/agent"
	"github.com/cleared-dev/finqa/internal/categories"
	"github.com/cleared-dev/finqa/internal/config"
	"github.com/cleared-dev/finqa/internal/dataset"
	"github.com/cleared-dev/finqa/internal/fx"
	"github.com/cleared-dev/finqa/internal/llm"
	"github.com/cleared-dev/finqa/internal/logger"
	"github.com/cleared-dev/finqa/internal/tools"
	"github.com/cleared-dev/finqa/internal/trace"
)

// newProvider is replaced in tests.
var newProvider = func(ctx context.Context, cfg llm.Config) (agent.Provider, error) {
	return llm.New(ctx, cfg)
}

// app is the state shared by subcommands: flags, the loaded configuration and
// the logger.
type app struct {
	configPath string
	dataDir    string
	logLevel   string

	cfg *config.Config
	log zerolog.Logger
}

func (a *app) setup(cmd *cobra.Command) error {
	base := filepath.Dir(a.configPath)
	// .env is optional
	_ = godotenv.Load(filepath.Join(base, ".env"))

	cfg, err := config.Load(a.configPath)
	switch {
	case err == nil:
		cfg.Resolve(base)
	case errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config"):
		cfg = config.Default()
	default:
		return err
	}
	if a.dataDir != "" {
		cfg.Data.Dir = a.dataDir
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg

	if cfg.Log.JSON {
		a.log = logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level)
	} else {
		a.log = logger.New(cfg.Log.Level)
	}
	cmd.SetContext(logger.WithContext(cmd.Context(), a.log))
	return nil
}

func (a *app) loadDataset() (*dataset.Dataset, error) {
	var opts []dataset.Option
	if a.cfg.Data.CategoryRules != "" {
		c, err := categories.Load(a.cfg.Data.CategoryRules)
		if err != nil {
			return nil, fmt.Errorf("loading category rules: %w", err)
		}
		opts = append(opts, dataset.WithClassifier(c))
	}

	d, err := dataset.LoadDir(a.cfg.Data.Dir, a.cfg.DataFiles(), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading data from %s: %w", a.cfg.Data.Dir, err)
	}
	for _, p := range d.Validate() {
		a.log.Warn().Str("kind", p.Kind).Str("table", string(p.Table)).Msg(p.Description)
	}
	return d, nil
}

func (a *app) registry(d *dataset.Dataset) *tools.Registry {
	r := tools.NewRegistry(d, fx.NewConverter(d.Rates()))
	r.SetMaxRows(a.cfg.Agent.MaxRows)
	return r
}

func (a *app) newAgent(ctx context.Context, reg *tools.Registry, parallel bool) (*agent.Agent, error) {
	pc := a.cfg.Provider
	p, err := newProvider(ctx, llm.Config{
		Provider:    pc.Name,
		Model:       pc.Model,
		BaseURL:     pc.BaseURL,
		APIKey:      pc.APIKey(),
		Temperature: pc.Temperature,
		MaxTokens:   pc.MaxTokens,
	})
	if errors.Is(err, llm.ErrMissingAPIKey) {
		return nil, fmt.Errorf("%w: set %s in the environment or in .env", err, pc.APIKeyEnv)
	}
	if err != nil {
		return nil, err
	}

	return agent.New(p, reg, agent.Options{
		MaxIterations: a.cfg.Agent.MaxIterations,
		Timeout:       a.cfg.Agent.Timeout,
		ParallelTools: parallel || a.cfg.Agent.ParallelTools,
	}), nil
}

// saveTrace appends entries to the trace file when tracing is enabled.
func (a *app) saveTrace(cmd *cobra.Command, out *agent.Outcome) {
	if !a.cfg.Trace.Enabled || out == nil {
		return
	}
	if err := trace.Append(a.cfg.Trace.Dir, out.Trace); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to write trace: %v\n", err)
	}
}
