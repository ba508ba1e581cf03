package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/finqa/internal/categories"
	"github.com/cleared-dev/finqa/internal/config"
)

const rulesFileName = "category-rules.csv"

func newInitCommand() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new finqa project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if err := runInit(absDir, provider); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized finqa project at %s\n", absDir)
			fmt.Fprintf(cmd.OutOrStdout(), "Put actuals.csv, budget.csv, fx.csv and cash.csv in %s\n", filepath.Join(absDir, "data"))
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "groq", "model provider: groq, openai or gemini")

	return cmd
}

func runInit(dir, provider string) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	pc, err := config.ProviderPreset(provider)
	if err != nil {
		return err
	}

	for _, d := range []string{"data", "logs"} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	// Write finqa.yaml.
	cfg := config.Default()
	cfg.Provider = pc
	cfg.Data.CategoryRules = rulesFileName
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Write the default category rules so they can be edited.
	var rules bytes.Buffer
	if err := categories.WriteRules(&rules, categories.DefaultRules()); err != nil {
		return fmt.Errorf("encoding category rules: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, rulesFileName), rules.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing category rules: %w", err)
	}

	// Write .env.example.
	env := pc.APIKeyEnv + "=\n"
	if err := os.WriteFile(filepath.Join(dir, ".env.example"), []byte(env), 0o644); err != nil {
		return fmt.Errorf("writing .env.example: %w", err)
	}

	// Write .gitignore.
	gitignore := ".env\nlogs/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	return nil
}
