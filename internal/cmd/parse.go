package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/reqcheck/internal/display"
	"github.com/harrison/reqcheck/internal/logger"
	"github.com/harrison/reqcheck/internal/parser"
)

// NewParseCommand creates the parse command
func NewParseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <ttz-file>",
		Short: "List the requirements recognised in a TTZ",
		Long: `Extract and print the requirements of a TTZ with their kind and numeric
constraints, without comparing against anything. Useful for tuning a ruleset.`,
		Args: cobra.ExactArgs(1),
		RunE: runParse,
	}

	cmd.Flags().Bool("json", false, "Print requirements as JSON")

	return cmd
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rs, err := loadRules(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	doc, err := readDocument(ctx, cfg, args[0], log, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	reqs := parser.New(rs).Parse(doc.Text)
	if len(reqs) == 0 {
		display.WarnNoRequirements(args[0]).Display(cmd.ErrOrStderr())
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(reqs)
	}

	display.RenderRequirements(out, reqs, display.ColorEnabled(out))
	return nil
}
