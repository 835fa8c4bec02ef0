package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/reqcheck/internal/rules"
)

// NewRulesCommand creates the 'reqcheck rules' command group
func NewRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate rulesets",
		Long: `A ruleset holds the language-specific patterns reqcheck uses: heading and
bullet patterns, units, constraint phrases, reference templates and stopwords.

Start a custom ruleset from the built-in one:
  reqcheck rules dump > my-rules.yaml
  reqcheck rules check my-rules.yaml
  reqcheck compare --rules my-rules.yaml ttz.docx kd.pdf`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Print the built-in ruleset as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write(rules.DefaultYAML())
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check <file>",
		Short: "Validate a ruleset file",
		Args:  cobra.ExactArgs(1),
		RunE:  runRulesCheck,
	})

	return cmd
}

func runRulesCheck(cmd *cobra.Command, args []string) error {
	rs, err := rules.Load(args[0])
	if err != nil {
		return err
	}
	if _, err := rules.Compile(rs); err != nil {
		return fmt.Errorf("invalid ruleset %s: %w", args[0], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Ruleset %s is valid: language %s, %d units, %d reference templates, %d stopwords\n",
		args[0], rs.Language, len(rs.Units), len(rs.References), len(rs.Stopwords))
	return nil
}
