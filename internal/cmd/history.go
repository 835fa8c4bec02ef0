package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/reqcheck/internal/display"
	"github.com/harrison/reqcheck/internal/filelock"
	"github.com/harrison/reqcheck/internal/history"
	"github.com/harrison/reqcheck/internal/report"
)

// NewHistoryCommand creates the 'reqcheck history' command group
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse and manage saved comparisons",
		Long: `Saved comparisons live in a SQLite database (history.db_path in the config).
Comparisons are stored with 'reqcheck compare --save'.`,
	}

	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryCommentCommand())
	cmd.AddCommand(newHistoryCommentsCommand())
	cmd.AddCommand(newHistoryCleanCommand())
	cmd.AddCommand(newHistoryExportCommand())

	return cmd
}

// withStore opens the configured history database for the duration of fn.
// When the database does not exist yet, fn is skipped and missing is returned true.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, store *history.Store) error) (missing bool, err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(cfg.History.DBPath); os.IsNotExist(err) {
		return true, nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := history.NewStore(ctx, cfg.History.DBPath)
	if err != nil {
		return false, fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	return false, fn(ctx, store)
}

func notFound(id string, err error) error {
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("comparison %s not found", id)
	}
	return err
}

func newHistoryListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved comparisons, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			missing, err := withStore(cmd, func(ctx context.Context, store *history.Store) error {
				list, err := store.ListComparisons(ctx)
				if err != nil {
					return fmt.Errorf("list comparisons: %w", err)
				}
				display.RenderComparisons(out, list, display.ColorEnabled(out))
				return nil
			})
			if missing {
				display.RenderComparisons(out, nil, false)
			}
			return err
		},
	}
}

func newHistoryShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the results of a saved comparison",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			out := cmd.OutOrStdout()
			asJSON, _ := cmd.Flags().GetBool("json")
			evidence, _ := cmd.Flags().GetBool("evidence")

			missing, err := withStore(cmd, func(ctx context.Context, store *history.Store) error {
				c, err := store.GetComparison(ctx, id)
				if err != nil {
					return notFound(id, err)
				}

				if asJSON {
					rep := report.New(c.TTZFilename, c.KDFilename, c.Rows)
					rep.ID = c.ID
					rep.GeneratedAt = c.CreatedAt
					return report.JSON(out, rep)
				}

				useColor := display.ColorEnabled(out)
				fmt.Fprintf(out, "Comparison %s\n", c.ID)
				fmt.Fprintf(out, "  Date: %s\n", c.CreatedAt.Local().Format("2006-01-02 15:04:05"))
				fmt.Fprintf(out, "  User: %s\n", c.UserName)
				fmt.Fprintf(out, "  TTZ:  %s (%s)\n", c.TTZFilename, c.TTZMethod)
				fmt.Fprintf(out, "  KD:   %s (%s)\n\n", c.KDFilename, c.KDMethod)
				display.RenderTable(out, c.Rows, useColor)
				display.RenderSummary(out, c.Summary, useColor)
				if evidence {
					display.RenderEvidence(out, c.Rows, useColor)
				}
				return nil
			})
			if missing {
				return fmt.Errorf("comparison %s not found: no history database", id)
			}
			return err
		},
	}

	cmd.Flags().Bool("json", false, "Print the comparison as a JSON report")
	cmd.Flags().Bool("evidence", false, "Print evidence snippets and diffs")

	return cmd
}

func newHistoryCommentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment <id> <text>...",
		Short: "Add a comment to a saved comparison",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			text := strings.Join(args[1:], " ")
			user, _ := cmd.Flags().GetString("user")

			missing, err := withStore(cmd, func(ctx context.Context, store *history.Store) error {
				if user == "" {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					user = cfg.History.UserName
				}
				if _, err := store.AddComment(ctx, id, user, text); err != nil {
					return notFound(id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Comment added to %s\n", id)
				return nil
			})
			if missing {
				return fmt.Errorf("comparison %s not found: no history database", id)
			}
			return err
		},
	}

	cmd.Flags().String("user", "", "Comment author")

	return cmd
}

func newHistoryCommentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "comments <id>",
		Short: "List the comments of a saved comparison",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			missing, err := withStore(cmd, func(ctx context.Context, store *history.Store) error {
				comments, err := store.ListComments(ctx, id)
				if err != nil {
					return notFound(id, err)
				}
				display.RenderComments(cmd.OutOrStdout(), comments)
				return nil
			})
			if missing {
				return fmt.Errorf("comparison %s not found: no history database", id)
			}
			return err
		},
	}
}

func newHistoryCleanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete comparisons older than a number of days",
		Long: `Delete comparisons (and their comments) older than --days.
Without --days the history.keep_days setting is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")
			if !cmd.Flags().Changed("days") {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				days = cfg.History.KeepDays
			}
			if days <= 0 {
				return fmt.Errorf("--days must be > 0, got %d", days)
			}

			out := cmd.OutOrStdout()
			missing, err := withStore(cmd, func(ctx context.Context, store *history.Store) error {
				n, err := store.PurgeOlderThan(ctx, days)
				if err != nil {
					return fmt.Errorf("clean history: %w", err)
				}
				fmt.Fprintf(out, "Removed %d comparisons older than %d days\n", n, days)
				return nil
			})
			if missing {
				fmt.Fprintln(out, "No history database, nothing to clean")
			}
			return err
		},
	}

	cmd.Flags().Int("days", 0, "Age threshold in days")

	return cmd
}

func newHistoryExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the comparison list as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("out")
			out := cmd.OutOrStdout()

			missing, err := withStore(cmd, func(ctx context.Context, store *history.Store) error {
				if path == "" {
					return store.ExportCSV(ctx, out)
				}
				if err := filelock.AtomicWriteFunc(path, func(w io.Writer) error {
					return store.ExportCSV(ctx, w)
				}); err != nil {
					return fmt.Errorf("export history: %w", err)
				}
				fmt.Fprintf(out, "Exported history to %s\n", path)
				return nil
			})
			if missing {
				fmt.Fprintln(cmd.ErrOrStderr(), "No history database, nothing to export")
			}
			return err
		},
	}

	cmd.Flags().String("out", "", "Output CSV file (default: stdout)")

	return cmd
}
