package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/reqcheck/internal/comparator"
	"github.com/harrison/reqcheck/internal/config"
	"github.com/harrison/reqcheck/internal/display"
	"github.com/harrison/reqcheck/internal/history"
	"github.com/harrison/reqcheck/internal/logger"
	"github.com/harrison/reqcheck/internal/models"
	"github.com/harrison/reqcheck/internal/parser"
	"github.com/harrison/reqcheck/internal/report"
)

// NewCompareCommand creates the compare command
func NewCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <ttz-file> <kd-file>",
		Short: "Check a KD document against the requirements of a TTZ",
		Long: `Extract requirements from the TTZ, locate evidence for each in the KD and
verify numeric constraints.

Supported inputs: .pdf, .docx, .md and plain text (UTF-8 or Windows-1251).

Examples:
  reqcheck compare ttz.docx kd.pdf
  reqcheck compare ttz.docx kd.pdf --evidence
  reqcheck compare ttz.docx kd.pdf --json result.json --md result.md
  reqcheck compare ttz.docx kd.pdf --save --user "Иванов"`,
		Args: cobra.ExactArgs(2),
		RunE: runCompare,
	}

	cmd.Flags().String("json", "", "Write the report as JSON to this file")
	cmd.Flags().String("md", "", "Write the report as Markdown to this file")
	cmd.Flags().String("csv", "", "Write the report as CSV to this file")
	cmd.Flags().Bool("evidence", false, "Print evidence snippets and diffs for matched requirements")
	cmd.Flags().Bool("save", false, "Store the comparison in history")
	cmd.Flags().String("user", "", "User name recorded with a saved comparison")

	return cmd
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rs, err := loadRules(cfg)
	if err != nil {
		return err
	}

	log, closeLog := newRunLogger(cmd, cfg)
	defer closeLog()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ttzPath, kdPath := args[0], args[1]

	progress := display.NewProgressIndicator(cmd.ErrOrStderr(), 2)
	progress.Start()
	docs := make([]*document, 0, 2)
	for _, path := range []string{ttzPath, kdPath} {
		progress.Step(path)
		doc, err := readDocument(ctx, cfg, path, log, cmd.ErrOrStderr())
		if err != nil {
			log.LogError(err.Error())
			return fmt.Errorf("failed to read document: %w", err)
		}
		docs = append(docs, doc)
	}
	progress.Complete()
	ttz, kd := docs[0], docs[1]

	reqs := parser.New(rs).Parse(ttz.Text)
	log.LogInfo(fmt.Sprintf("Parsed %d requirements from %s", len(reqs), filepath.Base(ttzPath)))
	if len(reqs) == 0 {
		display.WarnNoRequirements(ttzPath).Display(cmd.ErrOrStderr())
	}

	comp := comparator.NewFromConfig(cfg, rs,
		comparator.WithLogger(log),
		comparator.WithProgress(throttledProgress(log)),
	)

	start := time.Now()
	rows := comp.Compare(reqs, kd.Text)
	summary := models.Summarize(rows)
	log.LogSummary(summary, time.Since(start))

	out := cmd.OutOrStdout()
	useColor := display.ColorEnabled(out)
	display.RenderTable(out, rows, useColor)
	display.RenderSummary(out, summary, useColor)
	if evidence, _ := cmd.Flags().GetBool("evidence"); evidence {
		display.RenderEvidence(out, rows, useColor)
	}

	rep := report.New(filepath.Base(ttzPath), filepath.Base(kdPath), rows)
	writers := []struct {
		flag  string
		write func(string, report.Report) error
	}{
		{"json", report.WriteJSON},
		{"md", report.WriteMarkdown},
		{"csv", report.WriteCSV},
	}
	for _, w := range writers {
		path, _ := cmd.Flags().GetString(w.flag)
		if path == "" {
			continue
		}
		if err := w.write(path, rep); err != nil {
			return fmt.Errorf("failed to write %s report: %w", w.flag, err)
		}
		fmt.Fprintf(out, "Wrote %s\n", path)
	}

	save, _ := cmd.Flags().GetBool("save")
	if save || cfg.History.Enabled {
		user, _ := cmd.Flags().GetString("user")
		if user == "" {
			user = cfg.History.UserName
		}
		id, err := saveComparison(ctx, cfg, history.NewComparison{
			TTZFilename: filepath.Base(ttzPath),
			KDFilename:  filepath.Base(kdPath),
			TTZMethod:   ttz.Meta.Method,
			KDMethod:    kd.Meta.Method,
			UserName:    user,
			Rows:        rows,
		})
		if err != nil {
			return err
		}
		log.LogInfo(fmt.Sprintf("Saved comparison %s", id))
		fmt.Fprintf(out, "Saved comparison %s\n", id)
	}

	return nil
}

func saveComparison(ctx context.Context, cfg *config.Config, c history.NewComparison) (string, error) {
	store, err := history.NewStore(ctx, cfg.History.DBPath)
	if err != nil {
		return "", fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	id, err := store.SaveComparison(ctx, c)
	if err != nil {
		return "", fmt.Errorf("save comparison: %w", err)
	}
	return id, nil
}

// newRunLogger combines console logging on stderr with a per-run file log.
// A log directory that cannot be created only costs the file log.
func newRunLogger(cmd *cobra.Command, cfg *config.Config) (logger.Logger, func()) {
	console := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	fileLog, err := logger.NewFileLoggerWithDirAndLevel(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		console.LogWarn(fmt.Sprintf("file logging disabled: %v", err))
		return console, func() {}
	}

	return logger.NewMultiLogger(console, fileLog), func() { fileLog.Close() }
}

// throttledProgress reports roughly every tenth of the work and at the end
func throttledProgress(log logger.Logger) comparator.ProgressFunc {
	return func(done, total int) {
		step := total / 10
		if step < 1 {
			step = 1
		}
		if done%step == 0 || done == total {
			log.LogProgress(done, total)
		}
	}
}
