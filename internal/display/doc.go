// Package display provides terminal output for reqcheck: the result table,
// per-row evidence, history listings, progress and warnings.
//
// Colour is used only when the destination is a terminal:
//
//	useColor := display.ColorEnabled(os.Stdout)
//	display.RenderTable(os.Stdout, rows, useColor)
//	display.RenderSummary(os.Stdout, models.Summarize(rows), useColor)
//
// Extraction problems are reported as warnings:
//
//	if meta.Warning != "" {
//	    display.WarnExtraction(path, meta.Warning).Display(os.Stderr)
//	}
//
// Multi-document steps use ProgressIndicator:
//
//	progress := display.NewProgressIndicator(os.Stderr, 2)
//	progress.Start()
//	progress.Step(ttzPath)
//	progress.Step(kdPath)
//	progress.Complete()
package display
