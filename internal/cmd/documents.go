package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/harrison/reqcheck/internal/config"
	"github.com/harrison/reqcheck/internal/display"
	"github.com/harrison/reqcheck/internal/extract"
	"github.com/harrison/reqcheck/internal/logger"
)

// document is an input file after text extraction
type document struct {
	Path string
	Text string
	Meta extract.Meta
}

// readDocument extracts the text of path within the configured timeout and
// reports degraded or suspiciously short extractions on warnOut.
func readDocument(ctx context.Context, cfg *config.Config, path string, log logger.Logger, warnOut io.Writer) (*document, error) {
	if cfg.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ExtractTimeout)
		defer cancel()
	}

	text, meta, err := extract.File(ctx, path)
	if err != nil {
		return nil, err
	}

	log.LogDebug(fmt.Sprintf("%s: %s, %d characters", path, meta.Method, meta.Length))
	if meta.Warning != "" {
		log.LogWarn(fmt.Sprintf("%s: %s", path, meta.Warning))
		display.WarnExtraction(path, meta.Warning).Display(warnOut)
	}
	if meta.TooShort(cfg.MinTextChars) {
		log.LogWarn(fmt.Sprintf("%s: only %d characters extracted", path, meta.Length))
		display.WarnShortText(path, meta.Length, cfg.MinTextChars).Display(warnOut)
	}

	return &document{Path: path, Text: text, Meta: meta}, nil
}
