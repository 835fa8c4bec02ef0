// Package extract turns uploaded documents into plain Unicode text.
//
// Extraction never fails for content: a declared format that cannot be read
// falls back to a raw decode of the bytes and records a warning in Meta.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Extraction methods reported in Meta.Method
const (
	MethodPDF      = "pdf_text"
	MethodDOCX     = "docx_text"
	MethodMarkdown = "markdown_text"
	MethodPlain    = "plain_decode"
	MethodCP1251   = "cp1251_decode"
)

// Meta describes how a text was obtained.
type Meta struct {
	Method  string `json:"method"`
	Length  int    `json:"text_len"`
	Warning string `json:"warning,omitempty"`
}

// TooShort reports whether the text is below the threshold that usually means
// the document is scanned and needs OCR.
func (m Meta) TooShort(minChars int) bool {
	return m.Length < minChars
}

type extractor func(data []byte) (string, error)

var extractors = map[string]struct {
	method string
	fn     extractor
}{
	".pdf":      {MethodPDF, pdfText},
	".docx":     {MethodDOCX, docxText},
	".md":       {MethodMarkdown, markdownText},
	".markdown": {MethodMarkdown, markdownText},
}

// Text extracts text from data, choosing the method by the filename extension.
func Text(data []byte, filename string) (string, Meta) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))

	var meta Meta
	var text string
	if e, ok := extractors[ext]; ok {
		out, err := safeExtract(e.fn, data)
		if err == nil {
			text = strings.TrimSpace(out)
			meta.Method = e.method
		} else {
			meta.Warning = fmt.Sprintf("%s extraction failed, using raw decode: %v", strings.TrimPrefix(ext, "."), err)
		}
	}
	if meta.Method == "" {
		text, meta.Method = decode(data)
	}

	meta.Length = utf8.RuneCountInString(text)
	return text, meta
}

// TextContext is Text bounded by ctx. When ctx expires first the raw decode is
// returned with a warning.
func TextContext(ctx context.Context, data []byte, filename string) (string, Meta) {
	if err := ctx.Err(); err != nil {
		return fallback(data, err)
	}

	type result struct {
		text string
		meta Meta
	}
	done := make(chan result, 1)
	go func() {
		text, meta := Text(data, filename)
		done <- result{text, meta}
	}()

	select {
	case r := <-done:
		return r.text, r.meta
	case <-ctx.Done():
		return fallback(data, ctx.Err())
	}
}

// File reads path and extracts its text. Only I/O errors are returned.
func File(ctx context.Context, path string) (string, Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", Meta{}, fmt.Errorf("read %s: %w", path, err)
	}
	text, meta := TextContext(ctx, data, filepath.Base(path))
	return text, meta, nil
}

func fallback(data []byte, cause error) (string, Meta) {
	text, method := decode(data)
	return text, Meta{
		Method:  method,
		Length:  utf8.RuneCountInString(text),
		Warning: fmt.Sprintf("extraction interrupted, using raw decode: %v", cause),
	}
}

// safeExtract guards against parsers that panic on malformed input
func safeExtract(fn extractor, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed document: %v", r)
		}
	}()
	return fn(data)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decode reads data as UTF-8, or as Windows-1251 when it is not valid UTF-8
func decode(data []byte) (string, string) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return strings.TrimSpace(string(data)), MethodPlain
	}

	out, err := charmap.Windows1251.NewDecoder().Bytes(data)
	if err != nil {
		return strings.TrimSpace(strings.ToValidUTF8(string(data), "")), MethodPlain
	}
	return strings.TrimSpace(string(out)), MethodCP1251
}
