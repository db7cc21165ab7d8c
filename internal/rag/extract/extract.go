// Package extract converts uploaded file content into plain text for the
// chunking stage. Formats it cannot parse fail permanently; the ingestion
// pipeline never retries them.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"docqa/internal/rag/errs"
)

// Text extracts the plain-text content of an uploaded file. The format is
// chosen by file extension, with a content sniff as fallback for files that
// arrive without a useful name.
func Text(filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", &errs.ValidationError{Reason: "empty file"}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = extensionFromContent(data)
	}

	var (
		text string
		err  error
	)
	switch ext {
	case ".txt", ".md":
		text = string(data)
	case ".pdf":
		text, err = pdfText(data)
	case ".docx":
		text, err = docxText(data)
	case ".xlsx":
		text, err = xlsxText(data)
	default:
		return "", errs.Permanent("extract", fmt.Errorf("unsupported file type %q", ext))
	}
	if err != nil {
		return "", errs.Permanent("extract", err)
	}

	if strings.TrimSpace(text) == "" {
		return "", errs.Permanent("extract", fmt.Errorf("no extractable text in %q", filename))
	}
	return text, nil
}

// extensionFromContent maps a sniffed media type back onto the extension
// switch above.
func extensionFromContent(data []byte) string {
	mt := mimetype.Detect(data)
	switch {
	case mt.Is("application/pdf"):
		return ".pdf"
	case mt.Is("application/vnd.openxmlformats-officedocument.wordprocessingml.document"):
		return ".docx"
	case mt.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"):
		return ".xlsx"
	case strings.HasPrefix(mt.String(), "text/"):
		return ".txt"
	}
	return mt.Extension()
}

// normalizeWhitespace collapses runs of blank lines left behind by the
// format-specific extractors.
func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	blank := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
