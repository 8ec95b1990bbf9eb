// Package reference loads guidance documents (SOPs, sponsor checklists,
// agency guidance excerpts) that the model evaluator cites alongside the
// protocol.
package reference

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dshills/protoaudit/internal/redact"
)

// Document holds a loaded reference document after redaction.
type Document struct {
	Path    string
	Content string // after redaction
}

// Load reads a list of reference documents from disk and redacts each one.
func Load(paths []string) ([]Document, error) {
	docs := make([]Document, 0, len(paths))
	for _, p := range paths {
		content, err := redact.RedactFile(p)
		if err != nil {
			return nil, fmt.Errorf("loading reference document %q: %w", p, err)
		}
		docs = append(docs, Document{Path: p, Content: content})
	}
	return docs, nil
}

// FormatForPrompt wraps each document in XML-style tags for prompt insertion.
func FormatForPrompt(docs []Document) string {
	if len(docs) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&sb, "<reference file=%q>\n", filepath.Base(d.Path))
		sb.WriteString(d.Content)
		if !strings.HasSuffix(d.Content, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("</reference>\n")
	}
	return sb.String()
}
