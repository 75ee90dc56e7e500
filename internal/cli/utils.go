// Package cli provides CLI output helpers for Kotae.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// AnswerOutput is the answer plus its supporting passages, as printed by the
// ask subcommand and returned by the chat API.
type AnswerOutput struct {
	Answer  string           `json:"answer"`
	Sources []models.Passage `json:"sources"`
	ChatID  string           `json:"chat_id,omitempty"`
}

// WriteAnswer writes an answer and its sources to w in the given format.
func WriteAnswer(w io.Writer, out *AnswerOutput, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	default:
		writeAnswerText(w, out)
		return nil
	}
}

func writeAnswerText(w io.Writer, out *AnswerOutput) {
	fmt.Fprintf(w, "\n%s\n", out.Answer)
	if len(out.Sources) == 0 {
		return
	}
	fmt.Fprintf(w, "\n--- Sources ---\n")
	for i, src := range out.Sources {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "[%d] Score: %.4f | %s", i+1, src.Score, src.DocumentTitle)
		if src.UploadDate != "" {
			fmt.Fprintf(w, " (uploaded %s)", src.UploadDate)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "\n%s\n\n", Truncate(src.Text, 200))
	}
}

// WriteDocumentList writes document metadata rows to w in the given format.
func WriteDocumentList(w io.Writer, docs []*models.Document, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{"documents": docs})
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents uploaded.")
		return nil
	}
	for _, d := range docs {
		fmt.Fprintf(w, "%s  %-40s  chunks=%d  uploaded=%s\n", d.ID, Truncate(d.Title, 40), d.TotalChunks, d.UploadDate)
	}
	return nil
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
