package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func TestWriteAnswer_JSON(t *testing.T) {
	out := &AnswerOutput{
		Answer: "The cat sat on the mat.",
		Sources: []models.Passage{
			{
				Text:          "A cat sat on a mat.",
				DocumentID:    "doc-1",
				DocumentTitle: "pets.pdf",
				UploadDate:    "2026-03-01",
				Score:         0.91,
			},
		},
		ChatID: "chat-1",
	}
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, out, OutputJSON); err != nil {
		t.Fatalf("WriteAnswer(json): %v", err)
	}
	var decoded AnswerOutput
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Answer != out.Answer || decoded.ChatID != "chat-1" {
		t.Errorf("decoded: %+v", decoded)
	}
	if len(decoded.Sources) != 1 || decoded.Sources[0].DocumentID != "doc-1" {
		t.Errorf("decoded sources: %+v", decoded.Sources)
	}
}

func TestWriteAnswer_text(t *testing.T) {
	out := &AnswerOutput{
		Answer: "The cat sat on the mat.",
		Sources: []models.Passage{
			{Text: "A cat sat on a mat.", DocumentTitle: "pets.pdf", Score: 0.91},
		},
	}
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, out, OutputText); err != nil {
		t.Fatalf("WriteAnswer(text): %v", err)
	}
	got := buf.String()
	for _, sub := range []string{"The cat sat on the mat.", "Sources", "pets.pdf", "0.91", "A cat sat on a mat."} {
		if !strings.Contains(got, sub) {
			t.Errorf("text output missing %q:\n%s", sub, got)
		}
	}
}

func TestWriteAnswer_text_noSources(t *testing.T) {
	out := &AnswerOutput{Answer: "Nothing relevant found."}
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, out, OutputText); err != nil {
		t.Fatalf("WriteAnswer(text): %v", err)
	}
	if strings.Contains(buf.String(), "Sources") {
		t.Errorf("no sources section expected:\n%s", buf.String())
	}
}

func TestWriteAnswer_unknownFormatTreatedAsText(t *testing.T) {
	out := &AnswerOutput{Answer: "hello"}
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, out, OutputFormat("unknown")); err != nil {
		t.Fatalf("WriteAnswer(unknown): %v", err)
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("unknown format should fall back to text; got %q", buf.String())
	}
}

func TestWriteDocumentList(t *testing.T) {
	docs := []*models.Document{
		{ID: "d1", Title: "report.pdf", UploadDate: "2026-03-01", TotalChunks: 3},
	}
	var buf bytes.Buffer
	if err := WriteDocumentList(&buf, docs, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "report.pdf") || !strings.Contains(buf.String(), "chunks=3") {
		t.Errorf("got %q", buf.String())
	}

	buf.Reset()
	if err := WriteDocumentList(&buf, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No documents") {
		t.Errorf("got %q", buf.String())
	}

	buf.Reset()
	if err := WriteDocumentList(&buf, docs, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Documents []*models.Document `json:"documents"`
	}
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Documents) != 1 || decoded.Documents[0].ID != "d1" {
		t.Errorf("decoded: %+v", decoded.Documents)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"empty", "", 5, ""},
		{"short", "hi", 5, "hi"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world", 5, "hello..."},
		{"maxLen zero", "ab", 0, "ab"},
		{"maxLen negative", "ab", -1, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.s, tt.maxLen)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		maxWords int
		want     string
	}{
		{"empty", "", 3, ""},
		{"few words", "one two", 3, "one two"},
		{"exact", "one two three", 3, "one two three"},
		{"more", "one two three four", 3, "one two three..."},
		{"single long", "word", 1, "word"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateWords(tt.s, tt.maxWords)
			if got != tt.want {
				t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.s, tt.maxWords, got, tt.want)
			}
		})
	}
}
