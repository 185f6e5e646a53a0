package parser

import (
	"errors"
	"strings"
	"testing"
)

const photosynthesis = "Photosynthesis converts light energy into chemical energy stored in glucose."

func TestForFile(t *testing.T) {
	for _, name := range []string{"a.txt", "a.MD", "a.markdown", "a.csv", "a.html", "a.htm", "a.pdf", "a.docx"} {
		if _, err := ForFile(name); err != nil {
			t.Errorf("%s: unexpected error: %v", name, err)
		}
		if !IsSupportedExtension(name) {
			t.Errorf("%s: expected supported", name)
		}
	}
	if _, err := ForFile("slides.pptx"); err == nil {
		t.Error("expected error for pptx")
	}
	if IsSupportedExtension("noext") {
		t.Error("expected file without extension to be unsupported")
	}
}

func TestExtract_ReturnsPlainText(t *testing.T) {
	text, err := Extract(strings.NewReader("# Notes\n\n"+photosynthesis), "notes.md", DefaultMinChars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Notes") || !strings.Contains(text, photosynthesis) {
		t.Errorf("expected heading and body in text, got %q", text)
	}
}

func TestExtract_Failures(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		filename string
	}{
		{"too short", "tiny", "short.txt"},
		{"whitespace only", "   \n\n\t  ", "blank.txt"},
		{"unsupported format", photosynthesis, "slides.pptx"},
		{"broken pdf", "not a pdf at all", "broken.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(strings.NewReader(tt.input), tt.filename, DefaultMinChars)
			if !errors.Is(err, ErrExtractionFailed) {
				t.Fatalf("expected ErrExtractionFailed, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.filename) {
				t.Errorf("expected error to name %q, got %v", tt.filename, err)
			}
		})
	}
}

func TestExtract_ThresholdIsInclusive(t *testing.T) {
	exactly := strings.Repeat("x", 50)
	if _, err := Extract(strings.NewReader(exactly), "fifty.txt", 50); err != nil {
		t.Errorf("expected 50 characters to pass, got %v", err)
	}
	if _, err := Extract(strings.NewReader(exactly[:49]), "fortynine.txt", 50); err == nil {
		t.Error("expected 49 characters to fail")
	}
}

func TestExtract_ZeroMinUsesDefault(t *testing.T) {
	if _, err := Extract(strings.NewReader("short text"), "s.txt", 0); !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("expected default threshold to reject short text, got %v", err)
	}
}

func TestHTMLParser_SectionsAndSkippedElements(t *testing.T) {
	input := `<html><head><title>Lecture 3</title><style>p{}</style></head><body>
<nav><p>Home</p></nav>
<h1>Enzymes</h1><p>Enzymes lower activation energy.</p>
<h2>Inhibition</h2><ul><li>Competitive</li><li>Non-competitive</li></ul>
<script>var x = 1;</script>
</body></html>`
	tree, err := (&HTMLParser{}).Parse(strings.NewReader(input), "lecture.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "Lecture 3" {
		t.Errorf("expected <title> to win, got %q", tree.Title)
	}
	text := tree.PlainText()
	for _, want := range []string{"Enzymes", "activation energy", "Inhibition", "Competitive"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in text %q", want, text)
		}
	}
	for _, unwanted := range []string{"Home", "var x"} {
		if strings.Contains(text, unwanted) {
			t.Errorf("did not expect %q in text %q", unwanted, text)
		}
	}
	if len(tree.Children) != 1 || len(tree.Children[0].Children) != 1 {
		t.Errorf("expected h2 nested under h1, got %+v", tree.Children)
	}
}

func TestCSVParser_RowsAsHeaderValuePairs(t *testing.T) {
	input := "term,definition\nosmosis,water diffusion\nmitosis,cell division\n"
	tree, err := (&CSVParser{}).Parse(strings.NewReader(input), "glossary.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "glossary" {
		t.Errorf("expected title glossary, got %q", tree.Title)
	}
	want := "term: osmosis, definition: water diffusion\nterm: mitosis, definition: cell division"
	if got := tree.PlainText(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestCSVParser_BatchesRows(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("n\n")
	for i := 0; i < 45; i++ {
		sb.WriteString("row\n")
	}
	tree, err := (&CSVParser{}).Parse(strings.NewReader(sb.String()), "rows.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Children) != 3 {
		t.Errorf("expected 3 batches for 45 rows, got %d", len(tree.Children))
	}
}

func TestCSVParser_HeaderOnly(t *testing.T) {
	tree, err := (&CSVParser{}).Parse(strings.NewReader("a,b\n"), "h.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Children) != 0 {
		t.Errorf("expected no nodes, got %d", len(tree.Children))
	}
}
