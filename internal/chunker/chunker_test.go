package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/dgallion1/docquiz/internal/question"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

func TestChunk_ReconstructsWordSequence(t *testing.T) {
	inputs := []string{
		"one two three four five six seven",
		"  leading and\ttrailing\n\nwhitespace   ",
		words(1001),
		"single",
	}
	for _, text := range inputs {
		for _, size := range []int{1, 2, 3, 7, 50, 5000} {
			chunks := Chunk(text, size)
			got := strings.Join(chunks, " ")
			want := strings.Join(strings.Fields(text), " ")
			if got != want {
				t.Errorf("size=%d: reconstruction mismatch\n got %q\nwant %q", size, got, want)
			}
			for i, c := range chunks {
				if n := WordCount(c); n > size || n == 0 {
					t.Errorf("size=%d chunk %d: %d words", size, i, n)
				}
			}
		}
	}
}

func TestChunk_SingleUnitWhenCapCoversText(t *testing.T) {
	text := words(42)
	for _, size := range []int{42, 43, 1000} {
		if got := Chunk(text, size); len(got) != 1 {
			t.Errorf("size=%d: expected 1 chunk, got %d", size, len(got))
		}
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n \n"} {
		for _, size := range []int{1, 10} {
			if got := Chunk(text, size); len(got) != 0 {
				t.Errorf("Chunk(%q, %d): expected no chunks, got %v", text, size, got)
			}
		}
	}
}

func TestChunk_RemainderWindow(t *testing.T) {
	chunks := Chunk(words(7), 3)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[2] != "w6" {
		t.Errorf("expected remainder %q, got %q", "w6", chunks[2])
	}
}

func TestChunk_Idempotent(t *testing.T) {
	text := words(250)
	a := Chunk(text, 40)
	b := Chunk(text, 40)
	if strings.Join(a, "|") != strings.Join(b, "|") {
		t.Error("expected identical output for identical input")
	}
}

func TestChunk_NonPositiveSizeTreatedAsOne(t *testing.T) {
	if got := Chunk("a b c", 0); len(got) != 3 {
		t.Errorf("expected 3 single-word chunks, got %v", got)
	}
}

func TestUnitSize(t *testing.T) {
	tests := []struct {
		total, target, want int
	}{
		{1000, 5, 200},
		{350, 5, 70},
		{10000, 5, 300},
		{3, 5, 1},
		{0, 5, 1},
		{100, 0, 100},
	}
	for _, tt := range tests {
		if got := UnitSize(tt.total, tt.target); got != tt.want {
			t.Errorf("UnitSize(%d, %d) = %d, want %d", tt.total, tt.target, got, tt.want)
		}
	}
}

func TestSplit_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		words     int
		target    int
		wantUnits int
		wantWords int
	}{
		{"1000 words for 5 questions", 1000, 5, 5, 200},
		{"350 words for 5 questions", 350, 5, 5, 70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := question.Configuration{TargetQuestionCount: tt.target, Difficulty: question.Medium}
			units := Split(Document{Source: "doc.pdf", Text: words(tt.words)}, cfg)
			if len(units) != tt.wantUnits {
				t.Fatalf("expected %d units, got %d", tt.wantUnits, len(units))
			}
			for i, u := range units {
				if u.Words != tt.wantWords {
					t.Errorf("unit %d: expected %d words, got %d", i, tt.wantWords, u.Words)
				}
				if u.Source != "doc.pdf" || u.Position != i {
					t.Errorf("unit %d: unexpected source/position %q/%d", i, u.Source, u.Position)
				}
			}
		})
	}
}

func TestSplit_ShortDocumentYieldsFewerUnits(t *testing.T) {
	cfg := question.Configuration{TargetQuestionCount: 5, Difficulty: question.Easy}
	units := Split(Document{Source: "short", Text: "only three words"}, cfg)
	if len(units) != 3 {
		t.Fatalf("expected 3 one-word units, got %d", len(units))
	}
}

func TestSplit_NormalizesUnitText(t *testing.T) {
	cfg := question.Configuration{TargetQuestionCount: 1, Difficulty: question.Easy}
	units := Split(Document{Source: "q", Text: "it’s “quoted” text"}, cfg)
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
	if want := `it's "quoted" text`; units[0].Text != want {
		t.Errorf("expected %q, got %q", want, units[0].Text)
	}
}

func TestFlatten_AssignsRequestWideIndex(t *testing.T) {
	cfg := question.Configuration{TargetQuestionCount: 2, Difficulty: question.Hard}
	a := Split(Document{Source: "a", Text: words(10)}, cfg)
	b := Split(Document{Source: "b", Text: words(6)}, cfg)
	flat := Flatten(a, b)
	if len(flat) != 4 {
		t.Fatalf("expected 4 units, got %d", len(flat))
	}
	for i, u := range flat {
		if u.Index != i {
			t.Errorf("unit %d: expected index %d, got %d", i, i, u.Index)
		}
	}
	if flat[2].Source != "b" || flat[2].Position != 0 {
		t.Errorf("expected third unit to be b[0], got %s[%d]", flat[2].Source, flat[2].Position)
	}
}

func TestEstimateTokens(t *testing.T) {
	if EstimateTokens("") != 0 {
		t.Error("expected 0 tokens for empty text")
	}
	if got := EstimateTokens(words(300)); got != 399 {
		t.Errorf("expected 399 tokens, got %d", got)
	}
}
