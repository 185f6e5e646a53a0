package chunker

import (
	"strings"

	"github.com/dgallion1/docquiz/internal/question"
)

// MaxUnitWords caps the size of a single generation unit regardless of how
// few questions are requested.
const MaxUnitWords = 300

// TextUnit is one bounded slice of a document, submitted as a single
// generation request.
type TextUnit struct {
	Text     string // Normalized unit text.
	Source   string // Document identifier.
	Index    int    // Position in the flattened request, across documents.
	Position int    // Position within the source document.
	Words    int    // Raw word count the unit was cut from.
}

// Document is extracted plain text tagged with its source identifier.
type Document struct {
	Source string
	Text   string
}

// Chunk splits text into consecutive windows of at most maxUnitWords
// whitespace-delimited words, each joined with a single space. The last
// window holds the remainder. Text with no words yields nil.
func Chunk(text string, maxUnitWords int) []string {
	if maxUnitWords < 1 {
		maxUnitWords = 1
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+maxUnitWords-1)/maxUnitWords)
	for start := 0; start < len(words); start += maxUnitWords {
		end := min(start+maxUnitWords, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

// WordCount returns the number of whitespace-delimited words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// UnitSize picks the unit size for a document of totalWords words so that a
// request for targetQuestions questions gets at least that many units when
// the document is long enough: min(MaxUnitWords, totalWords/targetQuestions),
// never below 1.
// Difficulty does not influence the size.
func UnitSize(totalWords, targetQuestions int) int {
	if targetQuestions < 1 {
		targetQuestions = 1
	}
	size := min(MaxUnitWords, totalWords/targetQuestions)
	if size < 1 {
		size = 1
	}
	return size
}

// Split sizes and chunks one document for the given configuration. Unit
// boundaries are computed on the raw words; the delivered text is normalized.
// Index is left at the per-document position; Flatten renumbers it.
func Split(doc Document, cfg question.Configuration) []TextUnit {
	total := WordCount(doc.Text)
	if total == 0 {
		return nil
	}
	parts := Chunk(doc.Text, UnitSize(total, cfg.TargetQuestionCount))

	units := make([]TextUnit, 0, len(parts))
	for i, part := range parts {
		units = append(units, TextUnit{
			Text:     Normalize(part),
			Source:   doc.Source,
			Index:    i,
			Position: i,
			Words:    WordCount(part),
		})
	}
	return units
}

// Flatten concatenates per-document units into one ordered sequence and
// assigns each unit its request-wide Index.
func Flatten(perDoc ...[]TextUnit) []TextUnit {
	var out []TextUnit
	for _, units := range perDoc {
		for _, u := range units {
			u.Index = len(out)
			out = append(out, u)
		}
	}
	return out
}
