package chunker

import "strings"

var replacer = strings.NewReplacer(
	"\u00a0", " ", // no-break space
	"\u2018", "'",
	"\u2019", "'",
	"\u201c", `"`,
	"\u201d", `"`,
	"\u2013", "-", // en dash
	"\u2014", "-", // em dash
	"\u00ad", "", // soft hyphen
)

// Normalize applies the fixed character substitutions used before text is
// sent for generation and collapses every whitespace run to one space.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	return strings.Join(strings.Fields(replacer.Replace(text)), " ")
}
