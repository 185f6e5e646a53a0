package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docquiz/internal/doctree"
)

// csvBatchRows is how many data rows share one node.
const csvBatchRows = 20

// CSVParser handles CSV files. The first row is treated as headers and each
// data row is rendered as "header: value" pairs so the text reads as prose.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	tree := &doctree.DocTree{Title: trimExt(filename, ".csv")}
	if len(records) < 2 {
		return tree, nil
	}
	headers, rows := records[0], records[1:]

	for start := 0; start < len(rows); start += csvBatchRows {
		end := min(start+csvBatchRows, len(rows))
		lines := make([]string, 0, end-start)
		for _, row := range rows[start:end] {
			lines = append(lines, csvRowText(headers, row))
		}
		tree.Children = append(tree.Children, &doctree.DocNode{Text: strings.Join(lines, "\n")})
	}
	return tree, nil
}

func csvRowText(headers, row []string) string {
	cells := make([]string, len(row))
	for i, cell := range row {
		if i < len(headers) && headers[i] != "" {
			cells[i] = headers[i] + ": " + cell
		} else {
			cells[i] = cell
		}
	}
	return strings.Join(cells, ", ")
}
