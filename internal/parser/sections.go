package parser

import (
	"strings"

	"github.com/dgallion1/docquiz/internal/doctree"
)

// sectionBuilder nests body text under the most recent heading, the way
// markdown, HTML and DOCX documents express structure.
type sectionBuilder struct {
	root   doctree.DocNode
	open   []*doctree.DocNode
	levels []int
	buf    []string
}

func newSectionBuilder() *sectionBuilder {
	b := &sectionBuilder{}
	b.open = []*doctree.DocNode{&b.root}
	b.levels = []int{0}
	return b
}

// heading opens a new section at level (1 = top). Sections at the same or a
// deeper level are closed first.
func (b *sectionBuilder) heading(level int, title string) {
	b.flush()
	for len(b.open) > 1 && b.levels[len(b.levels)-1] >= level {
		b.open = b.open[:len(b.open)-1]
		b.levels = b.levels[:len(b.levels)-1]
	}
	node := &doctree.DocNode{Title: title}
	parent := b.open[len(b.open)-1]
	parent.Children = append(parent.Children, node)
	b.open = append(b.open, node)
	b.levels = append(b.levels, level)
}

// paragraph queues a block of body text for the current section.
func (b *sectionBuilder) paragraph(text string) {
	if text = strings.TrimSpace(text); text != "" {
		b.buf = append(b.buf, text)
	}
}

func (b *sectionBuilder) flush() {
	if len(b.buf) == 0 {
		return
	}
	top := b.open[len(b.open)-1]
	text := strings.Join(b.buf, "\n\n")
	if top.Text != "" {
		text = top.Text + "\n\n" + text
	}
	top.Text = text
	b.buf = b.buf[:0]
}

// tree finishes the document. Text seen before the first heading becomes a
// leading untitled node.
func (b *sectionBuilder) tree(title string) *doctree.DocTree {
	b.flush()
	t := &doctree.DocTree{Title: title}
	if b.root.Text != "" {
		t.Children = append(t.Children, &doctree.DocNode{Text: b.root.Text})
	}
	t.Children = append(t.Children, b.root.Children...)
	return t
}
