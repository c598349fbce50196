package parser

import (
	"strings"

	"github.com/scipeer/reviewd/internal/guideline"
)

// builder assembles a section tree from a linear stream of headings and
// text blocks. Headings nest by level; text attaches to the most recent
// heading, or to the document root when none has been seen yet.
type builder struct {
	stack []frame
}

type frame struct {
	node  *guideline.Node
	level int
}

func newBuilder(rootTitle string) *builder {
	return &builder{stack: []frame{{node: &guideline.Node{Title: rootTitle}, level: 0}}}
}

func (b *builder) heading(level int, title string) {
	n := &guideline.Node{Title: title}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, n)
	b.stack = append(b.stack, frame{node: n, level: level})
}

func (b *builder) text(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	top := b.stack[len(b.stack)-1].node
	if top.Text != "" {
		top.Text += "\n\n" + s
		return
	}
	top.Text = s
}

// finish returns the accumulated top-level nodes. Text seen before the
// first heading becomes a leading untitled node; headingless documents
// collapse into a single node carrying all the text.
func (b *builder) finish() []*guideline.Node {
	root := b.stack[0].node
	if root.Text == "" {
		return root.Children
	}
	preamble := &guideline.Node{Text: root.Text}
	if len(root.Children) == 0 {
		return []*guideline.Node{preamble}
	}
	return append([]*guideline.Node{preamble}, root.Children...)
}
