package segment

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// PlainText extracts the readable prose from a markdown document. Code
// blocks, raw HTML and link destinations are dropped. Headings and list
// items are closed with a period when they lack a terminator so Split
// treats each one as its own unit.
func PlainText(markdown string) string {
	reader := text.NewReader([]byte(markdown))
	doc := goldmark.New().Parser().Parse(reader)

	var buf strings.Builder
	walk(doc, reader.Source(), &buf)

	return strings.TrimSpace(collapseSpaces(buf.String()))
}

func walk(node ast.Node, source []byte, buf *strings.Builder) {
	switch n := node.(type) {
	case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock, *ast.RawHTML:
		return

	case *ast.Text:
		buf.Write(n.Segment.Value(source))
		if n.SoftLineBreak() || n.HardLineBreak() {
			buf.WriteByte(' ')
		}
		return

	case *ast.String:
		buf.Write(n.Value)
		return

	case *ast.CodeSpan:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return

	case *ast.AutoLink:
		return

	case *ast.Heading, *ast.ListItem:
		walkChildren(n, source, buf)
		closeSentence(buf)
		return

	case *ast.Paragraph, *ast.TextBlock:
		walkChildren(n, source, buf)
		buf.WriteByte('\n')
		return
	}

	walkChildren(node, source, buf)
}

func walkChildren(node ast.Node, source []byte, buf *strings.Builder) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		walk(c, source, buf)
	}
}

// closeSentence appends a period unless the text so far already ends in a
// terminator.
func closeSentence(buf *strings.Builder) {
	s := strings.TrimRight(buf.String(), " \t\n")
	if s == "" {
		return
	}
	last := []rune(s)
	if !isTerminator(last[len(last)-1]) && !isCloser(last[len(last)-1]) {
		buf.Reset()
		buf.WriteString(s)
		buf.WriteByte('.')
	}
	buf.WriteByte('\n')
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
