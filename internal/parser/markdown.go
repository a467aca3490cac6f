package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/docrank/internal/document"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. ATX/setext headings are
// emitted as bold blocks with a synthetic size for their level; paragraphs made
// only of strong emphasis are emitted as bold body text.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var w blockWriter
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			w.add(string(node.Text(src)), HeadingSize(node.Level), true)
		case *ast.Paragraph:
			w.add(extractText(n, src), BodySize, isStrongOnly(n, src))
		default:
			w.add(extractText(n, src), BodySize, false)
		}
	}

	return w.document(filename), nil
}

// isStrongOnly reports whether every non-blank inline child is strong emphasis.
func isStrongOnly(n ast.Node, src []byte) bool {
	seen := false
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok && strings.TrimSpace(string(t.Value(src))) == "" {
			continue
		}
		em, ok := c.(*ast.Emphasis)
		if !ok || em.Level < 2 {
			return false
		}
		seen = true
	}
	return seen
}

// extractText gets the text content of a goldmark AST node. Leaf blocks such
// as code blocks carry their text in source lines; everything else is built
// from inline children, with nested blocks (list items) on their own lines.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && !n.HasChildren() {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			s := extractText(c, src)
			if c.Type() == ast.TypeBlock && buf.Len() > 0 && s != "" {
				buf.WriteByte('\n')
			}
			buf.WriteString(s)
		}
	}
	return strings.TrimSpace(buf.String())
}
