package layout

import (
	"bytes"
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/markdave123-py/Docsift/internal/models"
)

// MarkdownAnalyzer walks the goldmark AST. Headings become their own lines
// without the leading #, GFM tables become formal tables and thematic breaks
// start a new page.
type MarkdownAnalyzer struct{}

func (a *MarkdownAnalyzer) Analyze(ctx context.Context, data []byte, _, _ string) (*models.AnalyzedDocument, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	root := md.Parser().Parse(text.NewReader(data))

	var b pageBuilder
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch node := n.(type) {
		case *ast.Heading:
			b.addLine(inlineText(node, data))
		case *east.Table:
			b.addTable(markdownRows(node, data))
		case *ast.ThematicBreak:
			if len(b.current().Lines) > 0 {
				b.newPage()
			}
		case *ast.List:
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				b.addText(blockText(item, data))
			}
		default:
			b.addText(blockText(n, data))
		}
	}
	return b.document(), nil
}

func markdownRows(t *east.Table, src []byte) [][]string {
	var rows [][]string
	for r := t.FirstChild(); r != nil; r = r.NextSibling() {
		var cells []string
		for c := r.FirstChild(); c != nil; c = c.NextSibling() {
			cells = append(cells, strings.TrimSpace(inlineText(c, src)))
		}
		rows = append(rows, cells)
	}
	return rows
}

// blockText returns the raw lines of leaf blocks (code, html) and the inline
// text of everything else, one source line per output line.
func blockText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	switch n.Kind() {
	case ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		return buf.String()
	}
	if n.Type() == ast.TypeBlock && n.HasChildren() && n.FirstChild().Type() == ast.TypeBlock {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(blockText(c, src))
		}
		return buf.String()
	}
	return inlineText(n, src)
}

func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.CodeSpan:
			buf.WriteString(inlineText(t, src))
		default:
			buf.WriteString(inlineText(c, src))
		}
	}
	return buf.String()
}
