package layout

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/markdave123-py/Docsift/internal/models"
)

// HTMLAnalyzer walks the parsed HTML body. Headings, paragraphs and list
// items become lines, <table> becomes a formal table and <hr> starts a new
// page. Scripts, styles and navigation chrome are skipped.
type HTMLAnalyzer struct{}

func (a *HTMLAnalyzer) Analyze(ctx context.Context, data []byte, _, _ string) (*models.AnalyzedDocument, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var b pageBuilder
	var walk func(*html.Node) error
	walk = func(n *html.Node) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch n.Type {
		case html.TextNode:
			b.addText(n.Data)
			return nil
		case html.ElementNode:
			switch {
			case skipped[n.Data]:
				return nil
			case n.Data == "table":
				b.addTable(htmlRows(n))
				return nil
			case n.Data == "hr":
				if len(b.current().Lines) > 0 {
					b.newPage()
				}
				return nil
			case leafBlocks[n.Data] || !hasBlock(n):
				b.addText(textContent(n, n.Data == "pre"))
				return nil
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}

	root := findBody(doc)
	if root == nil {
		root = doc
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return b.document(), nil
}

var skipped = map[string]bool{
	"script": true, "style": true, "nav": true, "footer": true,
	"header": true, "head": true, "noscript": true, "template": true,
}

// leafBlocks hold one paragraph of text each.
var leafBlocks = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"p": true, "li": true, "blockquote": true, "pre": true,
	"dt": true, "dd": true, "caption": true, "figcaption": true,
}

// hasBlock reports whether anything under n starts its own line.
func hasBlock(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if leafBlocks[c.Data] || skipped[c.Data] || c.Data == "table" || c.Data == "hr" ||
			c.Data == "div" || c.Data == "section" || c.Data == "article" || c.Data == "ul" || c.Data == "ol" ||
			hasBlock(c) {
			return true
		}
	}
	return false
}

func htmlRows(table *html.Node) [][]string {
	var rows [][]string
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cells = append(cells, textContent(c, false))
				}
			}
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(table)
	return rows
}

// textContent flattens the text under n. Whitespace runs collapse to one
// space; <br> breaks the line, as do source newlines when keepLines is set.
func textContent(n *html.Node, keepLines bool) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			buf.WriteByte(lineBreak)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)

	raw := buf.String()
	if keepLines {
		raw = strings.ReplaceAll(raw, "\n", string(lineBreak))
	}
	var out []string
	for _, l := range strings.Split(raw, string(lineBreak)) {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// lineBreak marks a <br> while text is collected.
const lineBreak = '\x00'

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
