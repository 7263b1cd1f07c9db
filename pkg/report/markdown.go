package report

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Heading is one heading of a rendered document with its generated anchor id
type Heading struct {
	Level int
	Text  string
	ID    string
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
}

// toHTML renders markdown and returns its headings in document order.
func toHTML(markdown []byte) ([]byte, []Heading, error) {
	md := newMarkdown()
	doc := md.Parser().Parse(text.NewReader(markdown))
	headings := collectHeadings(doc, markdown)

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, markdown, doc); err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), headings, nil
}

func collectHeadings(doc ast.Node, source []byte) []Heading {
	var headings []Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}

		var buf bytes.Buffer
		for child := heading.FirstChild(); child != nil; child = child.NextSibling() {
			if textNode, ok := child.(*ast.Text); ok {
				buf.Write(textNode.Segment.Value(source))
			}
		}
		h := Heading{Level: heading.Level, Text: buf.String()}
		if id, found := heading.AttributeString("id"); found {
			if b, ok := id.([]byte); ok {
				h.ID = string(b)
			}
		}
		if h.Text != "" {
			headings = append(headings, h)
		}
		return ast.WalkSkipChildren, nil
	})
	return headings
}
