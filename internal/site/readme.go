package site

import (
	"os"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// extractReadmeTitle parses a markdown file and returns the text of its
// first level-1 heading, or empty string when no such heading exists.
// The title feeds the synthesized site description so the portal listing
// shows something better than the repository slug.
func extractReadmeTitle(path string) string {
	source, err := os.ReadFile(path)
	if err != nil {
		return ""
	}

	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level != 1 {
			return ast.WalkContinue, nil
		}
		var buf []byte
		for c := heading.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				buf = append(buf, t.Segment.Value(source)...)
			}
		}
		title = string(buf)
		return ast.WalkStop, nil
	})
	return title
}
