package extract

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New()

// markdownText renders the document as plain lines. Headings lose their
// markers, list items keep "- " or "n) " so they still read as bullets.
func markdownText(data []byte) (string, error) {
	doc := md.Parser().Parse(text.NewReader(data))

	var buf strings.Builder
	marker := ""

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.ListItem:
			marker = "- "
			if list, ok := node.Parent().(*ast.List); ok && list.IsOrdered() {
				marker = fmt.Sprintf("%d) ", list.Start+itemIndex(node))
			}
		case *ast.Heading, *ast.Paragraph, *ast.TextBlock:
			buf.WriteString(marker)
			marker = ""
			buf.WriteString(inlineText(n, data))
			if _, tight := n.(*ast.TextBlock); tight {
				buf.WriteString("\n")
			} else {
				buf.WriteString("\n\n")
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(data))
			}
			buf.WriteString("\n")
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("walk markdown: %w", err)
	}

	return buf.String(), nil
}

func itemIndex(item ast.Node) int {
	i := 0
	for s := item.PreviousSibling(); s != nil; s = s.PreviousSibling() {
		i++
	}
	return i
}

// inlineText concatenates the text of inline descendants, keeping line breaks
func inlineText(n ast.Node, source []byte) string {
	var buf strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteString("\n")
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			buf.WriteString(inlineText(c, source))
		}
	}
	return buf.String()
}
