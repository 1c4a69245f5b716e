package content

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

// ToHTML renders the tree as an HTML fragment. Unknown node types render
// their children; unknown marks are dropped.
func ToHTML(t Tree) string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	writeChildren(&b, map[string]any(t))
	return b.String()
}

func writeChildren(b *strings.Builder, node map[string]any) {
	for _, child := range childNodes(node) {
		writeNode(b, child)
	}
}

func wrap(b *strings.Builder, openTag, closeTag string, node map[string]any) {
	b.WriteString(openTag)
	writeChildren(b, node)
	b.WriteString(closeTag)
}

func writeNode(b *strings.Builder, node map[string]any) {
	attrs, _ := node["attrs"].(map[string]any)
	switch kind, _ := node["type"].(string); kind {
	case "paragraph":
		wrap(b, "<p>", "</p>\n", node)
	case "heading":
		level := attrInt(attrs, "level", 1)
		if level < 1 || level > 6 {
			level = 1
		}
		wrap(b, fmt.Sprintf("<h%d>", level), fmt.Sprintf("</h%d>\n", level), node)
	case "bulletList":
		wrap(b, "<ul>\n", "</ul>\n", node)
	case "orderedList":
		if start := attrInt(attrs, "start", 1); start != 1 {
			wrap(b, fmt.Sprintf("<ol start=\"%d\">\n", start), "</ol>\n", node)
			return
		}
		wrap(b, "<ol>\n", "</ol>\n", node)
	case "listItem":
		wrap(b, "<li>", "</li>\n", node)
	case "blockquote":
		wrap(b, "<blockquote>\n", "</blockquote>\n", node)
	case "codeBlock":
		b.WriteString("<pre><code>")
		b.WriteString(html.EscapeString(inlineText(node)))
		b.WriteString("</code></pre>\n")
	case "table":
		wrap(b, "<table>\n", "</table>\n", node)
	case "tableRow":
		wrap(b, "<tr>\n", "</tr>\n", node)
	case "tableCell":
		wrap(b, "<td>", "</td>\n", node)
	case "tableHeader":
		wrap(b, "<th>", "</th>\n", node)
	case "image":
		src := attrString(attrs, "src")
		if src == "" {
			return
		}
		fmt.Fprintf(b, `<img src="%s" alt="%s"`, html.EscapeString(src), html.EscapeString(attrString(attrs, "alt")))
		if title := attrString(attrs, "title"); title != "" {
			fmt.Fprintf(b, ` title="%s"`, html.EscapeString(title))
		}
		b.WriteString(">\n")
	case "hardBreak":
		b.WriteString("<br>")
	case "horizontalRule":
		b.WriteString("<hr>\n")
	case "text":
		text, _ := node["text"].(string)
		b.WriteString(markText(text, nodeMarks(node)))
	default:
		writeChildren(b, node)
	}
}

// markText applies marks so the first mark is the outermost element.
func markText(text string, marks []map[string]any) string {
	if text == "" {
		return ""
	}
	out := html.EscapeString(text)
	for i := len(marks) - 1; i >= 0; i-- {
		attrs, _ := marks[i]["attrs"].(map[string]any)
		switch kind, _ := marks[i]["type"].(string); kind {
		case "bold":
			out = "<strong>" + out + "</strong>"
		case "italic":
			out = "<em>" + out + "</em>"
		case "underline":
			out = "<u>" + out + "</u>"
		case "strike":
			out = "<s>" + out + "</s>"
		case "code":
			out = "<code>" + out + "</code>"
		case "highlight":
			out = "<mark>" + out + "</mark>"
		case "link":
			out = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(attrString(attrs, "href")), out)
		case "ratingMark":
			out = fmt.Sprintf(`<span class="rating" data-rating="%d">%s</span>`, attrInt(attrs, "rating", 0), out)
		}
	}
	return out
}

func attrString(attrs map[string]any, key string) string {
	value, _ := attrs[key].(string)
	return value
}

func attrInt(attrs map[string]any, key string, fallback int) int {
	switch value := attrs[key].(type) {
	case json.Number:
		if n, err := value.Int64(); err == nil {
			return int(n)
		}
		if f, err := value.Float64(); err == nil {
			return int(f)
		}
	case float64:
		return int(value)
	case int:
		return value
	}
	return fallback
}
