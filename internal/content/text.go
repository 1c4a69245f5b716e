package content

import (
	"strings"
	"unicode/utf8"
)

const titleMaxRunes = 120

// PlainText flattens the tree to text, one line per block.
func PlainText(t Tree) string {
	lines := make([]string, 0, 8)
	for _, block := range t.Blocks() {
		collectLines(block, &lines)
	}
	return strings.Join(lines, "\n")
}

// Title is the first heading's text, or the first non-empty block when there
// is no heading, truncated for display.
func Title(t Tree) string {
	var fallback string
	for _, block := range t.Blocks() {
		text := strings.TrimSpace(inlineText(block))
		if text == "" {
			continue
		}
		if kind, _ := block["type"].(string); kind == "heading" {
			return truncate(text)
		}
		if fallback == "" {
			fallback = text
		}
	}
	return truncate(fallback)
}

func collectLines(node map[string]any, lines *[]string) {
	switch kind, _ := node["type"].(string); kind {
	case "paragraph", "heading", "codeBlock":
		if text := inlineText(node); text != "" {
			*lines = append(*lines, text)
		}
	case "tableRow":
		cells := make([]string, 0, 4)
		for _, cell := range childNodes(node) {
			cells = append(cells, strings.TrimSpace(inlineText(cell)))
		}
		*lines = append(*lines, strings.Join(cells, "\t"))
	default:
		for _, child := range childNodes(node) {
			collectLines(child, lines)
		}
	}
}

func inlineText(node map[string]any) string {
	var b strings.Builder
	walk(node, func(n map[string]any) {
		switch kind, _ := n["type"].(string); kind {
		case "text":
			text, _ := n["text"].(string)
			b.WriteString(text)
		case "hardBreak":
			b.WriteString(" ")
		}
	})
	return b.String()
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= titleMaxRunes {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:titleMaxRunes])) + "…"
}
