package content

import "sort"

var knownNodes = map[string]bool{
	"doc":            true,
	"paragraph":      true,
	"heading":        true,
	"text":           true,
	"table":          true,
	"tableRow":       true,
	"tableCell":      true,
	"tableHeader":    true,
	"image":          true,
	"bulletList":     true,
	"orderedList":    true,
	"listItem":       true,
	"blockquote":     true,
	"codeBlock":      true,
	"hardBreak":      true,
	"horizontalRule": true,
}

var knownMarks = map[string]bool{
	"bold":       true,
	"italic":     true,
	"underline":  true,
	"strike":     true,
	"code":       true,
	"link":       true,
	"highlight":  true,
	"ratingMark": true,
}

func IsKnownNode(nodeType string) bool { return knownNodes[nodeType] }
func IsKnownMark(markType string) bool { return knownMarks[markType] }

// UnknownMarks lists, sorted and deduplicated, mark types on text nodes that
// the editor schema does not define. Ingestion accepts such trees; this is
// for diagnostics.
func UnknownMarks(t Tree) []string {
	seen := map[string]bool{}
	walk(map[string]any(t), func(node map[string]any) {
		for _, mark := range nodeMarks(node) {
			if kind, _ := mark["type"].(string); !knownMarks[kind] {
				seen[kind] = true
			}
		}
	})
	return sortedKeys(seen)
}

// UnknownNodes lists node types outside the schema.
func UnknownNodes(t Tree) []string {
	seen := map[string]bool{}
	walk(map[string]any(t), func(node map[string]any) {
		if kind, _ := node["type"].(string); !knownNodes[kind] {
			seen[kind] = true
		}
	})
	return sortedKeys(seen)
}

func nodeMarks(node map[string]any) []map[string]any {
	items, ok := node["marks"].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if mark, ok := item.(map[string]any); ok {
			out = append(out, mark)
		}
	}
	return out
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
