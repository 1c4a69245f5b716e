// Package content holds the editable rich-text body of a document session.
//
// Every way content can arrive (a JSON string, an already-decoded value, or
// nothing at all) is folded into an Input and normalized once into a Tree.
// Code past ingestion only ever sees a Tree whose root is a doc node.
package content

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Tree is a normalized content tree. The root always has type "doc" and a
// content array. Numbers are kept as json.Number so encoding is lossless.
type Tree map[string]any

// DefaultTree is the placeholder used when content is absent or unusable.
func DefaultTree() Tree {
	return Tree{
		"type": "doc",
		"content": []any{
			map[string]any{"type": "paragraph"},
		},
	}
}

// Blocks returns the top-level block nodes.
func (t Tree) Blocks() []map[string]any {
	return childNodes(map[string]any(t))
}

// Clone returns a deep copy.
func (t Tree) Clone() Tree {
	if t == nil {
		return nil
	}
	return Tree(cloneMap(t))
}

// MarshalJSON emits canonical JSON: sorted keys and no HTML escaping.
func (t Tree) MarshalJSON() ([]byte, error) {
	return encodeCanonical(map[string]any(t))
}

// Serialize returns the canonical encoding used for snapshot comparison.
func Serialize(t Tree) (string, error) {
	if t == nil {
		return "", fmt.Errorf("serialize content: nil tree")
	}
	data, err := encodeCanonical(map[string]any(t))
	if err != nil {
		return "", fmt.Errorf("serialize content: %w", err)
	}
	return string(data), nil
}

func encodeCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func decodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return out, nil
}

func childNodes(node map[string]any) []map[string]any {
	items, ok := node["content"].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if child, ok := item.(map[string]any); ok {
			out = append(out, child)
		}
	}
	return out
}

func walk(node map[string]any, visit func(map[string]any)) {
	visit(node)
	for _, child := range childNodes(node) {
		walk(child, visit)
	}
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return cloneMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return typed
	}
}
