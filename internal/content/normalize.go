package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformed reports that raw content could not be decoded.
	ErrMalformed = errors.New("malformed content")
	// ErrNotDocument reports a decoded value whose root is not a doc node.
	ErrNotDocument = errors.New("content root is not a document")
)

// Normalize converts an Input into a Tree. It always returns a usable tree:
// when the input cannot be used the default tree is returned together with
// an error describing what was discarded, for the caller to log.
func Normalize(in Input) (Tree, error) {
	switch in.kind {
	case KindRaw:
		if strings.TrimSpace(in.raw) == "" {
			return DefaultTree(), nil
		}
		return fromBytes([]byte(in.raw))
	case KindStructured:
		return fromValue(in.value)
	default:
		return DefaultTree(), nil
	}
}

func fromValue(v any) (Tree, error) {
	switch typed := v.(type) {
	case nil:
		return DefaultTree(), nil
	case Tree:
		return fromDecoded(map[string]any(typed))
	case map[string]any:
		return fromDecoded(typed)
	case json.RawMessage:
		return fromBytes(typed)
	case []byte:
		return fromBytes(typed)
	case string:
		return Normalize(Raw(typed))
	default:
		data, err := json.Marshal(typed)
		if err != nil {
			return DefaultTree(), fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return fromBytes(data)
	}
}

// fromDecoded re-encodes the map so the tree shares nothing with the caller
// and numbers end up as json.Number.
func fromDecoded(m map[string]any) (Tree, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return DefaultTree(), fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fromBytes(data)
}

func fromBytes(data []byte) (Tree, error) {
	decoded, err := decodeValue(data)
	if err != nil {
		return DefaultTree(), fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	root, ok := decoded.(map[string]any)
	if !ok || !isDocument(root) {
		return DefaultTree(), ErrNotDocument
	}
	return Tree(root), nil
}

func isDocument(root map[string]any) bool {
	if kind, _ := root["type"].(string); kind != "doc" {
		return false
	}
	_, ok := root["content"].([]any)
	return ok
}
