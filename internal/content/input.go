package content

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Kind tags which form an Input arrived in.
type Kind int

const (
	KindAbsent Kind = iota
	KindRaw
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindStructured:
		return "structured"
	default:
		return "absent"
	}
}

// Input is content as received, before normalization.
type Input struct {
	kind  Kind
	raw   string
	value any
}

// Raw wraps a JSON-encoded content string.
func Raw(s string) Input {
	return Input{kind: KindRaw, raw: s}
}

// Structured wraps an already-decoded value: a Tree, a map, json.RawMessage,
// []byte, or any value that marshals to a JSON object.
func Structured(v any) Input {
	return Input{kind: KindStructured, value: v}
}

// Absent marks that no content was provided.
func Absent() Input {
	return Input{kind: KindAbsent}
}

func (in Input) Kind() Kind { return in.kind }

// Empty reports whether the input carries no content at all: absent, a blank
// string, or a nil value.
func (in Input) Empty() bool {
	switch in.kind {
	case KindRaw:
		return strings.TrimSpace(in.raw) == ""
	case KindStructured:
		return in.value == nil
	default:
		return true
	}
}

// FromJSON classifies a request field: a JSON string is Raw, null or an empty
// field is Absent, anything else is Structured.
func FromJSON(data json.RawMessage) Input {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Absent()
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return Raw(s)
		}
	}
	return Structured(json.RawMessage(trimmed))
}
