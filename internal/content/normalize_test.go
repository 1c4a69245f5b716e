package content

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{"content":[{"attrs":{"level":2},"content":[{"text":"Findings","type":"text"}],"type":"heading"},{"content":[{"marks":[{"attrs":{"rating":4},"type":"ratingMark"}],"text":"Strong signal <b>","type":"text"}],"type":"paragraph"}],"type":"doc"}`

func TestNormalizeRawDocumentIsUnchanged(t *testing.T) {
	tree, err := Normalize(Raw(sampleDoc))
	require.NoError(t, err)

	out, err := Serialize(tree)
	require.NoError(t, err)
	assert.Equal(t, sampleDoc, out)
}

func TestNormalizeKeepsNumbersExact(t *testing.T) {
	doc := `{"content":[{"attrs":{"id":12345678901234567890,"width":0.1},"type":"image"}],"type":"doc"}`
	tree, err := Normalize(Raw(doc))
	require.NoError(t, err)

	out, err := Serialize(tree)
	require.NoError(t, err)
	assert.Equal(t, doc, out)
}

func TestNormalizeMalformedRawFallsBack(t *testing.T) {
	inputs := []string{
		`{"type":"doc","content":[`,
		`not json at all`,
		`{"type":"doc"} trailing`,
		`[1,2,3]`,
		`"just a string"`,
		`{"type":"paragraph","content":[]}`,
		`{"type":"doc","content":"nope"}`,
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			var tree Tree
			var err error
			require.NotPanics(t, func() { tree, err = Normalize(Raw(input)) })
			require.Error(t, err)
			if diff := cmp.Diff(DefaultTree(), tree); diff != "" {
				t.Fatalf("expected default tree (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeErrorKinds(t *testing.T) {
	_, err := Normalize(Raw(`{`))
	assert.True(t, errors.Is(err, ErrMalformed))

	_, err = Normalize(Raw(`{"type":"table"}`))
	assert.True(t, errors.Is(err, ErrNotDocument))
}

func TestNormalizeAbsentAndBlank(t *testing.T) {
	for _, in := range []Input{Absent(), Raw(""), Raw("   "), Structured(nil)} {
		tree, err := Normalize(in)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(DefaultTree(), tree))
	}
}

func TestNormalizeStructuredShapes(t *testing.T) {
	want, err := Normalize(Raw(sampleDoc))
	require.NoError(t, err)

	var asMap map[string]any
	require.NoError(t, json.Unmarshal([]byte(sampleDoc), &asMap))

	type node struct {
		Type    string `json:"type"`
		Content []any  `json:"content"`
	}

	cases := map[string]Input{
		"map":        Structured(asMap),
		"raw":        Structured(json.RawMessage(sampleDoc)),
		"bytes":      Structured([]byte(sampleDoc)),
		"tree":       Structured(want),
		"string":     Structured(sampleDoc),
		"from json":  FromJSON(json.RawMessage(sampleDoc)),
		"json quote": FromJSON(mustMarshal(t, sampleDoc)),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := Normalize(in)
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(want, got))
		})
	}

	got, err := Normalize(Structured(node{Type: "doc", Content: []any{}}))
	require.NoError(t, err)
	assert.Equal(t, "doc", got["type"])
}

func TestNormalizeStructuredRejectsNonDocuments(t *testing.T) {
	for _, v := range []any{
		map[string]any{"type": "doc"},
		map[string]any{"content": []any{}},
		42,
		[]any{"doc"},
	} {
		tree, err := Normalize(Structured(v))
		assert.Error(t, err)
		assert.Empty(t, cmp.Diff(DefaultTree(), tree))
	}
}

func TestNormalizeDoesNotAliasCaller(t *testing.T) {
	src := map[string]any{"type": "doc", "content": []any{map[string]any{"type": "paragraph"}}}
	tree, err := Normalize(Structured(src))
	require.NoError(t, err)

	src["content"] = []any{}
	assert.Len(t, tree.Blocks(), 1)
}

func TestFromJSONClassification(t *testing.T) {
	assert.Equal(t, KindAbsent, FromJSON(nil).Kind())
	assert.Equal(t, KindAbsent, FromJSON(json.RawMessage(" null ")).Kind())
	assert.Equal(t, KindRaw, FromJSON(json.RawMessage(`"{}"`)).Kind())
	assert.Equal(t, KindStructured, FromJSON(json.RawMessage(`{"type":"doc"}`)).Kind())
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
