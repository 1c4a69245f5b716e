package content

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreStartsLocked(t *testing.T) {
	s := NewStore(nil)
	assert.True(t, s.Locked())

	err := s.Replace(Raw(sampleDoc))
	assert.True(t, errors.Is(err, ErrReadOnly))

	out, err := s.Serialize()
	require.NoError(t, err)
	want, _ := Serialize(DefaultTree())
	assert.Equal(t, want, out)
}

func TestStoreReplaceWhenUnlocked(t *testing.T) {
	s := NewStore(nil)
	s.SetLocked(false)

	require.NoError(t, s.Replace(Raw(sampleDoc)))
	out, err := s.Serialize()
	require.NoError(t, err)
	assert.Equal(t, sampleDoc, out)
}

func TestStoreRejectsMalformedEdit(t *testing.T) {
	initial, err := Normalize(Raw(sampleDoc))
	require.NoError(t, err)
	s := NewStore(initial)
	s.SetLocked(false)

	err = s.Replace(Raw(`{"type":`))
	assert.True(t, errors.Is(err, ErrMalformed))

	out, _ := s.Serialize()
	assert.Equal(t, sampleDoc, out)
}

func TestStoreRejectsEmptyEdit(t *testing.T) {
	initial, err := Normalize(Raw(sampleDoc))
	require.NoError(t, err)
	s := NewStore(initial)
	s.SetLocked(false)

	for name, in := range map[string]Input{
		"absent":       Absent(),
		"blank raw":    Raw("  "),
		"nil value":    Structured(nil),
		"json null":    FromJSON([]byte("null")),
		"missing json": FromJSON(nil),
	} {
		err := s.Replace(in)
		assert.True(t, errors.Is(err, ErrEmptyEdit), name)
		assert.True(t, errors.Is(err, ErrMalformed), name)
	}

	out, err := s.Serialize()
	require.NoError(t, err)
	assert.Equal(t, sampleDoc, out)
}

func TestStoreTreeIsACopy(t *testing.T) {
	s := NewStore(nil)
	tree := s.Tree()
	tree["content"] = []any{}

	assert.Len(t, s.Tree().Blocks(), 1)
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore(nil)
	s.SetLocked(false)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Replace(Raw(sampleDoc))
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Serialize()
		}()
	}
	wg.Wait()

	out, _ := s.Serialize()
	assert.Equal(t, sampleDoc, out)
}
