package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New("test error")
	require.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestWrapf(t *testing.T) {
	original := New("original")
	wrapped := Wrapf(original, "wrapped: %d", 42)

	assert.Contains(t, wrapped.Error(), "wrapped: 42")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestWithHint(t *testing.T) {
	err := WithHint(New("error"), "select a topic first")

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Equal(t, "select a topic first", hints[0])
}

func TestInvariantf(t *testing.T) {
	err := Invariantf("topic %d is not selected", 7)
	require.Error(t, err)

	assert.True(t, IsInvariant(err))
	assert.True(t, IsAssertionFailure(err))
	assert.Contains(t, err.Error(), "topic 7 is not selected")
	assert.False(t, IsNotFoundError(err))

	wrapped := Wrap(err, "select")
	assert.True(t, IsInvariant(wrapped))
}

func TestNotFound(t *testing.T) {
	err := NewNotFoundError("topic %d", 3)
	assert.True(t, IsNotFoundError(err))
	assert.Contains(t, err.Error(), "topic 3")
	assert.False(t, IsNotFoundError(nil))
	assert.False(t, IsNotFoundError(fmt.Errorf("something else")))
}

func TestElementNotFound(t *testing.T) {
	err := Wrapf(ErrElementNotFound, "element %d", 12)
	assert.True(t, IsElementNotFound(err))
	assert.False(t, IsInvariant(err))
}

func TestStale(t *testing.T) {
	err := NewStaleError("detail %d superseded", 4)
	assert.True(t, IsStale(err))
	assert.False(t, IsStale(New("fresh")))
}

func TestIsAny(t *testing.T) {
	err := Wrap(ErrClosed, "writer")
	assert.True(t, IsAny(err, ErrNotFound, ErrClosed))
	assert.False(t, IsAny(err, ErrNotFound, ErrStale))
}
