package maperr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/topicmap/errors"
	"github.com/teranos/topicmap/topicmap"
)

func TestElementNotFound(t *testing.T) {
	err := ElementNotFound(topicmap.ID(17))

	assert.True(t, errors.IsElementNotFound(err))
	assert.Equal(t, CategoryLookup, err.Category)
	assert.Equal(t, SubcategoryElement, err.Subcategory)

	wrapped := errors.Wrap(err, "hide cascade")
	id, ok := ElementID(wrapped)
	require.True(t, ok)
	assert.Equal(t, "17", id)

	_, ok = ElementID(errors.New("plain"))
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"invariant", errors.Invariantf("double select"), CategoryInvariant},
		{"element", errors.Wrap(errors.ErrElementNotFound, "x"), CategoryLookup},
		{"not found", errors.NewNotFoundError("topic 1"), CategoryLookup},
		{"invalid request", errors.NewInvalidRequestError("bad json"), CategoryDirective},
		{"other", errors.New("boom"), CategoryInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err).Category)
		})
	}

	assert.Nil(t, Classify(nil))

	me := New(CategoryPersistence, errors.New("disk"), "")
	assert.Same(t, me, Classify(errors.Wrap(me, "write")))
}

func TestToUIMessageAndMeta(t *testing.T) {
	err := New(CategoryDirective, errors.New("unknown directive"), "").
		WithSubcategory(SubcategoryUnknown).
		WithContext("type", "FOO")

	assert.Equal(t, defaultMessages[CategoryDirective], err.ToUIMessage())

	meta := err.ToMeta()
	assert.Equal(t, "directive", meta["category"])
	assert.Equal(t, SubcategoryUnknown, meta["subcategory"])
	assert.Contains(t, meta["context"], "FOO")

	custom := New(CategoryRender, nil, "custom")
	assert.Equal(t, "custom", custom.Error())
	assert.Equal(t, "custom", custom.ToUIMessage())

	fields := err.ToLogFields()
	assert.Contains(t, fields, "error_category")
	assert.Contains(t, fields, "type")
}
