package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPtrDeref(t *testing.T) {
	p := Ptr(80)
	assert.Equal(t, 80, *p)
	assert.Equal(t, 80, Deref(p, 1))
	assert.Equal(t, 1, Deref[int](nil, 1))
}
