package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryLoadMissingKey(t *testing.T) {
	r := NewInMemory()
	_, ok, err := r.Load("nope")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemorySaveThenLoad(t *testing.T) {
	r := NewInMemory()
	assert.NoError(t, r.Save("k", 42))

	v, ok, err := r.Load("k")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestInMemorySaveOverwrites(t *testing.T) {
	r := NewInMemory()
	assert.NoError(t, r.Save("k", 1))
	assert.NoError(t, r.Save("k", 2))

	v, _, _ := r.Load("k")
	assert.Equal(t, 2, v)
}
