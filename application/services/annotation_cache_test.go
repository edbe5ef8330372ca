package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phrasely-backend/domain/core/aggregates"
	"phrasely-backend/domain/core/entities"
	"phrasely-backend/domain/core/valueobjects"
)

func docWithWord(t *testing.T, word string) *aggregates.Document {
	t.Helper()
	doc := aggregates.NewDocument()
	seg, err := entities.NewSentence([]valueobjects.WordToken{
		valueobjects.NewWordToken(word, valueobjects.TagNone),
	})
	require.NoError(t, err)
	doc.AppendSegment(seg)
	return doc
}

func TestAnnotationCache_EvictsOldestInsertion(t *testing.T) {
	cache := NewAnnotationCache(3)

	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("key-%d", i)
		cache.Put(key, docWithWord(t, key))
	}
	require.Equal(t, 3, cache.Len())

	// A hit must not refresh the entry's position.
	_, ok := cache.Get("key-0")
	require.True(t, ok)

	cache.Put("key-3", docWithWord(t, "key-3"))

	_, ok = cache.Get("key-0")
	assert.False(t, ok, "oldest insertion evicted even after a recent hit")
	for _, key := range []string{"key-1", "key-2", "key-3"} {
		_, ok := cache.Get(key)
		assert.True(t, ok, "%s should survive", key)
	}
}

func TestAnnotationCache_RePutKeepsInsertionPosition(t *testing.T) {
	cache := NewAnnotationCache(2)

	cache.Put("a", docWithWord(t, "a1"))
	cache.Put("b", docWithWord(t, "b"))
	cache.Put("a", docWithWord(t, "a2")) // overwrite, position unchanged

	cache.Put("c", docWithWord(t, "c"))

	_, ok := cache.Get("a")
	assert.False(t, ok, "a kept its original position and was evicted first")

	got, ok := cache.Get("b")
	require.True(t, ok)
	tok, _ := got.Segments()[0].Token(0)
	assert.Equal(t, "b", tok.Word)
}

func TestAnnotationCache_GetReturnsClone(t *testing.T) {
	cache := NewAnnotationCache(2)
	cache.Put("k", docWithWord(t, "original"))

	first, ok := cache.Get("k")
	require.True(t, ok)
	require.NoError(t, first.ReplaceWord(0, 0, "mutated"))

	second, ok := cache.Get("k")
	require.True(t, ok)
	tok, _ := second.Segments()[0].Token(0)
	assert.Equal(t, "original", tok.Word, "cached entries are immutable")
}

func TestAnnotationCache_ZeroCapacityDisables(t *testing.T) {
	cache := NewAnnotationCache(0)
	cache.Put("k", docWithWord(t, "x"))

	_, ok := cache.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}
