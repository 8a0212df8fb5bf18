package blob

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.TODO()
	store := NewMemoryStore()

	url, err := store.Put(ctx, "panophotos/a.jpg", strings.NewReader("jpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "memory://panophotos/a.jpg", url)
	assert.True(t, store.Has("panophotos/a.jpg"))

	require.NoError(t, store.Delete(ctx, "panophotos/a.jpg"))
	assert.False(t, store.Has("panophotos/a.jpg"))
	assert.ErrorIs(t, store.Delete(ctx, "panophotos/a.jpg"), ErrNotFound)
}
