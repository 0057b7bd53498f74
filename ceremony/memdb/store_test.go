package memdb

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairdeck/fairdeck/ceremony"
	"github.com/fairdeck/fairdeck/test"
)

func TestMemDBStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	sLen, err := store.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, sLen)

	t1 := test.NewTranscript(t, "game-a")
	t2 := test.NewTranscript(t, "game-b")
	require.NoError(t, store.Put(ctx, t1))
	require.NoError(t, store.Put(ctx, t2))
	require.NoError(t, store.Put(ctx, t2))

	sLen, err = store.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, sLen)

	got, err := store.Get(ctx, "game-b")
	require.NoError(t, err)
	require.Equal(t, t2.TranscriptHash, got.TranscriptHash)

	_, err = store.Get(ctx, "game-missing")
	require.ErrorIs(t, err, ceremony.ErrNoTranscript)
}

func TestMemDBCursorOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	for _, id := range []string{"game-c", "game-a", "game-b"} {
		require.NoError(t, store.Put(ctx, test.NewTranscript(t, id)))
	}

	var seen []string
	err := store.Cursor(ctx, func(ctx context.Context, c ceremony.Cursor) error {
		for tr, err := c.First(ctx); err == nil; tr, err = c.Next(ctx) {
			seen = append(seen, tr.GameID)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"game-a", "game-b", "game-c"}, seen)
}

func TestMemDBSaveTo(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Put(ctx, test.NewTranscript(t, "game-a")))

	var out bytes.Buffer
	require.NoError(t, store.SaveTo(ctx, &out))
	require.Contains(t, out.String(), "game-a")
}
