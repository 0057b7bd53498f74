package ceremony

import (
	"context"
	"io"
)

// Store archives sealed transcripts so they can be served to auditors long
// after the live ceremony state is gone. Only sealed, immutable transcripts
// go in; in-flight ceremony state is never persisted.
type Store interface {
	Len(ctx context.Context) (int, error)
	Put(ctx context.Context, t *Transcript) error
	Get(ctx context.Context, gameID string) (*Transcript, error)
	Cursor(ctx context.Context, fn func(context.Context, Cursor) error) error
	SaveTo(ctx context.Context, w io.Writer) error
	Close(ctx context.Context) error
}

// Cursor iterates over stored transcripts in game id order. Next returns
// ErrNoTranscript when the iteration is done.
type Cursor interface {
	First(ctx context.Context) (*Transcript, error)
	Next(ctx context.Context) (*Transcript, error)
	Seek(ctx context.Context, gameID string) (*Transcript, error)
	Last(ctx context.Context) (*Transcript, error)
}

// GameIDToBytes turns a game id into the key form used by stores. Keys sort
// lexicographically, which gives cursors a stable iteration order.
func GameIDToBytes(gameID string) []byte {
	return []byte(gameID)
}
