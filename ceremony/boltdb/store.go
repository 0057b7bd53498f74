// Package boltdb implements the transcript archive on boltdb (native
// golang implementation). Transcripts are stored JSON-encoded in the db
// file, keyed by game id.
package boltdb

import (
	"context"
	"errors"
	"io"
	"path"
	"sync"

	bolt "go.etcd.io/bbolt"

	"github.com/fairdeck/fairdeck/ceremony"
	"github.com/fairdeck/fairdeck/log"
)

// BoltStore implements the ceremony.Store interface using the kv storage
// boltdb.
//
//nolint:gocritic// We do want to have a mutex here
type BoltStore struct {
	sync.Mutex
	db *bolt.DB

	log log.Logger
}

var transcriptBucket = []byte("transcripts")

// BoltFileName is the name of the file boltdb writes to
const BoltFileName = "fairdeck.db"

// BoltStoreOpenPerm is the permission we will use to read bolt store file from disk
const BoltStoreOpenPerm = 0660

// NewBoltStore returns a Store implementation using the boltdb storage engine.
func NewBoltStore(ctx context.Context, l log.Logger, folder string, opts *bolt.Options) (ceremony.Store, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	dbPath := path.Join(folder, BoltFileName)
	db, err := bolt.Open(dbPath, BoltStoreOpenPerm, opts)
	if err != nil {
		return nil, err
	}
	// create the bucket already; read-only handles cannot run an update
	// transaction, they get a guard on every view instead
	if opts == nil || !opts.ReadOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(transcriptBucket)
			return err
		})
	}

	return &BoltStore{
		log: l,
		db:  db,
	}, err
}

// errNoBucket is only reachable through a read-only open of a file that no
// writable store ever touched; writable opens create the bucket.
var errNoBucket = errors.New("boltdb: transcript bucket missing")

// Len performs a big scan over the bucket and is _very_ slow - use sparingly!
func (b *BoltStore) Len(ctx context.Context) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	var length = 0
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(transcriptBucket)
		if bucket == nil {
			return nil
		}
		// this `.Stats()` call is the particularly expensive one!
		length = bucket.Stats().KeyN
		return nil
	})
	if err != nil {
		b.log.Warnw("", "boltdb", "error getting length", "err", err)
	}
	return length, err
}

func (b *BoltStore) Close(context.Context) error {
	err := b.db.Close()
	if err != nil {
		b.log.Errorw("", "boltdb", "close", "err", err)
	}
	return err
}

// Put implements the Store interface. WARNING: It does NOT verify that this
// transcript is not already saved in the database or not and will overwrite it.
func (b *BoltStore) Put(ctx context.Context, t *ceremony.Transcript) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(transcriptBucket)
		key := ceremony.GameIDToBytes(t.GameID)
		buff, err := t.Marshal()
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		err = bucket.Put(key, buff)
		if err != nil {
			b.log.Debugw("storing transcript", "game", t.GameID, "err", err)
		}
		return err
	})
}

// Get returns the transcript saved under this game id
func (b *BoltStore) Get(ctx context.Context, gameID string) (*ceremony.Transcript, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	t := &ceremony.Transcript{}
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(transcriptBucket)
		if bucket == nil {
			return ceremony.ErrNoTranscript
		}
		v := bucket.Get(ceremony.GameIDToBytes(gameID))
		if v == nil {
			return ceremony.ErrNoTranscript
		}
		return t.Unmarshal(v)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (b *BoltStore) Cursor(ctx context.Context, fn func(context.Context, ceremony.Cursor) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(transcriptBucket)
		if bucket == nil {
			return errNoBucket
		}
		c := bucket.Cursor()
		return fn(ctx, &boltCursor{Cursor: c})
	})
	if err != nil {
		// We omit the ErrNoTranscript error as it is noisy and cursor.Next() will use it as flag value
		// for reaching the end of the database.
		if !errors.Is(err, ceremony.ErrNoTranscript) {
			b.log.Errorw("", "boltdb", "error getting cursor", "err", err)
		}
	}
	return err
}

// SaveTo saves the bolt database to an alternate file.
func (b *BoltStore) SaveTo(ctx context.Context, w io.Writer) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return b.db.View(func(tx *bolt.Tx) error {
		_, err := tx.WriteTo(w)
		return err
	})
}

type boltCursor struct {
	*bolt.Cursor
}

func (c *boltCursor) First(ctx context.Context) (*ceremony.Transcript, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	k, v := c.Cursor.First()
	if k == nil {
		return nil, ceremony.ErrNoTranscript
	}
	t := &ceremony.Transcript{}
	err := t.Unmarshal(v)
	return t, err
}

// Next returns the next value in the database for the given cursor.
// When reaching the end of the database, it emits the ErrNoTranscript error to flag that it finished the iteration.
func (c *boltCursor) Next(ctx context.Context) (*ceremony.Transcript, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	k, v := c.Cursor.Next()
	if k == nil {
		return nil, ceremony.ErrNoTranscript
	}
	t := &ceremony.Transcript{}
	err := t.Unmarshal(v)
	return t, err
}

func (c *boltCursor) Seek(ctx context.Context, gameID string) (*ceremony.Transcript, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	k, v := c.Cursor.Seek(ceremony.GameIDToBytes(gameID))
	if k == nil {
		return nil, ceremony.ErrNoTranscript
	}
	t := &ceremony.Transcript{}
	err := t.Unmarshal(v)
	return t, err
}

func (c *boltCursor) Last(ctx context.Context) (*ceremony.Transcript, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	k, v := c.Cursor.Last()
	if k == nil {
		return nil, ceremony.ErrNoTranscript
	}
	t := &ceremony.Transcript{}
	err := t.Unmarshal(v)
	return t, err
}
