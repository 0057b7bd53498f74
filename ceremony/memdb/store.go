// Package memdb implements the transcript archive in memory. It is meant
// for tests and ephemeral deployments; nothing survives a restart.
package memdb

import (
	"context"
	"io"
	"sort"
	"sync"

	json "github.com/nikkolasg/hexjson"

	"github.com/fairdeck/fairdeck/ceremony"
)

// Store holds transcripts in a slice sorted by game id.
type Store struct {
	storeMtx *sync.RWMutex
	store    []ceremony.Transcript
}

// NewStore returns an empty in-memory transcript store.
func NewStore() *Store {
	return &Store{
		storeMtx: &sync.RWMutex{},
		store:    []ceremony.Transcript{},
	}
}

func (m *Store) Len(_ context.Context) (int, error) {
	m.storeMtx.RLock()
	defer m.storeMtx.RUnlock()

	return len(m.store), nil
}

func (m *Store) Put(_ context.Context, t *ceremony.Transcript) error {
	m.storeMtx.Lock()
	defer m.storeMtx.Unlock()
	defer func() {
		sort.Slice(m.store, func(i, j int) bool {
			return m.store[i].GameID < m.store[j].GameID
		})
	}()

	for idx, st := range m.store {
		if st.GameID == t.GameID {
			m.store[idx] = *t
			return nil
		}
	}

	m.store = append(m.store, *t)
	return nil
}

func (m *Store) Get(_ context.Context, gameID string) (*ceremony.Transcript, error) {
	m.storeMtx.RLock()
	defer m.storeMtx.RUnlock()

	for _, t := range m.store {
		if t.GameID == gameID {
			result := t
			return &result, nil
		}
	}

	return nil, ceremony.ErrNoTranscript
}

func (m *Store) Cursor(ctx context.Context, f func(context.Context, ceremony.Cursor) error) error {
	cursor := &memDBCursor{
		s: m,
	}
	return f(ctx, cursor)
}

// Close is a noop
func (m *Store) Close(_ context.Context) error {
	return nil
}

// SaveTo writes the whole archive as one JSON array.
func (m *Store) SaveTo(_ context.Context, w io.Writer) error {
	m.storeMtx.RLock()
	defer m.storeMtx.RUnlock()

	buff, err := json.Marshal(m.store)
	if err != nil {
		return err
	}
	_, err = w.Write(buff)
	return err
}

type memDBCursor struct {
	s   *Store
	pos int
}

func (m *memDBCursor) First(_ context.Context) (*ceremony.Transcript, error) {
	m.s.storeMtx.RLock()
	defer m.s.storeMtx.RUnlock()

	if len(m.s.store) == 0 {
		return nil, ceremony.ErrNoTranscript
	}

	m.pos = 0
	result := m.s.store[m.pos]
	return &result, nil
}

func (m *memDBCursor) Next(_ context.Context) (*ceremony.Transcript, error) {
	m.s.storeMtx.RLock()
	defer m.s.storeMtx.RUnlock()

	if len(m.s.store) == 0 {
		return nil, ceremony.ErrNoTranscript
	}

	m.pos++
	if m.pos >= len(m.s.store) {
		return nil, ceremony.ErrNoTranscript
	}

	result := m.s.store[m.pos]
	return &result, nil
}

func (m *memDBCursor) Seek(_ context.Context, gameID string) (*ceremony.Transcript, error) {
	m.s.storeMtx.RLock()
	defer m.s.storeMtx.RUnlock()

	for idx, t := range m.s.store {
		if t.GameID != gameID {
			continue
		}

		m.pos = idx
		result := t
		return &result, nil
	}

	return nil, ceremony.ErrNoTranscript
}

func (m *memDBCursor) Last(_ context.Context) (*ceremony.Transcript, error) {
	m.s.storeMtx.RLock()
	defer m.s.storeMtx.RUnlock()

	if len(m.s.store) == 0 {
		return nil, ceremony.ErrNoTranscript
	}

	m.pos = len(m.s.store) - 1
	result := m.s.store[m.pos]
	return &result, nil
}
