// Package key holds the per-deployment master key material that every game
// key is derived from, plus the file based store used to persist it between
// restarts. Game keys themselves are never stored; they are re-derived from
// the master on demand.
package key

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fairdeck/fairdeck/entropy"
)

// MasterKeyLength is the byte length of the master key, sized for the
// AES-256 keys derived from it.
const MasterKeyLength = 32

// Material is the root secret of a deployment. All per-game encryption keys
// are derived from Master, so it must only ever touch disk through the
// secure store.
type Material struct {
	Master    []byte
	CreatedAt time.Time
}

// NewMaterial returns fresh master key material read from the given entropy
// source, or from the system CSPRNG when source is nil.
func NewMaterial(source io.Reader) (*Material, error) {
	master, err := entropy.GetRandom(source, MasterKeyLength)
	if err != nil {
		return nil, fmt.Errorf("key: reading master entropy: %w", err)
	}
	return &Material{
		Master:    master,
		CreatedAt: time.Now(),
	}, nil
}

// Equal reports whether both materials hold the same master key. The
// comparison is not constant time and must only be used in tests and
// tooling, never in a decision about untrusted input.
func (m *Material) Equal(other *Material) bool {
	return bytes.Equal(m.Master, other.Master)
}

// MaterialTOML is the TOML-able version of the master key material.
type MaterialTOML struct {
	Master    string
	CreatedAt string
}

// TOML returns a struct that can be marshalled using a TOML-encoding library.
func (m *Material) TOML() interface{} {
	return &MaterialTOML{
		Master:    hex.EncodeToString(m.Master),
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

// FromTOML constructs the material from an unmarshalled TOML structure.
func (m *Material) FromTOML(i interface{}) error {
	mtoml, ok := i.(*MaterialTOML)
	if !ok {
		return errors.New("key: material can't decode toml from non MaterialTOML struct")
	}
	master, err := hex.DecodeString(mtoml.Master)
	if err != nil {
		return fmt.Errorf("key: decoding master key: %w", err)
	}
	if len(master) != MasterKeyLength {
		return fmt.Errorf("key: master key is %d bytes, expected %d", len(master), MasterKeyLength)
	}
	createdAt, err := time.Parse(time.RFC3339, mtoml.CreatedAt)
	if err != nil {
		return fmt.Errorf("key: decoding creation time: %w", err)
	}
	m.Master = master
	m.CreatedAt = createdAt
	return nil
}

// TOMLValue returns an empty TOML-compatible interface value.
func (m *Material) TOMLValue() interface{} {
	return &MaterialTOML{}
}
