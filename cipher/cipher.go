// Package cipher encrypts game state at rest. Every game gets its own
// AES-256 key derived from the deployment master key, so a leaked game key
// exposes one game only, and rotating the master cuts off every previously
// derived key at once.
package cipher

import (
	"crypto/aes"
	gocipher "crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/hkdf"

	"github.com/fairdeck/fairdeck/deck"
	"github.com/fairdeck/fairdeck/entropy"
	"github.com/fairdeck/fairdeck/key"
)

// keyInfoPrefix is the HKDF info prefix. The version tag makes room for a
// future derivation change without silently colliding with v1 keys.
const keyInfoPrefix = "fairdeck:v1:game:"

// NonceLength is the AES-GCM nonce size in bytes.
const NonceLength = 12

// ErrAuthentication is returned when a ciphertext fails authentication. It
// covers tampered ciphertexts, wrong game ids and keys from before a
// rotation; the cause is deliberately not distinguishable.
var ErrAuthentication = errors.New("cipher: message authentication failed")

// EncryptedPayload is the wire form of an encrypted game state.
type EncryptedPayload struct {
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
}

// StateCipher derives per-game keys from a master key and encrypts game
// state with them. All methods are safe for concurrent use; RotateKey takes
// effect atomically with respect to every other call.
type StateCipher struct {
	mu         sync.RWMutex
	master     []byte
	generation uint64

	random io.Reader
}

// Option configures a StateCipher.
type Option func(*StateCipher)

// WithRandom overrides the randomness source used for nonces and key
// rotation. Tests only.
func WithRandom(r io.Reader) Option {
	return func(s *StateCipher) {
		s.random = r
	}
}

// New returns a StateCipher rooted at the given master key material,
// starting at generation zero.
func New(m *key.Material, opts ...Option) (*StateCipher, error) {
	if m == nil || len(m.Master) != key.MasterKeyLength {
		return nil, fmt.Errorf("cipher: master key must be %d bytes", key.MasterKeyLength)
	}
	master := make([]byte, len(m.Master))
	copy(master, m.Master)
	s := &StateCipher{master: master}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Generation returns the current key generation. It starts at zero and goes
// up by one on every rotation.
func (s *StateCipher) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// DeriveGameKey returns the AES-256 key for the given game under the current
// master key and generation. The derivation is deterministic, so the key can
// be recomputed at any time instead of being stored.
func (s *StateCipher) DeriveGameKey(gameID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deriveKey(s.master, gameID, s.generation)
}

func deriveKey(master []byte, gameID string, generation uint64) ([]byte, error) {
	info := keyInfoPrefix + gameID + ":gen:" + strconv.FormatUint(generation, 10)
	reader := hkdf.New(sha256.New, master, nil, []byte(info))
	gameKey := make([]byte, 32)
	if _, err := io.ReadFull(reader, gameKey); err != nil {
		return nil, fmt.Errorf("cipher: deriving game key: %w", err)
	}
	return gameKey, nil
}

// Encrypt seals the plaintext under the game's derived key with a fresh
// nonce. The game id is bound as associated data, so a payload moved to
// another game fails authentication even under an identical key.
func (s *StateCipher) Encrypt(gameID string, plaintext []byte) (*EncryptedPayload, error) {
	s.mu.RLock()
	gameKey, err := deriveKey(s.master, gameID, s.generation)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	aesgcm, err := newGCM(gameKey)
	if err != nil {
		return nil, err
	}
	nonce, err := entropy.GetRandom(s.random, NonceLength)
	if err != nil {
		return nil, fmt.Errorf("cipher: reading nonce: %w", err)
	}
	ciphertext := aesgcm.Seal(nil, nonce, plaintext, []byte(gameID))
	return &EncryptedPayload{
		Ciphertext: ciphertext,
		Nonce:      nonce,
	}, nil
}

// Decrypt opens a payload sealed by Encrypt for the same game. Any
// tampering, any cross-game replay and any payload from a rotated-away
// generation comes back as ErrAuthentication.
func (s *StateCipher) Decrypt(gameID string, p *EncryptedPayload) ([]byte, error) {
	if p == nil || len(p.Nonce) != NonceLength {
		return nil, ErrAuthentication
	}
	s.mu.RLock()
	gameKey, err := deriveKey(s.master, gameID, s.generation)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	aesgcm, err := newGCM(gameKey)
	if err != nil {
		return nil, err
	}
	plaintext, err := aesgcm.Open(nil, p.Nonce, p.Ciphertext, []byte(gameID))
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

// EncryptDeckState seals a deck order for the given game. The plaintext is
// the canonical deck serialization, so any holder of the game key can verify
// the order against a commitment after decrypting.
func (s *StateCipher) EncryptDeckState(gameID string, d deck.Deck) (*EncryptedPayload, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return s.Encrypt(gameID, []byte(d.Serialize()))
}

// DecryptDeckState opens a payload sealed by EncryptDeckState and parses the
// deck back out of it.
func (s *StateCipher) DecryptDeckState(gameID string, p *EncryptedPayload) (deck.Deck, error) {
	plaintext, err := s.Decrypt(gameID, p)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(string(plaintext), "|")
	d := make(deck.Deck, 0, len(parts))
	for _, part := range parts {
		c, err := deck.ParseCard(part)
		if err != nil {
			return nil, fmt.Errorf("cipher: decrypted deck state: %w", err)
		}
		d = append(d, c)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// RotateKey replaces the master key with fresh randomness and bumps the
// generation. Everything encrypted before the rotation stops decrypting;
// that is the point, a stolen backup dies with the old master. The new
// generation is returned.
func (s *StateCipher) RotateKey() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	master, err := entropy.GetRandom(s.random, key.MasterKeyLength)
	if err != nil {
		return 0, fmt.Errorf("cipher: reading rotation entropy: %w", err)
	}
	s.master = master
	s.generation++
	return s.generation, nil
}

func newGCM(gameKey []byte) (gocipher.AEAD, error) {
	block, err := aes.NewCipher(gameKey)
	if err != nil {
		return nil, err
	}
	return gocipher.NewGCM(block)
}
