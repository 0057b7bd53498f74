package cipher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairdeck/fairdeck/deck"
	"github.com/fairdeck/fairdeck/key"
)

func newTestCipher(t *testing.T) *StateCipher {
	t.Helper()
	m, err := key.NewMaterial(nil)
	require.NoError(t, err)
	s, err := New(m)
	require.NoError(t, err)
	return s
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	s := newTestCipher(t)
	plaintext := []byte("river card: hearts:J")

	p, err := s.Encrypt("game-1", plaintext)
	require.NoError(t, err)
	require.Len(t, p.Nonce, NonceLength)
	require.NotEqual(t, plaintext, p.Ciphertext)

	out, err := s.Decrypt("game-1", p)
	require.NoError(t, err)
	require.Equal(t, plaintext, out)
}

func TestEncryptUsesFreshNonces(t *testing.T) {
	s := newTestCipher(t)
	a, err := s.Encrypt("game-1", []byte("same plaintext"))
	require.NoError(t, err)
	b, err := s.Encrypt("game-1", []byte("same plaintext"))
	require.NoError(t, err)
	require.NotEqual(t, a.Nonce, b.Nonce)
	require.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

func TestDecryptWrongGameFails(t *testing.T) {
	s := newTestCipher(t)
	p, err := s.Encrypt("game-1", []byte("secret"))
	require.NoError(t, err)
	_, err = s.Decrypt("game-2", p)
	require.ErrorIs(t, err, ErrAuthentication)
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	s := newTestCipher(t)
	p, err := s.Encrypt("game-1", []byte("secret"))
	require.NoError(t, err)

	p.Ciphertext[0] ^= 0x01
	_, err = s.Decrypt("game-1", p)
	require.ErrorIs(t, err, ErrAuthentication)
}

func TestDecryptBadNonceFails(t *testing.T) {
	s := newTestCipher(t)
	p, err := s.Encrypt("game-1", []byte("secret"))
	require.NoError(t, err)

	p.Nonce = p.Nonce[:NonceLength-1]
	_, err = s.Decrypt("game-1", p)
	require.ErrorIs(t, err, ErrAuthentication)

	_, err = s.Decrypt("game-1", nil)
	require.ErrorIs(t, err, ErrAuthentication)
}

func TestDeriveGameKeyDeterministicPerGame(t *testing.T) {
	s := newTestCipher(t)
	k1, err := s.DeriveGameKey("game-1")
	require.NoError(t, err)
	k1again, err := s.DeriveGameKey("game-1")
	require.NoError(t, err)
	k2, err := s.DeriveGameKey("game-2")
	require.NoError(t, err)

	require.Equal(t, k1, k1again)
	require.NotEqual(t, k1, k2)
	require.Len(t, k1, 32)
}

func TestRotateKeyCutsOffOldCiphertexts(t *testing.T) {
	s := newTestCipher(t)
	p, err := s.Encrypt("game-1", []byte("pre-rotation"))
	require.NoError(t, err)
	oldKey, err := s.DeriveGameKey("game-1")
	require.NoError(t, err)

	gen, err := s.RotateKey()
	require.NoError(t, err)
	require.Equal(t, uint64(1), gen)
	require.Equal(t, uint64(1), s.Generation())

	_, err = s.Decrypt("game-1", p)
	require.ErrorIs(t, err, ErrAuthentication)

	newKey, err := s.DeriveGameKey("game-1")
	require.NoError(t, err)
	require.NotEqual(t, oldKey, newKey)

	// Fresh encryptions keep working under the new generation.
	p2, err := s.Encrypt("game-1", []byte("post-rotation"))
	require.NoError(t, err)
	out, err := s.Decrypt("game-1", p2)
	require.NoError(t, err)
	require.Equal(t, []byte("post-rotation"), out)
}

func TestDeckStateRoundTrip(t *testing.T) {
	s := newTestCipher(t)
	shuffled, _, err := deck.Shuffle(deck.New(), "deck-state-seed")
	require.NoError(t, err)

	p, err := s.EncryptDeckState("game-1", shuffled)
	require.NoError(t, err)

	out, err := s.DecryptDeckState("game-1", p)
	require.NoError(t, err)
	require.True(t, shuffled.Equal(out))
}

func TestEncryptDeckStateRejectsInvalidDeck(t *testing.T) {
	s := newTestCipher(t)
	d := deck.New()
	d[0] = d[1]
	_, err := s.EncryptDeckState("game-1", d)
	require.ErrorIs(t, err, deck.ErrInvalidDeck)
}
