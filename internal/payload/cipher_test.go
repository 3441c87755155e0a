package payload

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCipher(t *testing.T) *Cipher {
	t.Helper()
	key := bytes.Repeat([]byte{0x11}, KeySize)
	nonce := bytes.Repeat([]byte{0x22}, NonceSize)
	c, err := New(key, nonce)
	require.NoError(t, err)
	return c
}

func TestSealOpenRoundTrip(t *testing.T) {
	c := testCipher(t)
	want := "Stop 42"

	sealed, err := c.SealString(want)
	require.NoError(t, err)
	assert.NotEqual(t, want, string(sealed))

	got, err := c.OpenString(sealed)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSealIsDeterministic(t *testing.T) {
	c := testCipher(t)
	a, err := c.SealString("Jane Doe")
	require.NoError(t, err)
	b, err := c.SealString("Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, a, b, "every field restarts the CTR stream at counter 0, so equal plaintexts seal identically")
}

func TestNewRejectsWrongSizes(t *testing.T) {
	_, err := New(make([]byte, 8), make([]byte, NonceSize))
	assert.Error(t, err)

	_, err = New(make([]byte, KeySize), make([]byte, 4))
	assert.Error(t, err)
}

func TestSealHandlesArbitraryBinary(t *testing.T) {
	c := testCipher(t)
	plaintext := make([]byte, 256)
	_, err := rand.Read(plaintext)
	require.NoError(t, err)

	sealed, err := c.Seal(plaintext)
	require.NoError(t, err)
	opened, err := c.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}
