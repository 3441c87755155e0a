package gendata

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iasenovets/side-effect-pir/internal/heparams"
	"github.com/iasenovets/side-effect-pir/internal/payload"
)

func testCipher(t *testing.T) *payload.Cipher {
	t.Helper()
	key := bytes.Repeat([]byte{0x09}, payload.KeySize)
	nonce := bytes.Repeat([]byte{0x07}, payload.NonceSize)
	c, err := payload.New(key, nonce)
	require.NoError(t, err)
	return c
}

func TestGenerateProducesRequestedCount(t *testing.T) {
	ctx, _, _, _, err := heparams.NewClientContext(heparams.ProfileStandard)
	require.NoError(t, err)
	cipher := testCipher(t)

	store, err := Generate(DefaultOptions(10), ctx, cipher)
	require.NoError(t, err)
	assert.Equal(t, 10, store.Len())
}

func TestGenerateRecordsDecryptAndSealCorrectly(t *testing.T) {
	ctx, _, _, _, err := heparams.NewClientContext(heparams.ProfileStandard)
	require.NoError(t, err)
	cipher := testCipher(t)

	store, err := Generate(DefaultOptions(5), ctx, cipher)
	require.NoError(t, err)

	for i := 0; i < store.Len(); i++ {
		r := store.At(i)
		assert.NotEmpty(t, r.Medicines)
		assert.NotEmpty(t, r.SideEffects)

		ct, err := store.IdentityCiphertext(i, ctx)
		require.NoError(t, err)
		m, err := ctx.DecryptToken(ct)
		require.NoError(t, err)
		assert.True(t, (m >= 6 && m <= 104) || (m >= 134 && m <= 232), "token %d must fall in a valid age-derived range", m)

		treatment, err := cipher.OpenString(r.TreatmentSealed)
		require.NoError(t, err)
		assert.NotEmpty(t, treatment)
	}
}

func TestGenerateRejectsNonPositiveCount(t *testing.T) {
	ctx, _, _, _, err := heparams.NewClientContext(heparams.ProfileStandard)
	require.NoError(t, err)
	cipher := testCipher(t)

	_, err = Generate(DefaultOptions(0), ctx, cipher)
	assert.Error(t, err)
}
