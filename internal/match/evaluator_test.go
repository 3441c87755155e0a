package match

import (
	mathrand "math/rand/v2"
	"testing"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iasenovets/side-effect-pir/internal/heparams"
	"github.com/iasenovets/side-effect-pir/internal/identity"
)

func TestEvaluateAllPreservesOrderAndMarksMatch(t *testing.T) {
	ctx, _, _, _, err := heparams.NewClientContext(heparams.ProfileStandard)
	require.NoError(t, err)

	ev, err := NewEvaluator(ctx)
	require.NoError(t, err)

	query, err := ctx.EncryptToken(45)
	require.NoError(t, err)

	tokens := []int{10, 45, 99}
	rows := make([]*rlwe.Ciphertext, len(tokens))
	for i, tok := range tokens {
		ct, err := ctx.EncryptToken(tok)
		require.NoError(t, err)
		rows[i] = ct
	}

	results, err := ev.EvaluateAll(query, rows)
	require.NoError(t, err)
	require.Len(t, results, len(tokens))

	for i, tok := range tokens {
		ct, err := ctx.Deserialize(results[i])
		require.NoError(t, err)
		slot0, err := ctx.DecryptToken(ct)
		require.NoError(t, err)
		if tok == 45 {
			assert.Equal(t, uint64(0), slot0, "matching row must decrypt to 0")
		} else {
			assert.NotEqual(t, uint64(0), slot0, "non-matching row must not decrypt to 0")
		}
	}
}

func TestEvaluateAllEmptyCandidateSet(t *testing.T) {
	ctx, _, _, _, err := heparams.NewClientContext(heparams.ProfileStandard)
	require.NoError(t, err)

	ev, err := NewEvaluator(ctx)
	require.NoError(t, err)

	query, err := ctx.EncryptToken(1)
	require.NoError(t, err)

	results, err := ev.EvaluateAll(query, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRandomizationVectorIsWithinBounds(t *testing.T) {
	ctx, _, _, _, err := heparams.NewClientContext(heparams.ProfileStandard)
	require.NoError(t, err)

	ev, err := NewEvaluator(ctx)
	require.NoError(t, err)

	vec := ev.randomizationVector(ctx.SlotCount())
	require.Len(t, vec, ctx.SlotCount())
	for _, v := range vec {
		assert.GreaterOrEqual(t, v, uint64(randLow))
		assert.LessOrEqual(t, v, uint64(randHigh))
	}
}

func TestRandomizationVectorsAreFresh(t *testing.T) {
	ctx, _, _, _, err := heparams.NewClientContext(heparams.ProfileStandard)
	require.NoError(t, err)

	ev, err := NewEvaluator(ctx)
	require.NoError(t, err)

	a := ev.randomizationVector(ctx.SlotCount())
	b := ev.randomizationVector(ctx.SlotCount())
	assert.NotEqual(t, a, b, "every row must draw an independent randomizer")
}

// TestMatchCorrectnessAcrossRandomPairings covers P1/P2 (spec §8): the
// result decrypts to 0 in slot 0 iff the query and row tokens are equal,
// checked across 1000 random (age, gender) pairings rather than a
// handful of fixed cases.
func TestMatchCorrectnessAcrossRandomPairings(t *testing.T) {
	const trials = 1000

	ctx, _, _, _, err := heparams.NewClientContext(heparams.ProfileStandard)
	require.NoError(t, err)
	ev, err := NewEvaluator(ctx)
	require.NoError(t, err)

	rng := mathrand.New(mathrand.NewPCG(1, 2))
	genders := []identity.Gender{identity.Male, identity.Female}

	for trial := 0; trial < trials; trial++ {
		ageQ := 1 + rng.IntN(99)
		ageR := 1 + rng.IntN(99)
		genderQ := genders[rng.IntN(2)]
		genderR := genders[rng.IntN(2)]

		tokQ, err := identity.Token(ageQ, genderQ)
		require.NoError(t, err)
		tokR, err := identity.Token(ageR, genderR)
		require.NoError(t, err)

		query, err := ctx.EncryptToken(tokQ)
		require.NoError(t, err)
		row, err := ctx.EncryptToken(tokR)
		require.NoError(t, err)

		results, err := ev.EvaluateAll(query, []*rlwe.Ciphertext{row})
		require.NoError(t, err)
		require.Len(t, results, 1)

		ct, err := ctx.Deserialize(results[0])
		require.NoError(t, err)
		slot0, err := ctx.DecryptToken(ct)
		require.NoError(t, err)

		wantMatch := tokQ == tokR
		gotMatch := slot0 == 0
		require.Equalf(t, wantMatch, gotMatch,
			"trial %d: ageQ=%d genderQ=%s ageR=%d genderR=%s tokQ=%d tokR=%d",
			trial, ageQ, genderQ, ageR, genderR, tokQ, tokR)
	}
}

// TestNonMatchSlotValueDistribution covers P3 (spec §8): for a fixed
// mismatched pair, slot 0 must never decrypt to 0, and across 10k
// independent randomizations no single non-zero value may recur with
// probability exceeding 1/1000 + epsilon.
func TestNonMatchSlotValueDistribution(t *testing.T) {
	const (
		trials  = 10000
		epsilon = 0.01
	)

	ctx, _, _, _, err := heparams.NewClientContext(heparams.ProfileStandard)
	require.NoError(t, err)
	ev, err := NewEvaluator(ctx)
	require.NoError(t, err)

	query, err := ctx.EncryptToken(10)
	require.NoError(t, err)
	row, err := ctx.EncryptToken(50)
	require.NoError(t, err)

	counts := make(map[uint64]int)
	for i := 0; i < trials; i++ {
		hexCt, err := ev.evaluateOne(query, row)
		require.NoError(t, err)
		ct, err := ctx.Deserialize(hexCt)
		require.NoError(t, err)
		slot0, err := ctx.DecryptToken(ct)
		require.NoError(t, err)
		require.NotEqual(t, uint64(0), slot0, "mismatched tokens must never decrypt to 0")
		counts[slot0]++
	}

	maxAllowed := int((1.0/1000 + epsilon) * float64(trials))
	for v, c := range counts {
		assert.LessOrEqualf(t, c, maxAllowed,
			"value %d recurred %d/%d times, exceeding the 1/1000+epsilon bound", v, c, trials)
	}
}
