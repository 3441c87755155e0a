package match

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/iasenovets/side-effect-pir/internal/heparams"
)

// RadiusWindow builds the 2*radius+1 shifted copies of the query
// ciphertext ctQuery - radius, ..., ctQuery, ..., ctQuery + radius. It is
// the encrypted analogue of the original prototype's prepare_ciphertexts
// step, used by the "radius" profile (spec §9) to match a candidate's
// token against a window around the query token instead of exact
// equality.
func RadiusWindow(ctx *heparams.Context, ctQuery *rlwe.Ciphertext, radius int) ([]*rlwe.Ciphertext, error) {
	if radius < 0 {
		return nil, fmt.Errorf("match: radius must be non-negative")
	}

	window := make([]*rlwe.Ciphertext, 0, 2*radius+1)

	cur := ctQuery
	lower := make([]*rlwe.Ciphertext, radius)
	for i := 0; i < radius; i++ {
		next, err := ctx.SubScalar(cur, 1)
		if err != nil {
			return nil, fmt.Errorf("match: radius window (below): %w", err)
		}
		lower[radius-1-i] = next
		cur = next
	}
	window = append(window, lower...)
	window = append(window, ctQuery)

	cur = ctQuery
	for i := 0; i < radius; i++ {
		next, err := ctx.AddScalar(cur, 1)
		if err != nil {
			return nil, fmt.Errorf("match: radius window (above): %w", err)
		}
		window = append(window, next)
		cur = next
	}

	return window, nil
}

// EvaluateRadius matches a candidate row's identity ciphertext against
// every ciphertext in the window, multiplying the 2*radius+1 differences
// together with relinearization after each ciphertext-ciphertext multiply
// (spec §4.1: any ct-ct multiplication extension MUST relinearize). The
// result's slot 0 is 0 iff the row's token falls within ±radius of the
// query's token — the original prototype's radius search, corrected here
// to relinearize, which it omitted.
func EvaluateRadius(ctx *heparams.Context, window []*rlwe.Ciphertext, ctRow *rlwe.Ciphertext) (string, error) {
	if len(window) == 0 {
		return "", fmt.Errorf("match: empty radius window")
	}

	diffs := make([]*rlwe.Ciphertext, len(window))
	for i, w := range window {
		d, err := ctx.Sub(w, ctRow)
		if err != nil {
			return "", fmt.Errorf("match: radius sub: %w", err)
		}
		diffs[i] = d
	}

	result := diffs[0]
	for _, d := range diffs[1:] {
		next, err := ctx.MultiplyRelin(result, d)
		if err != nil {
			return "", fmt.Errorf("match: radius multiply_relin: %w", err)
		}
		result = next
	}

	return ctx.Serialize(result)
}
