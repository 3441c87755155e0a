// Package match implements the Match Evaluator (spec §4.4): for each
// candidate row it homomorphically computes a ciphertext that decrypts to
// 0 in slot 0 iff the row's identity token equals the query's, and to a
// uniformly unhelpful value otherwise.
package match

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mathrand "math/rand/v2"
	"sync"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/iasenovets/side-effect-pir/internal/heparams"
)

// randLow and randHigh bound the per-slot randomization values (spec
// §4.4: "independent uniform samples from [1, 10000]").
const (
	randLow  = 1
	randHigh = 10000
)

// Result is one candidate's evaluation outcome: the result ciphertext,
// hex-serialized per the wire format (spec §4.4/§4.6).
type Result struct {
	Index       int // positional index in the candidate set, not the Store
	CiphertextB string
}

// Evaluator runs the match test against a read-only FHE context. It is
// safe for concurrent use: the only mutable state is its secure RNG,
// guarded by a mutex, and each row draws fresh samples from it.
type Evaluator struct {
	ctx *heparams.Context
	mu  sync.Mutex
	rng *mathrand.Rand
}

// NewEvaluator builds an Evaluator around ctx, seeding its randomizer from
// a secure source (spec §5: "RNG... must be seeded from a secure source").
func NewEvaluator(ctx *heparams.Context) (*Evaluator, error) {
	var seed1, seed2 uint64
	var err error
	if seed1, err = secureUint64(); err != nil {
		return nil, err
	}
	if seed2, err = secureUint64(); err != nil {
		return nil, err
	}
	return &Evaluator{
		ctx: ctx,
		rng: mathrand.New(mathrand.NewPCG(seed1, seed2)),
	}, nil
}

func secureUint64() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("match: seeding RNG: %w", err)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// randomizationVector draws a fresh vector of length n with independent
// uniform samples in [randLow, randHigh]. Must never be shared or reused
// across rows (spec §4.4 invariant).
func (e *Evaluator) randomizationVector(n int) []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	vec := make([]uint64, n)
	for i := range vec {
		vec[i] = uint64(randLow + e.rng.IntN(randHigh-randLow+1))
	}
	return vec
}

// evaluateOne performs the depth-1 match test for a single candidate row:
// d = sub(ctQuery, ctRow); y = multiply_plain(d, freshRandomVector).
func (e *Evaluator) evaluateOne(ctQuery, ctRow *rlwe.Ciphertext) (string, error) {
	d, err := e.ctx.Sub(ctQuery, ctRow)
	if err != nil {
		return "", fmt.Errorf("match: sub: %w", err)
	}

	randVec := e.randomizationVector(e.ctx.SlotCount())
	pRand, err := e.ctx.EncodeVector(randVec)
	if err != nil {
		return "", fmt.Errorf("match: encode randomizer: %w", err)
	}

	y, err := e.ctx.MultiplyPlain(d, pRand)
	if err != nil {
		return "", fmt.Errorf("match: multiply_plain: %w", err)
	}

	return e.ctx.Serialize(y)
}

// EvaluateAll runs the match test over every candidate row in candidateCt,
// preserving order (spec §4.4: "No early termination", "Order
// preservation"). Independent rows are evaluated concurrently, bounded by
// a worker pool, since each produces an independent ciphertext and the
// only shared state is the read-only Context (spec §5).
func (e *Evaluator) EvaluateAll(ctQuery *rlwe.Ciphertext, candidateCt []*rlwe.Ciphertext) ([]string, error) {
	out := make([]string, len(candidateCt))
	errs := make([]error, len(candidateCt))

	const maxWorkers = 8
	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup

	for i, ctRow := range candidateCt {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, ctRow *rlwe.Ciphertext) {
			defer wg.Done()
			defer func() { <-sem }()
			hexCt, err := e.evaluateOne(ctQuery, ctRow)
			if err != nil {
				errs[i] = err
				return
			}
			out[i] = hexCt
		}(i, ctRow)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
