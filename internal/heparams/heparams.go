// Package heparams implements the FHE Context component (spec §4.1): it
// holds the BFV-profile scheme parameters, batch encoder, key material and
// ciphertext (de)serialization used by every other component in this
// module.
//
// The scheme is realized with lattigo's bgv package configured with a
// single plaintext modulus and scale 1 — lattigo's documented way of
// getting BFV-style integer arithmetic (no rescaling, depth tracked only
// through the coefficient modulus chain), the same configuration the
// teacher repo's ParamsLiteral128/createParams helpers already use.
package heparams

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/bgv"
)

// Profile selects one of the two parameter sets named in spec §9.
type Profile string

const (
	// ProfileStandard is the depth-1 profile (degree 4096): sub + one
	// multiply_plain, no relinearization keys required.
	ProfileStandard Profile = "standard"

	// ProfileRadius is the extended profile (degree 8192) used by the
	// radius match test, which performs ciphertext-ciphertext
	// multiplication and therefore needs relinearization keys.
	ProfileRadius Profile = "radius"
)

// plaintextModulus is an NTT-friendly prime (T ≡ 1 mod 2N for every degree
// this module supports) chosen to give ~20-bit batching slots, matching
// the SEAL reference's PlainModulus.Batching(degree, 20).
const plaintextModulus = 786433

// Literal returns the bgv.ParametersLiteral for the given profile.
func Literal(p Profile) (bgv.ParametersLiteral, error) {
	switch p {
	case ProfileStandard:
		return bgv.ParametersLiteral{
			LogN:             12, // ring degree 4096
			LogQ:             []int{54},
			PlaintextModulus: plaintextModulus,
		}, nil
	case ProfileRadius:
		return bgv.ParametersLiteral{
			LogN:             13, // ring degree 8192
			LogQ:             []int{54, 54},
			LogP:             []int{55},
			PlaintextModulus: plaintextModulus,
		}, nil
	default:
		return bgv.ParametersLiteral{}, fmt.Errorf("heparams: unknown profile %q", p)
	}
}

// Context wraps the BFV-profile scheme state shared by client and server.
// A server-side Context is constructed without a secret key: DecryptToken
// returns an error if called on such a Context, enforcing spec §4.1's
// "server never sees the secret key" invariant at run time.
type Context struct {
	profile   Profile
	params    bgv.Parameters
	encoder   *bgv.Encoder
	encryptor *rlwe.Encryptor
	decryptor *rlwe.Decryptor
	evaluator *bgv.Evaluator
}

// NewClientContext builds a Context able to encrypt and decrypt, generating
// a fresh keypair (and, for the radius profile, relinearization keys).
func NewClientContext(p Profile) (*Context, *rlwe.SecretKey, *rlwe.PublicKey, *rlwe.RelinearizationKey, error) {
	lit, err := Literal(p)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	params, err := bgv.NewParametersFromLiteral(lit)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("heparams: bad parameters: %w", err)
	}

	kgen := bgv.NewKeyGenerator(params)
	sk := kgen.GenSecretKeyNew()
	pk := kgen.GenPublicKeyNew(sk)

	var rlk *rlwe.RelinearizationKey
	var evk rlwe.EvaluationKeySet
	if p == ProfileRadius {
		rlk = kgen.GenRelinearizationKeyNew(sk)
		evk = rlwe.NewMemEvaluationKeySet(rlk)
	}

	ctx := &Context{
		profile:   p,
		params:    params,
		encoder:   bgv.NewEncoder(params),
		encryptor: rlwe.NewEncryptor(params, pk),
		decryptor: rlwe.NewDecryptor(params, sk),
		evaluator: bgv.NewEvaluator(params, evk),
	}
	return ctx, sk, pk, rlk, nil
}

// NewClientContextFromKey rebuilds a client-side Context around a
// previously-generated secret key (e.g. loaded from keygen's
// secret_key.bin), deriving the matching public key. Used by the client
// command, which runs as a separate process from the one that generated
// the keypair. The client only ever encrypts its own token and decrypts
// results, so it needs no relinearization key even under the radius
// profile — that key pairs with the server's evaluator, not the client's.
func NewClientContextFromKey(p Profile, sk *rlwe.SecretKey) (*Context, error) {
	lit, err := Literal(p)
	if err != nil {
		return nil, err
	}
	params, err := bgv.NewParametersFromLiteral(lit)
	if err != nil {
		return nil, fmt.Errorf("heparams: bad parameters: %w", err)
	}

	kgen := bgv.NewKeyGenerator(params)
	pk := kgen.GenPublicKeyNew(sk)

	return &Context{
		profile:   p,
		params:    params,
		encoder:   bgv.NewEncoder(params),
		encryptor: rlwe.NewEncryptor(params, pk),
		decryptor: rlwe.NewDecryptor(params, sk),
		evaluator: bgv.NewEvaluator(params, nil),
	}, nil
}

// NewServerContext builds an encrypt/evaluate-only Context from a
// previously-serialized public key (and, for the radius profile, a
// previously-serialized relinearization key). The server never holds a
// secret key.
func NewServerContext(p Profile, pk *rlwe.PublicKey, rlk *rlwe.RelinearizationKey) (*Context, error) {
	lit, err := Literal(p)
	if err != nil {
		return nil, err
	}
	params, err := bgv.NewParametersFromLiteral(lit)
	if err != nil {
		return nil, fmt.Errorf("heparams: bad parameters: %w", err)
	}

	var evk rlwe.EvaluationKeySet
	if p == ProfileRadius {
		if rlk == nil {
			return nil, fmt.Errorf("heparams: radius profile requires a relinearization key")
		}
		evk = rlwe.NewMemEvaluationKeySet(rlk)
	}

	return &Context{
		profile:   p,
		params:    params,
		encoder:   bgv.NewEncoder(params),
		encryptor: rlwe.NewEncryptor(params, pk),
		evaluator: bgv.NewEvaluator(params, evk),
	}, nil
}

// Profile reports which parameter profile this Context was built with.
func (c *Context) Profile() Profile { return c.profile }

// SlotCount returns the batch encoder's slot count.
func (c *Context) SlotCount() int { return c.params.MaxSlots() }

// Params exposes the underlying scheme parameters (needed by callers that
// allocate plaintexts/ciphertexts directly, e.g. deserialization).
func (c *Context) Params() bgv.Parameters { return c.params }

// EncryptToken encodes m as a single-slot-meaningful plaintext (constant
// polynomial, value m at slot 0 — spec §4.1) and encrypts it under the
// configured public key.
func (c *Context) EncryptToken(m int) (*rlwe.Ciphertext, error) {
	vec := make([]uint64, c.params.MaxSlots())
	for i := range vec {
		vec[i] = uint64(m) // m in every slot encodes the constant polynomial m
	}

	pt := bgv.NewPlaintext(c.params, c.params.MaxLevel())
	if err := c.encoder.Encode(vec, pt); err != nil {
		return nil, fmt.Errorf("heparams: encode token: %w", err)
	}
	ct, err := c.encryptor.EncryptNew(pt)
	if err != nil {
		return nil, fmt.Errorf("heparams: encrypt token: %w", err)
	}
	return ct, nil
}

// DecryptToken decrypts ct and returns slot 0 of the decoded vector. Only
// valid on a client-side Context (one constructed with NewClientContext or
// NewClientContextFromKey).
func (c *Context) DecryptToken(ct *rlwe.Ciphertext) (uint64, error) {
	if c.decryptor == nil {
		return 0, fmt.Errorf("heparams: DecryptToken called on a context without a secret key")
	}
	pt := c.decryptor.DecryptNew(ct)
	vec := make([]uint64, c.params.MaxSlots())
	if err := c.encoder.Decode(pt, vec); err != nil {
		return 0, fmt.Errorf("heparams: decode token: %w", err)
	}
	return vec[0], nil
}

// Sub returns a - b.
func (c *Context) Sub(a, b *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	out, err := c.evaluator.SubNew(a, b)
	if err != nil {
		return nil, fmt.Errorf("heparams: sub: %w", err)
	}
	return out, nil
}

// MultiplyPlain returns a * p (ciphertext-plaintext multiply, depth-1 in
// the standard profile, so no relinearization is required).
func (c *Context) MultiplyPlain(a *rlwe.Ciphertext, p *rlwe.Plaintext) (*rlwe.Ciphertext, error) {
	out, err := c.evaluator.MulNew(a, p)
	if err != nil {
		return nil, fmt.Errorf("heparams: multiply_plain: %w", err)
	}
	return out, nil
}

// MultiplyRelin returns a * b with relinearization applied, for the radius
// profile's ciphertext-ciphertext multiplication.
func (c *Context) MultiplyRelin(a, b *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	out, err := c.evaluator.MulRelinNew(a, b)
	if err != nil {
		return nil, fmt.Errorf("heparams: multiply_relin: %w", err)
	}
	return out, nil
}

// AddScalar returns ct + k (plaintext scalar addition), used by the radius
// profile to build the shifted-query window.
func (c *Context) AddScalar(ct *rlwe.Ciphertext, k uint64) (*rlwe.Ciphertext, error) {
	out, err := c.evaluator.AddNew(ct, k)
	if err != nil {
		return nil, fmt.Errorf("heparams: add_scalar: %w", err)
	}
	return out, nil
}

// SubScalar returns ct - k.
func (c *Context) SubScalar(ct *rlwe.Ciphertext, k uint64) (*rlwe.Ciphertext, error) {
	out, err := c.evaluator.SubNew(ct, k)
	if err != nil {
		return nil, fmt.Errorf("heparams: sub_scalar: %w", err)
	}
	return out, nil
}

// EncodeVector encodes v (padded/truncated to the slot count) to a
// plaintext via the batch encoder.
func (c *Context) EncodeVector(v []uint64) (*rlwe.Plaintext, error) {
	slots := c.params.MaxSlots()
	vec := make([]uint64, slots)
	copy(vec, v)

	pt := bgv.NewPlaintext(c.params, c.params.MaxLevel())
	if err := c.encoder.Encode(vec, pt); err != nil {
		return nil, fmt.Errorf("heparams: encode vector: %w", err)
	}
	return pt, nil
}

// Serialize returns the lowercase-hex wire encoding of ct, per spec §4.1.
func (c *Context) Serialize(ct *rlwe.Ciphertext) (string, error) {
	raw, err := ct.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("heparams: serialize: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// Deserialize parses a hex-encoded ciphertext (case-insensitive, per spec
// §4.6) into a fresh *rlwe.Ciphertext at this Context's parameters.
func (c *Context) Deserialize(hexStr string) (*rlwe.Ciphertext, error) {
	raw, err := hex.DecodeString(strings.ToLower(hexStr))
	if err != nil {
		return nil, fmt.Errorf("heparams: bad hex ciphertext: %w", err)
	}
	ct := rlwe.NewCiphertext(c.params, 1, c.params.MaxLevel())
	if err := ct.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("heparams: bad ciphertext encoding: %w", err)
	}
	return ct, nil
}
