// Package gendata synthesizes a dataset.json snapshot of medical records
// (spec §6), grounded on the teacher's gen_records generator: deterministic,
// index-driven field rotation rather than an external faker dependency, with
// the same bracket-tagged log.Printf progress reporting.
package gendata

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"

	"github.com/iasenovets/side-effect-pir/internal/heparams"
	"github.com/iasenovets/side-effect-pir/internal/identity"
	"github.com/iasenovets/side-effect-pir/internal/payload"
	"github.com/iasenovets/side-effect-pir/internal/record"
)

var firstNames = []string{
	"Alice", "Bob", "Carol", "David", "Erin", "Frank", "Grace", "Heidi",
	"Ivan", "Judy", "Mallory", "Niaj", "Olivia", "Peggy", "Quentin", "Rupert",
}

var lastNames = []string{
	"Adler", "Brooks", "Chen", "Dubois", "Evans", "Ferreira", "Gallo",
	"Hughes", "Ibrahim", "Jensen", "Kowalski", "Lindqvist", "Moreno", "Novak",
}

var treatments = []string{
	"Stop 4", "Stop 12", "Stop 17", "Stop 23", "Stop 31", "Stop 42", "Stop 58",
	"Halve dosage", "Switch to alternative", "Monitor for 2 weeks",
}

// fakeName derives a deterministic, human-readable name from an index so
// the dataset is reproducible without an external faker dependency.
func fakeName(i int) string {
	return fmt.Sprintf("%s %s", firstNames[i%len(firstNames)], lastNames[(i/len(firstNames))%len(lastNames)])
}

// fakeSubset deterministically selects between 1 and len(pool) distinct
// values from pool, rotated by i so consecutive records don't all collide
// on the same subset.
func fakeSubset(pool []int, i int) []int {
	k := 1 + (i % len(pool))
	out := make([]int, 0, k)
	for j := 0; j < k; j++ {
		out = append(out, pool[(i+j)%len(pool)])
	}
	return out
}

func fakeAge(i int) int {
	return 1 + (i*37+11)%99
}

func fakeGender(i int) identity.Gender {
	if i%2 == 0 {
		return identity.Male
	}
	return identity.Female
}

// Options configures synthetic dataset generation.
type Options struct {
	Count       int
	MedicineIDs []int // distinct medicine identifiers to draw subsets from
	SideEffects []int // distinct side-effect identifiers to draw subsets from
}

// DefaultOptions mirrors the original prototype's fixed 1..5 medicine/
// side-effect universes (spec's original_source).
func DefaultOptions(count int) Options {
	return Options{
		Count:       count,
		MedicineIDs: []int{1, 2, 3, 4, 5},
		SideEffects: []int{1, 2, 3, 4, 5},
	}
}

// Generate produces opts.Count synthetic records: a sealed display name, an
// identity ciphertext encrypted for heCtx's public key, cleartext medicine/
// side-effect filter attributes, and a sealed treatment string.
func Generate(opts Options, heCtx *heparams.Context, cipher *payload.Cipher) (*record.Store, error) {
	if opts.Count <= 0 {
		return nil, fmt.Errorf("gendata: count must be positive, got %d", opts.Count)
	}

	records := make([]record.Record, opts.Count)
	for i := 0; i < opts.Count; i++ {
		age := fakeAge(i)
		gender := fakeGender(i)

		m, err := identity.Token(age, gender)
		if err != nil {
			return nil, fmt.Errorf("gendata: record %d: %w", i, err)
		}
		ct, err := heCtx.EncryptToken(m)
		if err != nil {
			return nil, fmt.Errorf("gendata: record %d: encrypt token: %w", i, err)
		}
		ctBytes, err := ct.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("gendata: record %d: marshal identity ciphertext: %w", i, err)
		}

		nameSealed, err := cipher.SealString(fakeName(i))
		if err != nil {
			return nil, fmt.Errorf("gendata: record %d: seal name: %w", i, err)
		}
		treatment := treatments[i%len(treatments)]
		treatmentSealed, err := cipher.SealString(treatment)
		if err != nil {
			return nil, fmt.Errorf("gendata: record %d: seal treatment: %w", i, err)
		}

		records[i] = record.Record{
			NameSealed:      nameSealed,
			IdentitySealed:  ctBytes,
			Medicines:       fakeSubset(opts.MedicineIDs, i),
			SideEffects:     fakeSubset(opts.SideEffects, i+1),
			TreatmentSealed: treatmentSealed,
		}

		if i < 3 || i >= opts.Count-3 {
			log.Printf("[DEBUG] record %03d: age=%d gender=%s medicines=%v side_effects=%v treatment=%q",
				i, age, gender, records[i].Medicines, records[i].SideEffects, treatment)
		}
	}

	log.Printf("[INFO] generated %d synthetic records (fingerprint %s)", opts.Count, fingerprint(records))
	return record.NewStore(records), nil
}

// fingerprint produces a short identifier for a generated dataset: a
// SHA-256 prefix over each record's identity ciphertext and sealed
// treatment. The identity ciphertexts are freshly randomized by every
// encryption, so two Generate runs yield different fingerprints.
func fingerprint(records []record.Record) string {
	h := sha256.New()
	for _, r := range records {
		h.Write(r.IdentitySealed)
		h.Write(r.TreatmentSealed)
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}
