// Package record implements the Record Store (spec §4.2) and Prefilter
// (spec §4.3): an immutable, in-memory collection of patient-style records
// with cleartext filter attributes and sealed-at-rest identity/name/
// treatment fields.
package record

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/iasenovets/side-effect-pir/internal/heparams"
)

// wireRecord is the on-disk/JSON shape of a Record (spec §6: dataset.json).
type wireRecord struct {
	Name        string `json:"name"`
	EncryptedM  string `json:"encrypted_m"`
	Medicines   []int  `json:"medicines"`
	SideEffects []int  `json:"side_effects"`
	Treatment   string `json:"treatment"`
}

// Record is one row of the dataset, as held by the server (spec §3).
type Record struct {
	NameSealed      []byte
	IdentitySealed  []byte // serialized BFV ciphertext bytes
	Medicines       []int
	SideEffects     []int
	TreatmentSealed []byte
}

// PublicView is the projection returned to clients by a fetch (spec §3):
// name_sealed and identity_sealed are never included.
type PublicView struct {
	Medicines       []int  `json:"medicines"`
	SideEffects     []int  `json:"side_effects"`
	TreatmentSealed string `json:"treatment_sealed"`
}

func fromWire(w wireRecord) (Record, error) {
	name, err := hex.DecodeString(w.Name)
	if err != nil {
		return Record{}, fmt.Errorf("record: bad name hex: %w", err)
	}
	identity, err := hex.DecodeString(w.EncryptedM)
	if err != nil {
		return Record{}, fmt.Errorf("record: bad encrypted_m hex: %w", err)
	}
	treatment, err := hex.DecodeString(w.Treatment)
	if err != nil {
		return Record{}, fmt.Errorf("record: bad treatment hex: %w", err)
	}
	if len(w.Medicines) == 0 {
		return Record{}, fmt.Errorf("record: medicines must be non-empty")
	}
	if len(w.SideEffects) == 0 {
		return Record{}, fmt.Errorf("record: side_effects must be non-empty")
	}
	return Record{
		NameSealed:      name,
		IdentitySealed:  identity,
		Medicines:       w.Medicines,
		SideEffects:     w.SideEffects,
		TreatmentSealed: treatment,
	}, nil
}

func (r Record) toWire() wireRecord {
	return wireRecord{
		Name:        hex.EncodeToString(r.NameSealed),
		EncryptedM:  hex.EncodeToString(r.IdentitySealed),
		Medicines:   r.Medicines,
		SideEffects: r.SideEffects,
		Treatment:   hex.EncodeToString(r.TreatmentSealed),
	}
}

// Store holds an immutable, ordered sequence of Records.
type Store struct {
	records []Record
}

// NewStore wraps an already-built slice of Records (used by the generator
// and by tests).
func NewStore(records []Record) *Store {
	return &Store{records: records}
}

// Load reads a dataset snapshot from a JSON file (spec §6: dataset.json).
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("record: read dataset: %w", err)
	}
	var wire []wireRecord
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("record: parse dataset: %w", err)
	}
	records := make([]Record, len(wire))
	for i, w := range wire {
		rec, err := fromWire(w)
		if err != nil {
			return nil, fmt.Errorf("record: row %d: %w", i, err)
		}
		records[i] = rec
	}
	return NewStore(records), nil
}

// Save writes the store back out as a dataset.json snapshot (used by the
// generator and by cmd/keygen's -gen mode).
func (s *Store) Save(path string) error {
	wire := make([]wireRecord, len(s.records))
	for i, r := range s.records {
		wire[i] = r.toWire()
	}
	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return fmt.Errorf("record: marshal dataset: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Len returns the number of records in the store.
func (s *Store) Len() int { return len(s.records) }

// At returns the record at index i.
func (s *Store) At(i int) Record { return s.records[i] }

// View returns the public, non-secret projection of record i (spec §4.2).
func (s *Store) View(i int) PublicView {
	r := s.records[i]
	return PublicView{
		Medicines:       r.Medicines,
		SideEffects:     r.SideEffects,
		TreatmentSealed: hex.EncodeToString(r.TreatmentSealed),
	}
}

// IdentityCiphertext deserializes and returns record i's identity
// ciphertext (spec §4.2).
func (s *Store) IdentityCiphertext(i int, ctx *heparams.Context) (*rlwe.Ciphertext, error) {
	raw := s.records[i].IdentitySealed
	ct := rlwe.NewCiphertext(ctx.Params(), 1, ctx.Params().MaxLevel())
	if err := ct.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("record: bad identity ciphertext at index %d: %w", i, err)
	}
	return ct, nil
}
