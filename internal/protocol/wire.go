// Package protocol implements the Query/Response Codec (spec §4.6), the
// Client Protocol Driver (spec §4.7) and the Server Protocol Driver
// (spec §4.8).
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Query is the wire shape of a client query (spec §3/§4.6).
type Query struct {
	Medicines   []int  `json:"medicines"`
	SideEffects []int  `json:"side_effects"`
	EncryptedM  string `json:"encrypted_m"`
}

// Validate checks the structural requirements spec §3/§6 place on a
// Query: non-empty medicine/side-effect lists and a non-blank encrypted_m
// (the hex itself is validated, case-insensitively, at deserialization
// time by package heparams).
func (q Query) Validate() error {
	if len(q.Medicines) == 0 {
		return fmt.Errorf("protocol: medicines must be non-empty")
	}
	if len(q.SideEffects) == 0 {
		return fmt.Errorf("protocol: side_effects must be non-empty")
	}
	if strings.TrimSpace(q.EncryptedM) == "" {
		return fmt.Errorf("protocol: encrypted_m is required")
	}
	return nil
}

// MarshalQuery serializes q as the POST /query body.
func MarshalQuery(q Query) ([]byte, error) {
	return json.Marshal(q)
}

// UnmarshalQuery parses the POST /query body. Non-integer number fields
// are rejected by json.Unmarshal's strict []int decoding.
func UnmarshalQuery(data []byte) (Query, error) {
	var q Query
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&q); err != nil {
		return Query{}, fmt.Errorf("protocol: malformed query: %w", err)
	}
	return q, nil
}

// Result is the ordered list of hex-encoded ciphertexts returned by POST
// /query (spec §3/§4.6).
type Result []string

// FetchRequest is the ordered list of candidate-set indices sent via
// GET /query?indexes=... (spec §3).
type FetchRequest []int

// ParseFetchIndexes parses the `indexes` query-parameter value (a JSON
// array of non-negative integers).
func ParseFetchIndexes(raw string) (FetchRequest, error) {
	var idx FetchRequest
	if err := json.Unmarshal([]byte(raw), &idx); err != nil {
		return nil, fmt.Errorf("protocol: malformed indexes: %w", err)
	}
	for _, i := range idx {
		if i < 0 {
			return nil, fmt.Errorf("protocol: negative index %d", i)
		}
	}
	return idx, nil
}

// FetchResponseItem is one row of the GET /query response (spec §4.6):
// note the wire field is "treatment", distinct from the internal
// TreatmentSealed record field name.
type FetchResponseItem struct {
	Medicines   []int  `json:"medicines"`
	SideEffects []int  `json:"side_effects"`
	Treatment   string `json:"treatment"`
}
