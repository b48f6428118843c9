package contest

import (
	"encoding/json"
	"fmt"
)

// EncodeSubmissions serializes the collection into the JSON array stored
// under KeySubmissions. A nil collection encodes as an empty array.
func EncodeSubmissions(subs []Submission) (string, error) {
	if subs == nil {
		subs = []Submission{}
	}
	buf, err := json.Marshal(subs)
	if err != nil {
		return "", fmt.Errorf("encode submissions: %w", err)
	}
	return string(buf), nil
}

// DecodeSubmissions parses a stored submissions value. Records with an
// unknown status are rejected so a damaged value falls back to defaults
// instead of loading half-valid state.
func DecodeSubmissions(raw string) ([]Submission, error) {
	var subs []Submission
	if err := json.Unmarshal([]byte(raw), &subs); err != nil {
		return nil, fmt.Errorf("decode submissions: %w", err)
	}
	if subs == nil {
		return nil, fmt.Errorf("decode submissions: %w", ErrCorruptValue)
	}
	for i, s := range subs {
		if !s.Status.Valid() {
			return nil, fmt.Errorf("decode submissions: record %d has status %q: %w", i, s.Status, ErrCorruptValue)
		}
	}
	return subs, nil
}

// decodeRole maps a stored role string to a Role. Anything unrecognised
// decodes as RoleNone.
func decodeRole(raw string) Role {
	r := Role(raw)
	if !r.Valid() {
		return RoleNone
	}
	return r
}
