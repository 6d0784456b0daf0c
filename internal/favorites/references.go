package favorites

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// ErrUnrecognizedPayload is returned when the favorites payload is neither
// an array nor an object wrapping a results array.
var ErrUnrecognizedPayload = errors.New("unrecognized favorites payload")

// reference is one favorites entry. car_listing is either the listing id or
// an embedded listing object.
type reference struct {
	CarListing json.RawMessage `json:"car_listing"`
	ID         json.RawMessage `json:"id"`
}

// ParseReferences extracts the listing ids from a favorites payload, in
// order of first appearance and without duplicates. Entries that carry no
// usable id are dropped.
func ParseReferences(raw json.RawMessage) ([]int64, error) {
	entries, err := normalize(raw)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(entries))
	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		id, ok := referenceID(entry)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func normalize(raw json.RawMessage) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var entries []json.RawMessage
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, errors.Join(ErrUnrecognizedPayload, err)
		}
		return entries, nil
	case '{':
		var page struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, errors.Join(ErrUnrecognizedPayload, err)
		}
		results := bytes.TrimSpace(page.Results)
		if len(results) == 0 || results[0] != '[' {
			return nil, ErrUnrecognizedPayload
		}
		if err := json.Unmarshal(results, &entries); err != nil {
			return nil, errors.Join(ErrUnrecognizedPayload, err)
		}
		return entries, nil
	default:
		return nil, ErrUnrecognizedPayload
	}
}

// referenceID applies the id rule: a numeric car_listing, else
// car_listing.id, else the entry's own id when no car_listing is set.
// A car_listing that is set but yields no id drops the entry, since the
// entry id would then name the favorite record rather than the listing.
func referenceID(entry json.RawMessage) (int64, bool) {
	var ref reference
	if err := json.Unmarshal(entry, &ref); err != nil {
		return 0, false
	}

	cl := bytes.TrimSpace(ref.CarListing)
	if isSet(cl) {
		if id, ok := number(cl); ok {
			return id, true
		}
		if cl[0] == '{' {
			var nested struct {
				ID json.RawMessage `json:"id"`
			}
			if err := json.Unmarshal(cl, &nested); err == nil {
				return idValue(nested.ID)
			}
		}
		return 0, false
	}

	return idValue(ref.ID)
}

// isSet reports whether v is present and not a falsy JSON literal.
func isSet(v json.RawMessage) bool {
	switch string(v) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}

func number(v json.RawMessage) (int64, bool) {
	if len(v) == 0 || (v[0] != '-' && (v[0] < '0' || v[0] > '9')) {
		return 0, false
	}
	id, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// idValue accepts a positive integer id given as a number or numeric string.
func idValue(v json.RawMessage) (int64, bool) {
	v = bytes.TrimSpace(v)
	if id, ok := number(v); ok {
		return id, true
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return 0, false
	}
	return number(json.RawMessage(s))
}
