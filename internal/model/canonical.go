package model

import (
	"bytes"
	"encoding/json"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces canonical JSON for a string-keyed string map.
// This is the only serialization used for content-hash computation and for
// persisting token/requirement sets, so equal maps always serialize (and
// therefore hash) identically.
//
// Differences from plain json.Marshal:
//  1. Keys are sorted.
//  2. No HTML escaping (< > & are not escaped).
//  3. Keys and values are NFC normalized at the serialization boundary.
func MarshalCanonical(m map[string]string) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := canonicalString(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := canonicalString(m[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalCanonicalList produces canonical JSON for a string list, sorted.
// Used for tag persistence.
func MarshalCanonicalList(items []string) ([]byte, error) {
	sorted := make([]string, len(items))
	copy(sorted, items)
	sort.Strings(sorted)

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range sorted {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := canonicalString(item)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// canonicalString encodes a JSON string with NFC normalization and without
// HTML escaping.
func canonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder appends a trailing newline.
	result := buf.Bytes()
	if n := len(result); n > 0 && result[n-1] == '\n' {
		result = result[:n-1]
	}
	return result, nil
}
