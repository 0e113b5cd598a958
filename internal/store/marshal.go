package store

import (
	"encoding/json"
	"fmt"

	"github.com/loomkit/loom/internal/model"
)

// marshalSet converts a token/requirement set to canonical JSON TEXT.
// Canonical serialization keeps stored sets byte-identical for equal
// inputs, which the token-hash dedup index depends on.
func marshalSet(m map[string]string) (string, error) {
	data, err := model.MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("marshal set: %w", err)
	}
	return string(data), nil
}

// marshalTags converts a tag list to canonical JSON TEXT.
func marshalTags(tags []string) (string, error) {
	data, err := model.MarshalCanonicalList(tags)
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}
	return string(data), nil
}

// unmarshalSet parses JSON TEXT into a string map.
func unmarshalSet(data string) (map[string]string, error) {
	if data == "" || data == "{}" {
		return map[string]string{}, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("unmarshal set: %w", err)
	}
	return m, nil
}

// unmarshalTags parses JSON TEXT into a tag list.
func unmarshalTags(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return []string{}, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(data), &tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return tags, nil
}
