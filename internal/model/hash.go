package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashing. The version suffix enables future
// algorithm migration without colliding with old hashes.
const (
	DomainTokens       = "loom/tokens/v1"
	DomainRequirements = "loom/requirements/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashTokens computes the deterministic content hash of a token set.
// Equal sets always hash equal; the hash is stable across restarts.
func HashTokens(tokens TokenSet) (string, error) {
	canonical, err := MarshalCanonical(tokens)
	if err != nil {
		return "", fmt.Errorf("hash tokens: %w", err)
	}
	return hashWithDomain(DomainTokens, canonical), nil
}

// HashRequirements computes the deterministic content hash of a
// requirement set.
func HashRequirements(reqs RequirementSet) (string, error) {
	canonical, err := MarshalCanonical(reqs)
	if err != nil {
		return "", fmt.Errorf("hash requirements: %w", err)
	}
	return hashWithDomain(DomainRequirements, canonical), nil
}

// MustHashTokens is like HashTokens but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustHashTokens(tokens TokenSet) string {
	h, err := HashTokens(tokens)
	if err != nil {
		panic(err)
	}
	return h
}

// MustHashRequirements is like HashRequirements but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustHashRequirements(reqs RequirementSet) string {
	h, err := HashRequirements(reqs)
	if err != nil {
		panic(err)
	}
	return h
}
