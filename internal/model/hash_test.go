package model

import "testing"

func TestHashTokens_Deterministic(t *testing.T) {
	a := TokenSet{"colors.primary": "#3B82F6", "spacing.md": "16px"}
	b := TokenSet{"spacing.md": "16px", "colors.primary": "#3B82F6"}

	ha, err := HashTokens(a)
	if err != nil {
		t.Fatalf("HashTokens() failed: %v", err)
	}
	hb, err := HashTokens(b)
	if err != nil {
		t.Fatalf("HashTokens() failed: %v", err)
	}

	if ha != hb {
		t.Errorf("equal token sets hashed differently: %s vs %s", ha, hb)
	}
}

func TestHashTokens_SensitiveToValues(t *testing.T) {
	ha := MustHashTokens(TokenSet{"colors.primary": "#3B82F6"})
	hb := MustHashTokens(TokenSet{"colors.primary": "#1D4ED8"})

	if ha == hb {
		t.Error("different token values produced the same hash")
	}
}

func TestHashDomainSeparation(t *testing.T) {
	// The same map hashed as tokens and as requirements must differ,
	// otherwise a token set could impersonate a requirement set.
	m := map[string]string{"a": "1"}
	ht := MustHashTokens(TokenSet(m))
	hr := MustHashRequirements(RequirementSet(m))

	if ht == hr {
		t.Error("token and requirement domains produced the same hash")
	}
}

func TestHashTokens_Empty(t *testing.T) {
	h1 := MustHashTokens(TokenSet{})
	h2 := MustHashTokens(nil)

	if h1 != h2 {
		t.Errorf("empty and nil token sets hashed differently: %s vs %s", h1, h2)
	}
}
