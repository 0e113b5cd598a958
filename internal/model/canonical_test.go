package model

import "testing"

func TestMarshalCanonical_SortedKeys(t *testing.T) {
	m := map[string]string{"zebra": "z", "apple": "a", "mango": "m"}

	data, err := MarshalCanonical(m)
	if err != nil {
		t.Fatalf("MarshalCanonical() failed: %v", err)
	}

	want := `{"apple":"a","mango":"m","zebra":"z"}`
	if string(data) != want {
		t.Errorf("MarshalCanonical() = %s, want %s", data, want)
	}
}

func TestMarshalCanonical_NoHTMLEscape(t *testing.T) {
	data, err := MarshalCanonical(map[string]string{"sel": "a > b & c"})
	if err != nil {
		t.Fatalf("MarshalCanonical() failed: %v", err)
	}

	want := `{"sel":"a > b & c"}`
	if string(data) != want {
		t.Errorf("MarshalCanonical() = %s, want %s", data, want)
	}
}

func TestMarshalCanonical_NFCNormalized(t *testing.T) {
	// "é" composed (U+00E9) vs decomposed (e + U+0301) must serialize
	// identically, or the same visual token would hash differently.
	composed := map[string]string{"label": "café"}
	decomposed := map[string]string{"label": "café"}

	a, err := MarshalCanonical(composed)
	if err != nil {
		t.Fatalf("MarshalCanonical() failed: %v", err)
	}
	b, err := MarshalCanonical(decomposed)
	if err != nil {
		t.Fatalf("MarshalCanonical() failed: %v", err)
	}

	if string(a) != string(b) {
		t.Errorf("NFC normalization failed: %s vs %s", a, b)
	}
}

func TestMarshalCanonicalList_Sorted(t *testing.T) {
	data, err := MarshalCanonicalList([]string{"rollback", "approved"})
	if err != nil {
		t.Fatalf("MarshalCanonicalList() failed: %v", err)
	}

	want := `["approved","rollback"]`
	if string(data) != want {
		t.Errorf("MarshalCanonicalList() = %s, want %s", data, want)
	}
}

func TestMarshalCanonical_Empty(t *testing.T) {
	data, err := MarshalCanonical(nil)
	if err != nil {
		t.Fatalf("MarshalCanonical() failed: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("MarshalCanonical(nil) = %s, want {}", data)
	}
}
