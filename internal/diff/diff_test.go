package diff

import (
	"strings"
	"testing"

	"github.com/loomkit/loom/internal/model"
)

func TestCode_IdenticalInputsEmpty(t *testing.T) {
	inputs := []string{
		"",
		"one line\n",
		"export const Button = () => null;\n\nexport default Button;\n",
	}
	for _, code := range inputs {
		if got := Code(code, code); len(got) != 0 {
			t.Errorf("Code(x, x) = %d lines, want 0", len(got))
		}
	}
}

func TestCode_ReversalInvertsMarkers(t *testing.T) {
	oldCode := "const a = 1;\nconst b = 2;\n"
	newCode := "const a = 1;\nconst b = 3;\n"

	forward := Code(oldCode, newCode)
	backward := Code(newCode, oldCode)

	var fwdMinus, fwdPlus, bwdMinus, bwdPlus []string
	for _, line := range forward {
		if strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---") {
			fwdMinus = append(fwdMinus, line[1:])
		}
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			fwdPlus = append(fwdPlus, line[1:])
		}
	}
	for _, line := range backward {
		if strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---") {
			bwdMinus = append(bwdMinus, line[1:])
		}
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			bwdPlus = append(bwdPlus, line[1:])
		}
	}

	if len(fwdMinus) != len(bwdPlus) || len(fwdPlus) != len(bwdMinus) {
		t.Fatalf("reversal changed line counts: -%d/+%d vs -%d/+%d",
			len(fwdMinus), len(fwdPlus), len(bwdMinus), len(bwdPlus))
	}
	for i := range fwdMinus {
		if fwdMinus[i] != bwdPlus[i] {
			t.Errorf("removed line %q did not become added line %q", fwdMinus[i], bwdPlus[i])
		}
	}
	for i := range fwdPlus {
		if fwdPlus[i] != bwdMinus[i] {
			t.Errorf("added line %q did not become removed line %q", fwdPlus[i], bwdMinus[i])
		}
	}
}

func TestCode_Deterministic(t *testing.T) {
	oldCode := "a\nb\nc\n"
	newCode := "a\nx\nc\n"

	first := Code(oldCode, newCode)
	second := Code(oldCode, newCode)

	if strings.Join(first, "\n") != strings.Join(second, "\n") {
		t.Error("identical inputs produced different diffs")
	}
}

func TestCompareKeyed_Classification(t *testing.T) {
	old := map[string]string{
		"colors.primary":   "#3B82F6",
		"colors.secondary": "#999999",
		"spacing.md":       "16px",
	}
	new := map[string]string{
		"colors.primary": "#1D4ED8", // modified
		"spacing.md":     "16px",    // unchanged
		"spacing.lg":     "24px",    // added
		// colors.secondary removed
	}

	changes := CompareKeyed(old, new, "")
	if len(changes) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(changes), changes)
	}

	// Stable order: sorted by path.
	wantPaths := []string{"colors.primary", "colors.secondary", "spacing.lg"}
	for i, want := range wantPaths {
		if changes[i].Path != want {
			t.Errorf("changes[%d].Path = %q, want %q", i, changes[i].Path, want)
		}
	}

	if changes[0].Kind != model.ChangeModified || changes[0].Old != "#3B82F6" || changes[0].New != "#1D4ED8" {
		t.Errorf("colors.primary record = %+v", changes[0])
	}
	if changes[1].Kind != model.ChangeRemoved || changes[1].Old != "#999999" || changes[1].New != "" {
		t.Errorf("colors.secondary record = %+v", changes[1])
	}
	if changes[2].Kind != model.ChangeAdded || changes[2].New != "24px" || changes[2].Old != "" {
		t.Errorf("spacing.lg record = %+v", changes[2])
	}
}

func TestInputs_CombinesTokensAndRequirements(t *testing.T) {
	oldTokens := model.TokenSet{"colors.primary": "#3B82F6"}
	newTokens := model.TokenSet{"colors.primary": "#1D4ED8"}
	oldReqs := model.RequirementSet{"props.variant": "primary"}
	newReqs := model.RequirementSet{"props.variant": "primary", "props.size": "sm | md | lg"}

	changes := Inputs(oldTokens, newTokens, oldReqs, newReqs)
	if len(changes) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(changes), changes)
	}

	if changes[0].Path != "colors.primary" || changes[0].Kind != model.ChangeModified {
		t.Errorf("changes[0] = %+v", changes[0])
	}
	if changes[1].Path != "requirements.props.size" || changes[1].Kind != model.ChangeAdded {
		t.Errorf("changes[1] = %+v", changes[1])
	}
}

func TestInputs_EmptyForEqualSets(t *testing.T) {
	tokens := model.TokenSet{"colors.primary": "#3B82F6"}
	reqs := model.RequirementSet{"props.variant": "primary"}

	if got := Inputs(tokens, tokens, reqs, reqs); len(got) != 0 {
		t.Errorf("Inputs(equal) = %d records, want 0", len(got))
	}
}

func TestCompareVersions(t *testing.T) {
	a := &model.Version{
		SemVer:       model.SemVer{Major: 1},
		Tokens:       model.TokenSet{"colors.primary": "#3B82F6"},
		Requirements: model.RequirementSet{},
		Code:         "const x = 1;\n",
	}
	b := &model.Version{
		SemVer:       model.SemVer{Major: 1, Minor: 1},
		Tokens:       model.TokenSet{"colors.primary": "#1D4ED8"},
		Requirements: model.RequirementSet{},
		Code:         "const x = 2;\n",
	}

	vd := CompareVersions(a, b)
	if len(vd.Code) == 0 {
		t.Error("code diff empty for differing payloads")
	}
	if len(vd.Inputs) != 1 || vd.Inputs[0].Path != "colors.primary" {
		t.Errorf("input diff = %+v", vd.Inputs)
	}

	same := CompareVersions(a, a)
	if len(same.Code) != 0 || len(same.Inputs) != 0 {
		t.Error("CompareVersions(v, v) is not empty")
	}
}
