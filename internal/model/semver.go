package model

import (
	"fmt"
	"strconv"
	"strings"
)

// BumpKind classifies the impact of a change set on the version triple.
type BumpKind string

const (
	BumpPatch BumpKind = "patch"
	BumpMinor BumpKind = "minor"
	BumpMajor BumpKind = "major"
)

// SemVer is the semantic version triple of a Version.
// Ordering is lexicographic over (Major, Minor, Patch).
type SemVer struct {
	Major int
	Minor int
	Patch int
}

// String renders the triple as "1.2.3".
func (v SemVer) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or 1 comparing v against o lexicographically.
func (v SemVer) Compare(o SemVer) int {
	if v.Major != o.Major {
		return sign(v.Major - o.Major)
	}
	if v.Minor != o.Minor {
		return sign(v.Minor - o.Minor)
	}
	return sign(v.Patch - o.Patch)
}

// Less reports whether v orders strictly before o.
func (v SemVer) Less(o SemVer) bool {
	return v.Compare(o) < 0
}

// Bump returns the next triple for the given bump kind:
// major -> (M+1,0,0), minor -> (M,m+1,0), patch -> (M,m,p+1).
func (v SemVer) Bump(kind BumpKind) SemVer {
	switch kind {
	case BumpMajor:
		return SemVer{Major: v.Major + 1}
	case BumpMinor:
		return SemVer{Major: v.Major, Minor: v.Minor + 1}
	default:
		return SemVer{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
	}
}

// ParseSemVer parses "1.2.3" into a triple. The whole string must be
// exactly three dot-separated non-negative integers; trailing text, signs,
// and leading zeros are rejected.
func ParseSemVer(s string) (SemVer, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return SemVer{}, fmt.Errorf("parse semver %q: want MAJOR.MINOR.PATCH", s)
	}

	var nums [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		// The round-trip check rejects anything Atoi tolerates that a
		// rendered triple never contains: "+2", "07", "".
		if err != nil || n < 0 || part != strconv.Itoa(n) {
			return SemVer{}, fmt.Errorf("parse semver %q: bad component %q", s, part)
		}
		nums[i] = n
	}
	return SemVer{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
