package domain

import (
	"strconv"
	"strings"
)

// CanonicalCore is the normalized form of a lineage identifier: an uppercase
// alphabetic family, a top-level generation, and an ordered path of sub-brood
// indices. All numbers are positive with no leading zeros; the textual form is
// FAMILY.generation[.path...]. The raw strings "E1", "E.1" and "e01" all
// normalize to the same core.
type CanonicalCore struct {
	Family     string
	Generation int
	Path       []int
}

// String renders the canonical textual form, e.g. "E.1.3".
func (c CanonicalCore) String() string {
	var b strings.Builder
	b.WriteString(c.Family)
	b.WriteByte('.')
	b.WriteString(strconv.Itoa(c.Generation))
	for _, p := range c.Path {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(p))
	}
	return b.String()
}

// IsFounder reports whether the core names a founder: a bare
// FAMILY.generation with no sub-brood path. Founders root a deliberately
// unbounded breeding lineage within one generation.
func (c CanonicalCore) IsFounder() bool {
	return len(c.Path) == 0
}

// Child returns the core extended by one path segment.
func (c CanonicalCore) Child(index int) CanonicalCore {
	path := make([]int, 0, len(c.Path)+1)
	path = append(path, c.Path...)
	path = append(path, index)
	return CanonicalCore{Family: c.Family, Generation: c.Generation, Path: path}
}

// Extends reports whether c extends parent by exactly one path segment, and
// returns that trailing segment when it does.
func (c CanonicalCore) Extends(parent CanonicalCore) (int, bool) {
	if c.Family != parent.Family || c.Generation != parent.Generation {
		return 0, false
	}
	if len(c.Path) != len(parent.Path)+1 {
		return 0, false
	}
	for i, p := range parent.Path {
		if c.Path[i] != p {
			return 0, false
		}
	}
	return c.Path[len(c.Path)-1], true
}

// ParseCore normalizes a raw lab identifier into its canonical core. Any date
// suffix (text after the first underscore) is stripped first; the leading
// alphabetic run becomes the family (upper-cased) and every digit run in the
// remainder becomes one number of the sequence, leading zeros discarded. The
// first number is the generation, the rest form the path. A core must encode
// at least a generation, so a bare family letter is malformed.
func ParseCore(raw string) (CanonicalCore, error) {
	s, _ := SplitIdentifier(raw)
	if s == "" {
		return CanonicalCore{}, MalformedIdentifierError{Input: raw, Reason: "empty identifier"}
	}

	i := 0
	for i < len(s) && isAlpha(s[i]) {
		i++
	}
	if i == 0 {
		return CanonicalCore{}, MalformedIdentifierError{Input: raw, Reason: "missing alphabetic family prefix"}
	}
	family := strings.ToUpper(s[:i])

	var nums []int
	for i < len(s) {
		if !isDigit(s[i]) {
			i++
			continue
		}
		j := i
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		n, err := strconv.Atoi(s[i:j])
		if err != nil {
			return CanonicalCore{}, MalformedIdentifierError{Input: raw, Reason: "numeric segment overflow"}
		}
		nums = append(nums, n)
		i = j
	}
	if len(nums) == 0 {
		return CanonicalCore{}, MalformedIdentifierError{Input: raw, Reason: "core must include at least a generation number, e.g. E.1"}
	}

	return CanonicalCore{Family: family, Generation: nums[0], Path: nums[1:]}, nil
}

// SplitIdentifier separates a full identifier into its core text and date
// suffix at the first underscore. The suffix is empty when no underscore is
// present. Both halves are whitespace-trimmed; the core half is not
// normalized.
func SplitIdentifier(id string) (core, suffix string) {
	core, suffix, _ = strings.Cut(strings.TrimSpace(id), "_")
	return strings.TrimSpace(core), strings.TrimSpace(suffix)
}

// SuffixRank orders date suffixes for latest-by-core resolution. Numeric
// suffixes compare by value; a non-numeric or absent suffix ranks below every
// numeric one.
func SuffixRank(suffix string) int {
	n, err := strconv.Atoi(suffix)
	if err != nil || suffix == "" || n < 0 {
		return -1
	}
	return n
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
