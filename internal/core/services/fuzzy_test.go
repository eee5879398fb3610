package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuzzyEligible(t *testing.T) {
	tests := []struct {
		keyword string
		want    bool
	}{
		{"ab", false},
		{"abc", true},
		{"neural", true},
		{"abcdefgh", true},
		{"abcdefghi", false},
		{"ab1", false},
		{"héllo", false},
		{"深度", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fuzzyEligible(tt.keyword), "keyword %q", tt.keyword)
	}
}

func TestGenerateVariantsOrder(t *testing.T) {
	variants := generateVariants("test", nil)
	require.NotEmpty(t, variants)

	// Prefix variant leads at full weight.
	assert.Equal(t, Variant{Pattern: "test*", Weight: weightPrefix}, variants[0])

	// Insertions follow, longest literal prefix first.
	assert.Equal(t, "tes*t", variants[1].Pattern)
	assert.Equal(t, "te*st", variants[2].Pattern)
	assert.Equal(t, "t*est", variants[3].Pattern)
	for _, v := range variants[1:4] {
		assert.Equal(t, weightInsertion, v.Weight)
	}

	// Deletion variants close the list with a trailing wildcard each.
	rest := variants[4:]
	assert.ElementsMatch(t, []string{"est*", "tst*", "tet*", "tes*"},
		[]string{rest[0].Pattern, rest[1].Pattern, rest[2].Pattern, rest[3].Pattern})
	for _, v := range rest {
		assert.Equal(t, weightDeletion, v.Weight)
	}
}

func TestGenerateVariantsDedupes(t *testing.T) {
	variants := generateVariants("aaa", nil)

	seen := make(map[string]bool)
	for _, v := range variants {
		assert.False(t, seen[v.Pattern], "duplicate pattern %q", v.Pattern)
		seen[v.Pattern] = true
	}
	// The deletion of any position of "aaa" collapses to one "aa*",
	// kept once at deletion weight.
	assert.True(t, seen["aa*"])
}

func TestGenerateVariantsShortResidueDropped(t *testing.T) {
	variants := generateVariants("abc", nil)

	for _, v := range variants {
		literal := strings.ReplaceAll(v.Pattern, "*", "")
		assert.GreaterOrEqual(t, len(literal), minResidueLen, "pattern %q", v.Pattern)
	}
}

func TestGenerateVariantsIneligible(t *testing.T) {
	assert.Nil(t, generateVariants("ab", nil))
	assert.Nil(t, generateVariants("abcdefghi", nil))
	assert.Nil(t, generateVariants("深度学习", nil))
}

func TestExpandPlatformCode(t *testing.T) {
	variants := ExpandPlatformCode("bili")
	require.Len(t, variants, 1)
	assert.Equal(t, "bilibili*", variants[0].Pattern)
	assert.Equal(t, weightCode, variants[0].Weight)

	assert.Nil(t, ExpandPlatformCode("nope"))
}

func TestGenerateVariantsWithCodeExpansion(t *testing.T) {
	variants := generateVariants("yout", ExpandPlatformCode)

	patterns := make([]string, 0, len(variants))
	for _, v := range variants {
		patterns = append(patterns, v.Pattern)
	}
	assert.Contains(t, patterns, "youtube*")
	// Expansion ranks last.
	assert.Equal(t, "youtube*", patterns[len(patterns)-1])
}
