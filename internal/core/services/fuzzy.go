package services

import (
	"sort"
	"strings"
	"unicode"
)

// Fuzzy variant generation bounds. Shorter keywords produce too many
// false positives; longer ones are handled well enough by the plain
// prefix variant.
const (
	minFuzzyLen = 3
	maxFuzzyLen = 8

	// minResidueLen discards deletion variants whose literal part got
	// too short to be selective.
	minResidueLen = 2
)

// Variant weights. Fuzzy matches are damped relative to an exact pass.
const (
	weightPrefix    = 1.0
	weightInsertion = 0.9
	weightDeletion  = 0.8
	weightCode      = 0.5
)

// Variant is one wildcard query pattern with the damping weight
// applied to scores it produces.
type Variant struct {
	// Pattern is the exact-token query, with '*' wildcards.
	Pattern string

	// Weight scales normalized scores of hits this variant produced.
	Weight float64
}

// CodeExpander maps a domain-specific short code to extra
// category-level variants. Extension point; may be nil.
type CodeExpander func(keyword string) []Variant

// platformCodes is the built-in four-letter code taxonomy covering the
// archive pipeline's source platforms.
var platformCodes = map[string]string{
	"bili": "bilibili",
	"douy": "douyin",
	"xiao": "xiaohongshu",
	"twit": "twitter",
	"yout": "youtube",
}

// ExpandPlatformCode is the default CodeExpander: known four-letter
// platform codes gain a category-level prefix variant at reduced
// weight.
func ExpandPlatformCode(keyword string) []Variant {
	full, ok := platformCodes[keyword]
	if !ok {
		return nil
	}
	return []Variant{{Pattern: full + "*", Weight: weightCode}}
}

// fuzzyEligible reports whether keyword qualifies for wildcard variant
// generation: purely alphabetic and within the length band.
func fuzzyEligible(keyword string) bool {
	n := 0
	for _, r := range keyword {
		if !unicode.IsLetter(r) || r > unicode.MaxASCII {
			return false
		}
		n++
	}
	return n >= minFuzzyLen && n <= maxFuzzyLen
}

// generateVariants produces the prioritized wildcard patterns for one
// keyword:
//
//  1. the keyword with a trailing wildcard,
//  2. one wildcard-insertion variant per internal position (tolerates
//     an extra typed character), longest literal prefix first,
//  3. one deletion variant per position, each with a trailing
//     wildcard, discarding residues shorter than two characters
//     (tolerates a missing character),
//  4. any CodeExpander additions.
//
// Patterns are deduplicated keeping the highest-priority occurrence.
func generateVariants(keyword string, expand CodeExpander) []Variant {
	keyword = strings.ToLower(keyword)
	if !fuzzyEligible(keyword) {
		return nil
	}

	var prefix, insertions, remainder []Variant
	prefix = append(prefix, Variant{Pattern: keyword + "*", Weight: weightPrefix})

	for i := 1; i < len(keyword); i++ {
		insertions = append(insertions, Variant{
			Pattern: keyword[:i] + "*" + keyword[i:],
			Weight:  weightInsertion,
		})
	}
	// Longest literal prefix first. Generation order already satisfies
	// ascending prefix length, so reverse via sort for clarity.
	sort.SliceStable(insertions, func(i, j int) bool {
		return strings.Index(insertions[i].Pattern, "*") > strings.Index(insertions[j].Pattern, "*")
	})

	for i := 0; i < len(keyword); i++ {
		residue := keyword[:i] + keyword[i+1:]
		if len(residue) < minResidueLen {
			continue
		}
		remainder = append(remainder, Variant{Pattern: residue + "*", Weight: weightDeletion})
	}

	if expand != nil {
		remainder = append(remainder, expand(keyword)...)
	}

	ordered := make([]Variant, 0, len(prefix)+len(insertions)+len(remainder))
	ordered = append(ordered, prefix...)
	ordered = append(ordered, insertions...)
	ordered = append(ordered, remainder...)

	seen := make(map[string]bool, len(ordered))
	out := ordered[:0]
	for _, v := range ordered {
		if seen[v.Pattern] {
			continue
		}
		seen[v.Pattern] = true
		out = append(out, v)
	}
	return out
}
