package list_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lka/einkaufsliste/list"
)

// =============================================================================
// NORMALIZATION
// =============================================================================

func TestNormalize_GermanDigraphs(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Möhren", "moehren"},
		{"Kürbiskerne", "kuerbiskerne"},
		{"Äpfel", "aepfel"},
		{"Weißkohl", "weisskohl"},
		{"  Milch  ", "milch"},
		{"Café", "cafe"}, // leftover accents fold to base letters
	}
	for _, c := range cases {
		assert.Equal(t, c.want, list.Normalize(c.in))
	}
}

func TestNormalize_CombiningForm(t *testing.T) {
	// "ö" written as o + combining diaeresis must normalize like the
	// precomposed character.
	assert.Equal(t, list.Normalize("Möhren"), list.Normalize("Möhren"))
}

func TestStripParenthetical(t *testing.T) {
	assert.Equal(t, "Mehl", list.StripParenthetical("Mehl (Type 405)"))
	assert.Equal(t, "Mehl", list.StripParenthetical("Mehl"))
	assert.Equal(t, "Tomaten passiert", list.StripParenthetical("Tomaten (Dose) passiert (500 g)"))
	assert.Equal(t, "", list.StripParenthetical("(nur Deko)"))
}

// =============================================================================
// SIMILARITY
// =============================================================================

func TestSimilarity_Bounds(t *testing.T) {
	assert.Equal(t, 1.0, list.Similarity("milch", "milch"))
	assert.Equal(t, 1.0, list.Similarity("", ""))
	assert.Equal(t, 0.0, list.Similarity("xyz", "abc"))
}

func TestSimilarity_SingularPlural(t *testing.T) {
	// "Möhre" vs "Möhren" is the canonical must-merge pair.
	score := list.Similarity(list.Normalize("Möhre"), list.Normalize("Möhren"))
	assert.Greater(t, score, list.MergeThreshold)
}

func TestSimilarity_IsSymmetric(t *testing.T) {
	a, b := "kuerbiskerne", "kuerbiskernoel"
	assert.InDelta(t, list.Similarity(a, b), list.Similarity(b, a), 1e-12)
}

// =============================================================================
// MATCH POLICIES
// =============================================================================

func TestExactPolicy_MatchesNormalizedOnly(t *testing.T) {
	p := list.ExactPolicy{}
	candidates := []string{"Kürbiskernöl", "Milch"}

	assert.Equal(t, 1, p.Match("milch", candidates))
	assert.Equal(t, 0, p.Match("KÜRBISKERNÖL", candidates))
	assert.Equal(t, -1, p.Match("Kürbiskerne", candidates))
}

func TestFuzzyPolicy_MergesNearNames(t *testing.T) {
	p := list.FuzzyPolicy{Threshold: list.MergeThreshold}
	assert.Equal(t, 0, p.Match("Möhre", []string{"Möhren", "Milch"}))
	assert.Equal(t, -1, p.Match("Butter", []string{"Möhren", "Milch"}))
}

func TestFuzzyPolicy_WouldFoldDistinctProducts(t *testing.T) {
	// GIVEN: Two real products sharing a long stem
	// WHEN: Matched fuzzily at the merge threshold
	// THEN: They score as the same line - which is exactly why a
	//       catalog-verbatim name must be matched exactly instead

	p := list.FuzzyPolicy{Threshold: list.MergeThreshold}
	assert.Equal(t, 0, p.Match("Kürbiskernöl", []string{"Kürbiskerne"}))

	exact := list.ExactPolicy{}
	assert.Equal(t, -1, exact.Match("Kürbiskernöl", []string{"Kürbiskerne"}))
}

func TestFuzzyPolicy_PicksBestCandidate(t *testing.T) {
	p := list.FuzzyPolicy{Threshold: list.MergeThreshold}
	got := p.Match("Möhren", []string{"Möhre", "Möhren"})
	assert.Equal(t, 1, got, "the identical name outranks the near one")
}

func TestFuzzyPolicy_PrefixBonusForAutocomplete(t *testing.T) {
	// GIVEN: A short typed prefix that scores below the raw threshold
	// WHEN: The autocomplete policy applies its prefix bonus
	// THEN: The completion is found, capped at a score of 1.0

	p := list.FuzzyPolicy{
		Threshold:   list.AutocompleteThreshold,
		PrefixBonus: list.AutocompletePrefixBonus,
	}
	candidates := []string{"Milch", "Mehl", "Butter"}

	assert.Equal(t, 0, p.Match("mil", candidates))
	assert.Equal(t, -1, p.Match("zz", candidates))
}
