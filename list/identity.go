/*
identity.go - Item-name identity resolution

PURPOSE:
  Decides whether two item names denote the same shopping-list line.
  Wrong answers hurt in both directions: a false merge folds two real
  products into one line ("Kürbiskerne" absorbing "Kürbiskernöl"), a
  missed merge duplicates a line ("Möhre" next to "Möhren").

MATCH POLICIES:
  The exact/fuzzy decision is a policy object, not inline branching:

    ExactPolicy  - normalized case-insensitive equality only
    FuzzyPolicy  - best similarity ratio at or above a threshold,
                   optionally with a prefix bonus for autocomplete

  Callers select the policy: a name that exists verbatim in the target
  store's catalog only ever merges exactly; fuzzy matching is the
  fallback for names the catalog does not know.

THRESHOLDS:
  0.8  merging shopping-list lines
  0.6  suggesting a catalog product for a new line
  0.3  autocomplete, with a +0.3 prefix bonus capped at 1.0

SEE ALSO:
  - ingredient.go: Produces the names this file resolves
  - reconcile.go: Chooses the policy per item via the catalog check
*/
package list

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Similarity thresholds for the three fuzzy-matching callers.
const (
	MergeThreshold          = 0.8
	SuggestThreshold        = 0.6
	AutocompleteThreshold   = 0.3
	AutocompletePrefixBonus = 0.3
)

// =============================================================================
// NORMALIZATION
// =============================================================================

var umlautReplacer = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss")

// Normalize lowercases a name, maps German umlauts and ß to their ASCII
// digraphs, folds any remaining combining marks, and trims whitespace.
// The digraph mapping runs first so "ä" becomes "ae" rather than "a".
func Normalize(name string) string {
	s := norm.NFC.String(name)
	s = strings.ToLower(strings.TrimSpace(s))
	s = umlautReplacer.Replace(s)

	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var parentheticalRe = regexp.MustCompile(`\s*\([^)]*\)`)

// StripParenthetical removes every "(...)" segment from a name.
// Parentheses carry descriptive detail ("Mehl (Type 405)"), never
// identity, so they are excluded from all name comparisons.
func StripParenthetical(name string) string {
	return strings.TrimSpace(parentheticalRe.ReplaceAllString(name, ""))
}

// =============================================================================
// SIMILARITY - difflib-style ratio over matching blocks
// =============================================================================

// Similarity returns a ratio in [0,1]: twice the number of matching
// runes (found via recursive longest-common-block matching) divided by
// the combined length of both strings.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ra, rb, 0, len(ra), 0, len(rb))) / float64(total)
}

func matchingRunes(a, b []rune, alo, ahi, blo, bhi int) int {
	i, j, k := longestMatch(a, b, alo, ahi, blo, bhi)
	if k == 0 {
		return 0
	}
	return k +
		matchingRunes(a, b, alo, i, blo, j) +
		matchingRunes(a, b, i+k, ahi, j+k, bhi)
}

func longestMatch(a, b []rune, alo, ahi, blo, bhi int) (besti, bestj, bestk int) {
	b2j := make(map[rune][]int, bhi-blo)
	for j := blo; j < bhi; j++ {
		b2j[b[j]] = append(b2j[b[j]], j)
	}

	besti, bestj = alo, blo
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newj2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}
	return besti, bestj, bestk
}

// =============================================================================
// MATCH POLICIES
// =============================================================================

// MatchPolicy decides which candidate, if any, a query name resolves to.
type MatchPolicy interface {
	// Match returns the index of the matching candidate, or -1.
	Match(query string, candidates []string) int
}

// ExactPolicy matches only on case-insensitive equality of normalized
// forms. Used whenever the name exists verbatim in the store catalog.
type ExactPolicy struct{}

func (ExactPolicy) Match(query string, candidates []string) int {
	q := Normalize(query)
	for i, c := range candidates {
		if Normalize(c) == q {
			return i
		}
	}
	return -1
}

// FuzzyPolicy scores every candidate and returns the best one at or
// above Threshold. PrefixBonus, when set, boosts candidates whose
// normalized form starts with the query (capped at a score of 1.0).
type FuzzyPolicy struct {
	Threshold   float64
	PrefixBonus float64
}

func (p FuzzyPolicy) Match(query string, candidates []string) int {
	q := Normalize(query)
	best := -1
	bestScore := 0.0
	for i, c := range candidates {
		n := Normalize(c)
		score := Similarity(q, n)
		if p.PrefixBonus > 0 && q != "" && strings.HasPrefix(n, q) {
			score += p.PrefixBonus
			if score > 1.0 {
				score = 1.0
			}
		}
		if score >= p.Threshold && score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}
