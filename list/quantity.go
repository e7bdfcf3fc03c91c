/*
Package list provides the shopping-list reconciliation engine.

PURPOSE:
  This package contains the core types and algorithms that keep a shared
  shopping list consistent with the meal plan that feeds it: a quantity
  algebra over multi-unit expressions, a name-identity resolver, a
  purchase-date scheduler, and the reconciler that ties them together.

KEY CONCEPTS IN THIS FILE (quantity.go):
  - Term: A single magnitude with an optional unit (e.g., 500 g)
  - Expression: A semicolon-separated list of terms with unique units
  - Merge: The one operation shared by add, edit, and remove - retraction
    is merging the algebraic negation of a prior contribution

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Composability: Merging is built so contributions can be applied and
     retracted in any order and still converge
  3. Degradation: Unparseable quantity fragments are carried verbatim
     instead of failing the write

WIRE FORMAT:
  Terms are joined with ";". Each term renders as "<number> <unit>" with
  a comma decimal separator; input accepts comma or dot. A term whose
  magnitude would drop to zero or below is removed, never stored.

SEE ALSO:
  - identity.go: Decides which list line a name belongs to
  - reconcile.go: Applies and retracts contributions via this algebra
*/
package list

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TERM - Magnitude plus optional unit
// =============================================================================

// Term is a single quantity: a signed magnitude and an optional unit.
// The empty unit is a unit value of its own ("3" and "3 g" never merge).
type Term struct {
	Value decimal.Decimal
	Unit  string
}

func (t Term) Format() string { return FormatQuantity(t.Value, t.Unit) }

func (t Term) Neg() Term { return Term{Value: t.Value.Neg(), Unit: t.Unit} }

// Vulgar fraction characters and their decimal values. Thirds, sixths,
// sevenths and ninths are rounded to three places, matching what users
// see on the list.
var vulgarFractions = map[string]decimal.Decimal{
	"½": decimal.RequireFromString("0.5"),
	"¼": decimal.RequireFromString("0.25"),
	"¾": decimal.RequireFromString("0.75"),
	"⅓": decimal.RequireFromString("0.333"),
	"⅔": decimal.RequireFromString("0.667"),
	"⅕": decimal.RequireFromString("0.2"),
	"⅖": decimal.RequireFromString("0.4"),
	"⅗": decimal.RequireFromString("0.6"),
	"⅘": decimal.RequireFromString("0.8"),
	"⅙": decimal.RequireFromString("0.167"),
	"⅚": decimal.RequireFromString("0.833"),
	"⅐": decimal.RequireFromString("0.143"),
	"⅑": decimal.RequireFromString("0.111"),
	"⅛": decimal.RequireFromString("0.125"),
	"⅜": decimal.RequireFromString("0.375"),
	"⅝": decimal.RequireFromString("0.625"),
	"⅞": decimal.RequireFromString("0.875"),
}

const fractionChars = "½¼¾⅓⅔⅕⅖⅗⅘⅙⅚⅐⅑⅛⅜⅝⅞"

var (
	// "1½ kg", "½ TL", "-¾"
	unicodeFractionRe = regexp.MustCompile(`^(-?)(\d*)([` + fractionChars + `])\s*(.*)$`)
	// "1/2 TL", "1 1/2 kg", "-3/4"
	asciiFractionRe = regexp.MustCompile(`^(-?)(?:(\d+)\s+)?(\d+)/(\d+)\s*(.*)$`)
	// "500 g", "0,5 l", "-300g"
	decimalRe = regexp.MustCompile(`^(-?\d+(?:[.,]\d+)?)\s*(.*)$`)
)

// ParseTerm parses a single quantity term: an optional leading minus,
// then a decimal number (comma or dot separator), a unicode vulgar
// fraction with optional whole prefix, or an ASCII fraction ("n/d" or
// "whole n/d"). The trimmed remainder is the unit.
//
// Returns false for anything it cannot parse; callers treat such
// fragments as opaque text rather than failing.
func ParseTerm(text string) (Term, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Term{}, false
	}

	if m := unicodeFractionRe.FindStringSubmatch(s); m != nil {
		frac, ok := vulgarFractions[m[3]]
		if !ok {
			return Term{}, false
		}
		value := frac
		if m[2] != "" {
			whole, err := decimal.NewFromString(m[2])
			if err != nil {
				return Term{}, false
			}
			value = whole.Add(frac)
		}
		if m[1] == "-" {
			value = value.Neg()
		}
		return Term{Value: value, Unit: strings.TrimSpace(m[4])}, true
	}

	if m := asciiFractionRe.FindStringSubmatch(s); m != nil {
		num, err1 := decimal.NewFromString(m[3])
		den, err2 := decimal.NewFromString(m[4])
		if err1 != nil || err2 != nil || den.IsZero() {
			return Term{}, false
		}
		value := num.Div(den).Round(3)
		if m[2] != "" {
			whole, err := decimal.NewFromString(m[2])
			if err != nil {
				return Term{}, false
			}
			value = whole.Add(value)
		}
		if m[1] == "-" {
			value = value.Neg()
		}
		return Term{Value: value, Unit: strings.TrimSpace(m[5])}, true
	}

	if m := decimalRe.FindStringSubmatch(s); m != nil {
		value, err := decimal.NewFromString(strings.Replace(m[1], ",", ".", 1))
		if err != nil {
			return Term{}, false
		}
		return Term{Value: value, Unit: strings.TrimSpace(m[2])}, true
	}

	return Term{}, false
}

// FormatQuantity renders a magnitude with its unit. Whole numbers render
// without a fractional part; everything else uses a comma separator.
func FormatQuantity(value decimal.Decimal, unit string) string {
	s := value.String()
	if !value.IsInteger() {
		s = strings.Replace(s, ".", ",", 1)
	}
	if unit != "" {
		s += " " + unit
	}
	return s
}

// =============================================================================
// MERGE - The single operation behind add, edit, and retract
// =============================================================================

// splitParts splits an expression on ";" and drops empty fragments.
func splitParts(expr string) []string {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	var parts []string
	for _, p := range strings.Split(expr, ";") {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// MergeQuantity merges incoming quantity text into an existing
// expression. The incoming text may itself carry several terms
// separated by ";". For each incoming term:
//
//   - a matching unit in the existing expression is summed; a sum of
//     zero or below removes that term entirely
//   - an unmatched positive term is appended as-is
//   - an unmatched negative term is discarded (nothing to subtract from)
//   - an unparseable fragment is appended verbatim
//
// Subtracting from an empty expression aborts the whole merge. The
// empty string result signals that the line must be deleted.
func MergeQuantity(existing, incoming string) string {
	parts := splitParts(existing)

	for _, in := range splitParts(incoming) {
		term, ok := ParseTerm(in)
		if !ok {
			parts = append(parts, in)
			continue
		}
		if len(parts) == 0 && term.Value.IsNegative() {
			// Cannot partially apply a subtraction against nothing.
			return ""
		}

		matched := false
		for i, p := range parts {
			pt, pok := ParseTerm(p)
			if !pok || pt.Unit != term.Unit {
				continue
			}
			matched = true
			sum := pt.Value.Add(term.Value)
			if sum.IsPositive() {
				parts[i] = FormatQuantity(sum, pt.Unit)
			} else {
				parts = append(parts[:i], parts[i+1:]...)
			}
			break
		}

		if !matched && term.Value.IsPositive() {
			parts = append(parts, in)
		}
	}

	return strings.Join(parts, ";")
}

// NegateQuantity returns the retraction form of an expression: every
// parseable term with its sign flipped. Unparseable fragments carry no
// magnitude and are dropped - there is nothing to subtract.
func NegateQuantity(expr string) string {
	var out []string
	for _, p := range splitParts(expr) {
		term, ok := ParseTerm(p)
		if !ok {
			continue
		}
		out = append(out, term.Neg().Format())
	}
	return strings.Join(out, ";")
}

// ScaleQuantity multiplies every parseable term by target/base, the
// person-count scaling rule. A base or target of zero or below leaves
// the expression untouched to avoid division surprises.
func ScaleQuantity(expr string, base, target int) string {
	if base <= 0 || target <= 0 || base == target {
		return expr
	}
	ratioNum := decimal.NewFromInt(int64(target))
	ratioDen := decimal.NewFromInt(int64(base))

	parts := splitParts(expr)
	for i, p := range parts {
		term, ok := ParseTerm(p)
		if !ok {
			continue
		}
		parts[i] = FormatQuantity(term.Value.Mul(ratioNum).Div(ratioDen), term.Unit)
	}
	return strings.Join(parts, ";")
}
