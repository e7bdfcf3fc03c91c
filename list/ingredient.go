/*
ingredient.go - Free-text ingredient parsing

PURPOSE:
  Turns recipe ingredient text into (name, quantity) contributions the
  reconciler can apply and, later, retract. One line per ingredient.

RULES:
  - Blank lines and lines containing angle-bracket markup are skipped
  - A leading quantity token follows the quantity grammar (quantity.go),
    optionally followed by a word from the unit vocabulary
  - Parenthetical segments are descriptive, not identity, and are
    stripped from the name entirely
  - A line with no quantity token defaults to the literal "1" - never
    "no quantity" - so a later retraction has something to negate

SEE ALSO:
  - quantity.go: The quantity token grammar
  - reconcile.go: Applies the parsed contributions
*/
package list

import (
	"strings"
)

// DefaultUnits is the unit vocabulary recognized after a bare number.
// Hosts may pass their own list (the units catalog is user-editable).
var DefaultUnits = []string{
	"g", "kg", "ml", "l", "TL", "EL",
	"Stück", "Packung", "Packungen", "Prise",
	"Dose", "Dosen", "Becher", "Bund",
	"Zehe", "Zehen", "Scheibe", "Scheiben",
}

// ParseIngredients splits free text into contributions, one per line.
// A nil units slice selects DefaultUnits.
func ParseIngredients(text string, units []string) []Contribution {
	if units == nil {
		units = DefaultUnits
	}
	var out []Contribution
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.ContainsAny(line, "<>") {
			continue
		}
		if c, ok := parseIngredientLine(line, units); ok {
			out = append(out, c)
		}
	}
	return out
}

// parseIngredientLine extracts the leading quantity token and unit word,
// treating the remainder as the item name.
func parseIngredientLine(line string, units []string) (Contribution, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Contribution{}, false
	}

	quantity := "1"
	rest := fields

	token := fields[0]
	consumed := 1
	// Mixed ASCII fractions span two fields ("1 1/2 kg").
	if len(fields) > 1 && strings.Contains(fields[1], "/") {
		if t, ok := ParseTerm(token + " " + fields[1]); ok && t.Unit == "" {
			token = token + " " + fields[1]
			consumed = 2
		}
	}

	if term, ok := ParseTerm(token); ok && term.Unit == "" {
		rest = fields[consumed:]
		unit := ""
		if len(rest) > 0 && isUnitWord(rest[0], units) {
			unit = rest[0]
			rest = rest[1:]
		}
		quantity = FormatQuantity(term.Value, unit)
	}

	name := StripParenthetical(strings.Join(rest, " "))
	if name == "" {
		return Contribution{}, false
	}
	return Contribution{Name: name, Quantity: quantity}, true
}

func isUnitWord(word string, units []string) bool {
	for _, u := range units {
		if strings.EqualFold(word, u) {
			return true
		}
	}
	return false
}
