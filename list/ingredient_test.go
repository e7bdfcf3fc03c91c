package list_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lka/einkaufsliste/list"
)

func TestParseIngredients_QuantityUnitName(t *testing.T) {
	got := list.ParseIngredients("500 g Mehl (Type 405)", nil)
	require.Len(t, got, 1)
	assert.Equal(t, "Mehl", got[0].Name)
	assert.Equal(t, "500 g", got[0].Quantity)
}

func TestParseIngredients_MultiLine(t *testing.T) {
	text := "500 g Mehl\n" +
		"2 Eier\n" +
		"½ TL Salz\n" +
		"1 1/2 kg Kartoffeln\n" +
		"0,5 l Milch\n" +
		"Pfeffer"

	got := list.ParseIngredients(text, nil)
	require.Len(t, got, 6)

	want := []list.Contribution{
		{Name: "Mehl", Quantity: "500 g"},
		{Name: "Eier", Quantity: "2"},
		{Name: "Salz", Quantity: "0,5 TL"},
		{Name: "Kartoffeln", Quantity: "1,5 kg"},
		{Name: "Milch", Quantity: "0,5 l"},
		{Name: "Pfeffer", Quantity: "1"},
	}
	assert.Equal(t, want, got)
}

func TestParseIngredients_SkipsBlankAndMarkupLines(t *testing.T) {
	text := "\n<b>Zutaten</b>\n500 g Mehl\n   \n<hr>\n"
	got := list.ParseIngredients(text, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "Mehl", got[0].Name)
}

func TestParseIngredients_NumberWithoutUnitWord(t *testing.T) {
	// "Zwiebeln" is not in the unit vocabulary, so "2" stays unit-less.
	got := list.ParseIngredients("2 Zwiebeln", nil)
	require.Len(t, got, 1)
	assert.Equal(t, "Zwiebeln", got[0].Name)
	assert.Equal(t, "2", got[0].Quantity)
}

func TestParseIngredients_UnitWordCaseInsensitive(t *testing.T) {
	got := list.ParseIngredients("2 el Öl", nil)
	require.Len(t, got, 1)
	assert.Equal(t, "Öl", got[0].Name)
	assert.Equal(t, "2 el", got[0].Quantity)
}

func TestParseIngredients_NoQuantityDefaultsToOne(t *testing.T) {
	// A retraction later needs a concrete magnitude to negate.
	got := list.ParseIngredients("Salz", nil)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].Quantity)
}

func TestParseIngredients_ParentheticalOnlyNameSkipped(t *testing.T) {
	got := list.ParseIngredients("(nach Belieben)", nil)
	assert.Empty(t, got)
}

func TestParseIngredients_CustomUnits(t *testing.T) {
	got := list.ParseIngredients("2 Tüten Gummibärchen", []string{"Tüten"})
	require.Len(t, got, 1)
	assert.Equal(t, "Gummibärchen", got[0].Name)
	assert.Equal(t, "2 Tüten", got[0].Quantity)
}
