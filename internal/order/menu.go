package order

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Menu is the ordered list of item kinds the shop sells.
type Menu []string

// DefaultMenu is the shop's standard menu.
var DefaultMenu = Menu{
	"Chef Sagir's Special",
	"Meat Feast",
	"Vegetable",
	"Margherita",
	"Pepperoni",
	"Vegetable (Vegan)",
	"Margherita (Vegan)",
}

var quoteFolder = strings.NewReplacer("‘", "'", "’", "'", "ʼ", "'")

// foldKey reduces user input to a comparison key: NFKC normalised, typographic
// apostrophes flattened, whitespace collapsed, case folded.
func foldKey(s string) string {
	s = norm.NFKC.String(s)
	s = quoteFolder.Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	// Casers carry state; one per call.
	return cases.Fold().String(s)
}

// Match returns the canonical menu spelling for input.
func (m Menu) Match(input string) (string, bool) {
	key := foldKey(input)
	if key == "" {
		return "", false
	}
	for _, kind := range m {
		if foldKey(kind) == key {
			return kind, true
		}
	}
	return "", false
}

// ParseSize maps user input such as "Small" or " LARGE " to a Size.
func ParseSize(input string) (Size, bool) {
	key := foldKey(input)
	for _, s := range Sizes() {
		if string(s) == key {
			return s, true
		}
	}
	return "", false
}
