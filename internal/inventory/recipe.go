package inventory

import (
	"fmt"
	"sort"
)

// Ingredient is one tracked stock line.
type Ingredient string

const (
	Base    Ingredient = "base"
	Sauce   Ingredient = "sauce"
	Topping Ingredient = "topping"
)

// Ingredients returns the standard ingredient set in display order.
func Ingredients() []Ingredient {
	return []Ingredient{Base, Sauce, Topping}
}

// Requirements maps ingredients to unit counts.
type Requirements map[Ingredient]int

// Scale multiplies every requirement by n.
func (r Requirements) Scale(n int) Requirements {
	out := make(Requirements, len(r))
	for ing, amount := range r {
		out[ing] = amount * n
	}
	return out
}

// RecipeBook holds the per-pizza requirements for each size.
type RecipeBook map[string]Requirements

// DefaultRecipes are the shop's standard recipes.
var DefaultRecipes = RecipeBook{
	"small":  {Base: 1, Sauce: 1, Topping: 2},
	"medium": {Base: 2, Sauce: 1, Topping: 3},
	"large":  {Base: 3, Sauce: 2, Topping: 4},
}

// InvalidSizeError is returned when no recipe exists for a size. Submission
// validation makes this unreachable in practice.
type InvalidSizeError struct {
	Size string
}

func (e *InvalidSizeError) Error() string {
	return fmt.Sprintf("no recipe for size %q", e.Size)
}

// For returns the requirements for quantity pizzas of the given size.
func (b RecipeBook) For(size string, quantity int) (Requirements, error) {
	recipe, ok := b[size]
	if !ok {
		return nil, &InvalidSizeError{Size: size}
	}
	return recipe.Scale(quantity), nil
}

// sortIngredients orders ingredients by display order, unknown ones last
// and alphabetically, so events and logs are deterministic.
func sortIngredients(ings []Ingredient) {
	rank := func(ing Ingredient) int {
		for i, known := range Ingredients() {
			if known == ing {
				return i
			}
		}
		return len(Ingredients())
	}
	sort.Slice(ings, func(i, j int) bool {
		ri, rj := rank(ings[i]), rank(ings[j])
		if ri != rj {
			return ri < rj
		}
		return ings[i] < ings[j]
	})
}

func (r Requirements) sortedKeys() []Ingredient {
	keys := make([]Ingredient, 0, len(r))
	for ing := range r {
		keys = append(keys, ing)
	}
	sortIngredients(keys)
	return keys
}
