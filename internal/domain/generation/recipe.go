package generation

// Recipe is a validated recipe returned by the generation pipeline.
// RecipeName is never empty, Ingredients and Instructions always hold at
// least one entry and PrepTimeMinutes is positive.
type Recipe struct {
	RecipeName      string   `json:"recipeName"`
	Description     string   `json:"description"`
	Ingredients     []string `json:"ingredients"`
	Instructions    []string `json:"instructions"`
	PrepTimeMinutes int      `json:"prepTimeMinutes"`
}

// Clone returns a deep copy of the recipe
func (r Recipe) Clone() Recipe {
	out := r
	out.Ingredients = append([]string(nil), r.Ingredients...)
	out.Instructions = append([]string(nil), r.Instructions...)
	return out
}
