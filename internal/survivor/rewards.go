package survivor

// Grant is one item (or survival stat) handed out by a reward pool.
type Grant struct {
	Item   string  `json:"item" yaml:"item"`
	Amount float64 `json:"amount" yaml:"amount"`
}

// Rewards maps pool names to their grants.
type Rewards map[string][]Grant

// DefaultRewards covers the pools used by the built-in content.
func DefaultRewards() Rewards {
	return Rewards{
		"forage_berries": {{Item: "berries", Amount: 2}, {Item: "calories", Amount: 5}},
		"fresh_water":    {{Item: "water", Amount: 2}, {Item: "hydration", Amount: 20}},
		"elk_meat":       {{Item: "meat", Amount: 6}, {Item: "hide", Amount: 1}},
		"small_game":     {{Item: "meat", Amount: 2}},
		"firewood":       {{Item: "firewood", Amount: 3}},
	}
}
