package persona

// Persona captures the automated party's presentation for one conversation.
// The name is surfaced to the user; the rest only steers generation.
type Persona struct {
	Name      string   `json:"name"`
	Voice     string   `json:"voice"`
	Interests []string `json:"interests,omitempty"`
}

// Seed provides the default agent personas conversations are drawn from.
func Seed() []Persona {
	return []Persona{
		{
			Name:      "Chris",
			Voice:     "friendly and matter-of-fact, asks a lot of questions",
			Interests: []string{"cycling", "board games", "coffee"},
		},
		{
			Name:      "Taylor",
			Voice:     "warm and curious, keeps messages short",
			Interests: []string{"theater", "cooking", "travel"},
		},
		{
			Name:      "Jordan",
			Voice:     "precise and calm, prefers concrete details",
			Interests: []string{"astronomy", "woodworking", "history"},
		},
		{
			Name:      "Sam",
			Voice:     "upbeat and encouraging, literal-minded",
			Interests: []string{"running", "photography", "gardening"},
		},
	}
}

// Topics lists the playground conversation topics a new conversation may be
// seeded with.
func Topics() []string {
	return []string{
		"urban gardening",
		"the history of writing systems",
		"home espresso",
		"birdwatching",
		"practical astronomy",
		"sourdough baking",
	}
}
