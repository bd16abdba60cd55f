package schema

// WardrobeItem is a selectable garment. Identity is ID.
type WardrobeItem struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}

// WardrobeVersion tags the persisted wardrobe format.
const WardrobeVersion = "v1"

// DefaultWardrobe is used when no persisted wardrobe exists or it cannot be parsed.
func DefaultWardrobe() []WardrobeItem {
	return []WardrobeItem{
		{
			ID:   "gemini-sweat",
			Name: "Gemini Sweat",
			URL:  "https://raw.githubusercontent.com/ammaarreshi/app-images/refs/heads/main/gemini-sweat-2.png",
		},
		{
			ID:   "gemini-tee",
			Name: "Gemini Tee",
			URL:  "https://raw.githubusercontent.com/ammaarreshi/app-images/refs/heads/main/Gemini-tee.png",
		},
	}
}
