package domain

// Scale is a named, ordered list of permissible vote labels. The last
// label is conventionally the "no vote" marker.
type Scale struct {
	Name   string   `json:"name"`
	Label  string   `json:"label"`
	Values []string `json:"values"`
}

// DefaultScaleName is the scale a freshly created room starts with.
const DefaultScaleName = "fibonacci"

// The catalog is fixed at compile time and shared read-only by every
// room; rooms only ever change which entry is selected.
var scaleCatalog = []Scale{
	{
		Name:   "fibonacci",
		Label:  "Fibonacci",
		Values: []string{"0", "1", "2", "3", "5", "8", "13", "21", "?"},
	},
	{
		Name:   "modified-fibonacci",
		Label:  "Modified Fibonacci",
		Values: []string{"0", "½", "1", "2", "3", "5", "8", "13", "20", "40", "100", "?"},
	},
	{
		Name:   "t-shirt",
		Label:  "T-Shirt",
		Values: []string{"XS", "S", "M", "L", "XL", "?"},
	},
	{
		Name:   "powers-of-two",
		Label:  "Powers of Two",
		Values: []string{"1", "2", "4", "8", "16", "32", "?"},
	},
}

// Scales returns the full catalog in presentation order.
func Scales() []Scale {
	out := make([]Scale, len(scaleCatalog))
	copy(out, scaleCatalog)
	return out
}

// ScaleByName looks up a catalog entry by its internal key.
func ScaleByName(name string) (Scale, bool) {
	for _, s := range scaleCatalog {
		if s.Name == name {
			return s, true
		}
	}
	return Scale{}, false
}
