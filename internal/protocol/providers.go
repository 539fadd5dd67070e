package protocol

import "strings"

// ProviderSpec declares the capabilities of an evaluation provider. The
// requires-key decision is data, not a name check scattered across callers.
type ProviderSpec struct {
	Name        string
	Label       string
	RequiresKey bool
}

var providers = map[string]ProviderSpec{
	"auto":   {Name: "auto", Label: "Auto (first configured)", RequiresKey: false},
	"mock":   {Name: "mock", Label: "Mock (Demo)", RequiresKey: false},
	"openai": {Name: "openai", Label: "OpenAI", RequiresKey: true},
	"gemini": {Name: "gemini", Label: "Gemini", RequiresKey: true},
}

func NormalizeProvider(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func LookupProvider(name string) (ProviderSpec, bool) {
	spec, ok := providers[NormalizeProvider(name)]
	return spec, ok
}

func KnownProviders() []string {
	return []string{"auto", "mock", "openai", "gemini"}
}
