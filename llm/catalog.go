package llm

// ModelInfo describes a known model.
type ModelInfo struct {
	ID            string   `json:"id"`
	Provider      string   `json:"provider"`
	ContextWindow int      `json:"context_window"`
	SupportsTools bool     `json:"supports_tools"`
	Aliases       []string `json:"aliases,omitempty"`
}

// Catalog is the built-in model catalog. Entries are ordered newest first
// within each provider so LatestModel can return the head of the list.
var Catalog = []ModelInfo{
	{ID: "claude-opus-4-6", Provider: "anthropic", ContextWindow: 200000, SupportsTools: true, Aliases: []string{"opus"}},
	{ID: "claude-sonnet-4-5", Provider: "anthropic", ContextWindow: 200000, SupportsTools: true, Aliases: []string{"sonnet"}},
	{ID: "gpt-5.2", Provider: "openai", ContextWindow: 1047576, SupportsTools: true, Aliases: []string{"gpt5"}},
	{ID: "gpt-5.2-mini", Provider: "openai", ContextWindow: 1047576, SupportsTools: true, Aliases: []string{"gpt5-mini"}},
	{ID: "gemini-3-pro-preview", Provider: "gemini", ContextWindow: 1048576, SupportsTools: true, Aliases: []string{"gemini-pro"}},
	{ID: "gemini-3-flash-preview", Provider: "gemini", ContextWindow: 1048576, SupportsTools: true, Aliases: []string{"gemini-flash"}},
	{ID: "llama3.2", Provider: "ollama", ContextWindow: 131072, SupportsTools: false},
}

// LookupModel returns the catalog entry for an id or alias, or nil.
func LookupModel(id string) *ModelInfo {
	for i := range Catalog {
		if Catalog[i].ID == id {
			return &Catalog[i]
		}
		for _, alias := range Catalog[i].Aliases {
			if alias == id {
				return &Catalog[i]
			}
		}
	}
	return nil
}

// ModelsFor returns the catalog entries for a provider.
func ModelsFor(provider string) []ModelInfo {
	var out []ModelInfo
	for _, m := range Catalog {
		if m.Provider == provider {
			out = append(out, m)
		}
	}
	return out
}

// LatestModel returns the newest catalog entry for a provider, or nil.
func LatestModel(provider string) *ModelInfo {
	for i := range Catalog {
		if Catalog[i].Provider == provider {
			return &Catalog[i]
		}
	}
	return nil
}
