package core

// ContextConfig controls context assembly. A plain value, constructed by the
// caller and passed in; there is no ambient default.
type ContextConfig struct {
	MaxTokens        int     `json:"max_tokens"`
	SystemPrompt     string  `json:"system_prompt"`
	MemoryMaxResults int     `json:"memory_max_results"`
	MemoryMinScore   float64 `json:"memory_min_score"`
}

// BuiltContext is the assembled, budget-bounded message sequence for one LLM
// call. Derived and disposable; never persisted.
type BuiltContext struct {
	Messages      []Message      `json:"messages"`
	TokenCount    int            `json:"token_count"`
	MemoryResults []SearchResult `json:"memory_results,omitempty"`
	Truncated     bool           `json:"truncated"`
}
