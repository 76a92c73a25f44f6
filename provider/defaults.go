package provider

// DefaultDescriptors returns the built-in vendor descriptor set with the
// default per-1K-token unit costs. Callers register adapters separately;
// availability defaults to true.
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{
			ID:              OpenAIGPT4,
			DisplayName:     "OpenAI GPT-4",
			Available:       true,
			InputCostPer1K:  0.03,
			OutputCostPer1K: 0.06,
		},
		{
			ID:              OpenAIGPT35,
			DisplayName:     "OpenAI GPT-3.5 Turbo",
			Available:       true,
			InputCostPer1K:  0.001,
			OutputCostPer1K: 0.002,
		},
		{
			ID:              AnthropicClaude,
			DisplayName:     "Anthropic Claude",
			Available:       true,
			InputCostPer1K:  0.008,
			OutputCostPer1K: 0.024,
		},
		{
			ID:              GoogleGemini,
			DisplayName:     "Google Gemini",
			Available:       true,
			InputCostPer1K:  0.00025,
			OutputCostPer1K: 0.0005,
		},
	}
}
