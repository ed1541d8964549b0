package pricing

// Wildcard is the per-provider fallback model key.
const Wildcard = "*"

// ModelPricing contains USD pricing per 1K tokens for a model.
type ModelPricing struct {
	InputPer1K  float64 `json:"inputPer1K" yaml:"input_per_1k"`
	OutputPer1K float64 `json:"outputPer1K" yaml:"output_per_1k"`
}

// fileFormat is the shape of PRICING_FILE and PRICING_JSON overrides.
type fileFormat struct {
	Providers map[string]map[string]ModelPricing `json:"providers" yaml:"providers"`
}

func defaultProviders() map[string]map[string]ModelPricing {
	return map[string]map[string]ModelPricing{
		"openai": {
			"gpt-4o":        {InputPer1K: 0.0025, OutputPer1K: 0.01},
			"gpt-4o-mini":   {InputPer1K: 0.00015, OutputPer1K: 0.0006},
			"gpt-4-turbo":   {InputPer1K: 0.01, OutputPer1K: 0.03},
			"gpt-4":         {InputPer1K: 0.03, OutputPer1K: 0.06},
			"gpt-3.5-turbo": {InputPer1K: 0.0005, OutputPer1K: 0.0015},
			"o1":            {InputPer1K: 0.015, OutputPer1K: 0.06},
			"o1-mini":       {InputPer1K: 0.003, OutputPer1K: 0.012},
			Wildcard:        {InputPer1K: 0.01, OutputPer1K: 0.03},
		},
		"anthropic": {
			"claude-opus-4":     {InputPer1K: 0.015, OutputPer1K: 0.075},
			"claude-sonnet-4":   {InputPer1K: 0.003, OutputPer1K: 0.015},
			"claude-3-5-sonnet": {InputPer1K: 0.003, OutputPer1K: 0.015},
			"claude-3-5-haiku":  {InputPer1K: 0.0008, OutputPer1K: 0.004},
			"claude-3-opus":     {InputPer1K: 0.015, OutputPer1K: 0.075},
			"claude-3-haiku":    {InputPer1K: 0.00025, OutputPer1K: 0.00125},
			Wildcard:            {InputPer1K: 0.003, OutputPer1K: 0.015},
		},
		"google": {
			"gemini-2.0-flash": {InputPer1K: 0.0001, OutputPer1K: 0.0004},
			"gemini-1.5-pro":   {InputPer1K: 0.00125, OutputPer1K: 0.005},
			"gemini-1.5-flash": {InputPer1K: 0.000075, OutputPer1K: 0.0003},
			Wildcard:           {InputPer1K: 0.001, OutputPer1K: 0.004},
		},
		"mistral": {
			"mistral-large-latest": {InputPer1K: 0.002, OutputPer1K: 0.006},
			"mistral-small-latest": {InputPer1K: 0.001, OutputPer1K: 0.003},
			Wildcard:               {InputPer1K: 0.002, OutputPer1K: 0.006},
		},
		"cohere": {
			"command-r-plus": {InputPer1K: 0.003, OutputPer1K: 0.015},
			"command-r":      {InputPer1K: 0.0005, OutputPer1K: 0.0015},
			Wildcard:         {InputPer1K: 0.001, OutputPer1K: 0.002},
		},
		"azure": {
			"gpt-4o":       {InputPer1K: 0.0025, OutputPer1K: 0.01},
			"gpt-4o-mini":  {InputPer1K: 0.00015, OutputPer1K: 0.0006},
			"gpt-35-turbo": {InputPer1K: 0.0005, OutputPer1K: 0.0015},
			Wildcard:       {InputPer1K: 0.01, OutputPer1K: 0.03},
		},
		"bedrock": {
			"anthropic.claude-3-5-sonnet-20241022-v2:0": {InputPer1K: 0.003, OutputPer1K: 0.015},
			"anthropic.claude-3-haiku-20240307-v1:0":    {InputPer1K: 0.00025, OutputPer1K: 0.00125},
			"meta.llama3-70b-instruct-v1:0":             {InputPer1K: 0.00265, OutputPer1K: 0.0035},
			Wildcard:                                    {InputPer1K: 0.003, OutputPer1K: 0.015},
		},
		"groq": {
			"llama-3.1-70b-versatile": {InputPer1K: 0.00059, OutputPer1K: 0.00079},
			"llama-3.1-8b-instant":    {InputPer1K: 0.00005, OutputPer1K: 0.00008},
			Wildcard:                  {InputPer1K: 0.0006, OutputPer1K: 0.0008},
		},
		"ollama": {
			Wildcard: {},
		},
		"local": {
			Wildcard: {},
		},
	}
}
