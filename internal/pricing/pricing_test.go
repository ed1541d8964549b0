package pricing

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCalculateCostResolution(t *testing.T) {
	table := NewTable()

	tests := []struct {
		name     string
		provider string
		model    string
		in, out  int64
		want     float64
	}{
		{name: "exact model", provider: "openai", model: "gpt-4o", in: 1000, out: 1000, want: 0.0125},
		{name: "provider case-insensitive", provider: "OpenAI", model: "gpt-4o-mini", in: 2000, out: 0, want: 0.0003},
		{name: "lower-cased model", provider: "anthropic", model: "Claude-3-Haiku", in: 4000, out: 0, want: 0.001},
		{name: "wildcard fallback", provider: "anthropic", model: "claude-next", in: 1000, out: 1000, want: 0.018},
		{name: "free local models", provider: "ollama", model: "llama3", in: 5000, out: 5000, want: 0},
		{name: "unknown provider", provider: "nope", model: "x", in: 1000, out: 1000, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.CalculateCost(tt.provider, tt.model, tt.in, tt.out)
			if !almostEqual(got, tt.want) {
				t.Fatalf("CalculateCost(%s,%s) = %v, want %v", tt.provider, tt.model, got, tt.want)
			}
		})
	}
}

func TestProvidersAndModelsSorted(t *testing.T) {
	table := NewTable()
	providers := table.Providers()
	for i := 1; i < len(providers); i++ {
		if providers[i-1] > providers[i] {
			t.Fatalf("providers not sorted: %v", providers)
		}
	}
	models := table.Models("openai")
	for _, m := range models {
		if m == Wildcard {
			t.Fatalf("wildcard must not be listed")
		}
	}
	if len(table.Models("ollama")) != 0 {
		t.Fatalf("expected no explicit ollama models")
	}
}

func TestSetOverridesPrice(t *testing.T) {
	table := NewTable()
	table.Set("Acme", "m1", ModelPricing{InputPer1K: 1, OutputPer1K: 2})
	if got := table.CalculateCost("acme", "m1", 1000, 1000); !almostEqual(got, 3) {
		t.Fatalf("expected 3, got %v", got)
	}
}

func TestLoadFileMergesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.yaml")
	body := `providers:
  openai:
    gpt-4o:
      input_per_1k: 0.005
      output_per_1k: 0.015
  acme:
    "*":
      input_per_1k: 0.1
      output_per_1k: 0.2
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	table := NewTable()
	if err := table.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := table.CalculateCost("openai", "gpt-4o", 1000, 1000); !almostEqual(got, 0.02) {
		t.Fatalf("expected override 0.02, got %v", got)
	}
	if got := table.CalculateCost("openai", "gpt-4", 1000, 0); !almostEqual(got, 0.03) {
		t.Fatalf("expected untouched default 0.03, got %v", got)
	}
	if got := table.CalculateCost("acme", "anything", 1000, 1000); !almostEqual(got, 0.3) {
		t.Fatalf("expected acme wildcard 0.3, got %v", got)
	}
}

func TestMergeJSONRejectsBadInput(t *testing.T) {
	table := NewTable()
	before := table.CalculateCost("openai", "gpt-4o", 1000, 1000)

	if err := table.MergeJSON(`{"providers":`); err == nil {
		t.Fatalf("expected parse error")
	}
	if err := table.MergeJSON(`{"providers":{"openai":{"gpt-4o":{"inputPer1K":-1}}}}`); err == nil {
		t.Fatalf("expected negative price error")
	}
	if got := table.CalculateCost("openai", "gpt-4o", 1000, 1000); !almostEqual(got, before) {
		t.Fatalf("defaults changed after bad input: %v", got)
	}
	if err := table.MergeJSON("  "); err != nil {
		t.Fatalf("blank override should be ignored: %v", err)
	}
	if err := table.MergeJSON(`{"providers":{"openai":{"gpt-4o":{"inputPer1K":0.001,"outputPer1K":0.001}}}}`); err != nil {
		t.Fatalf("MergeJSON: %v", err)
	}
	if got := table.CalculateCost("openai", "gpt-4o", 1000, 1000); !almostEqual(got, 0.002) {
		t.Fatalf("expected 0.002, got %v", got)
	}
}
