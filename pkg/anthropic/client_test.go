package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		name  string
		model string
		usage TokenUsage
		want  float64
	}{
		{
			name:  "haiku",
			model: "claude-haiku-4-5-20251001",
			usage: TokenUsage{InputTokens: 1_000_000, OutputTokens: 500_000},
			want:  0.80 + 2.00,
		},
		{
			name:  "sonnet",
			model: "claude-sonnet-4-5-20250929",
			usage: TokenUsage{InputTokens: 2_000_000, OutputTokens: 100_000},
			want:  6.00 + 1.50,
		},
		{
			name:  "unknown_model",
			model: "claude-nonexistent",
			usage: TokenUsage{InputTokens: 1_000_000},
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.usage.EstimateCost(tt.model), 1e-9)
		})
	}
}
