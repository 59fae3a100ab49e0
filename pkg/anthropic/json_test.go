package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain object",
			in:   `{"score": 7}`,
			want: `{"score": 7}`,
		},
		{
			name: "json code fence",
			in:   "```json\n{\"score\": 7}\n```",
			want: `{"score": 7}`,
		},
		{
			name: "bare code fence",
			in:   "```\n{\"score\": 7}\n```",
			want: `{"score": 7}`,
		},
		{
			name: "leading prose",
			in:   "Here is the result:\n{\"score\": 7}\nHope that helps!",
			want: `{"score": 7}`,
		},
		{
			name: "array result",
			in:   "The companies are:\n[{\"name\": \"Acme\"}]",
			want: `[{"name": "Acme"}]`,
		},
		{
			name: "array before nested object",
			in:   `[{"a": 1}, {"b": 2}]`,
			want: `[{"a": 1}, {"b": 2}]`,
		},
		{
			name: "no json at all",
			in:   "sorry, I cannot do that",
			want: "sorry, I cannot do that",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanJSON(tc.in))
		})
	}
}

func TestTokenUsageAdd(t *testing.T) {
	u := TokenUsage{InputTokens: 100, OutputTokens: 50}
	u.Add(TokenUsage{InputTokens: 10, OutputTokens: 5, CacheReadInputTokens: 20})

	assert.Equal(t, int64(110), u.InputTokens)
	assert.Equal(t, int64(55), u.OutputTokens)
	assert.Equal(t, int64(20), u.CacheReadInputTokens)
}

func TestEstimateCost(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 4.80, u.EstimateCost("claude-haiku-4-5-20251001"), 1e-9)
	assert.Zero(t, u.EstimateCost("unknown-model"))
}

func TestBuildCachedSystemBlocks(t *testing.T) {
	blocks := BuildCachedSystemBlocks("you are a researcher")
	assert.Len(t, blocks, 1)
	assert.Equal(t, "you are a researcher", blocks[0].Text)
	assert.Equal(t, "1h", blocks[0].CacheControl.TTL)
}
