package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalIterationRecompute(t *testing.T) {
	tests := []struct {
		name      string
		state     SignalIterationState
		minNeeded int
		want      bool
	}{
		{"fresh state", SignalIterationState{Iteration: 0, MaxIterations: 3}, 2, true},
		{"enough signals", SignalIterationState{Iteration: 2, MaxIterations: 3, Found: 2}, 2, false},
		{"iterations exhausted", SignalIterationState{Iteration: 3, MaxIterations: 3, Found: 0}, 2, false},
		{"one short of minimum", SignalIterationState{Iteration: 1, MaxIterations: 3, Found: 1}, 2, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.state.Recompute(tc.minNeeded)
			assert.Equal(t, tc.want, tc.state.NeedsMore)
		})
	}
}

func TestNextCategoryFixedOrder(t *testing.T) {
	run := &ResearchRun{
		Categories: map[SignalCategory]*SignalIterationState{
			SignalJobOpenings: {NeedsMore: true},
			SignalCulture:     {NeedsMore: true},
			SignalGrowth:      {NeedsMore: false},
		},
	}

	cat, ok := run.NextCategory()
	assert.True(t, ok)
	assert.Equal(t, SignalCulture, cat, "culture precedes job_openings in the fixed order")

	run.Categories[SignalCulture].NeedsMore = false
	cat, ok = run.NextCategory()
	assert.True(t, ok)
	assert.Equal(t, SignalJobOpenings, cat)

	run.Categories[SignalJobOpenings].NeedsMore = false
	_, ok = run.NextCategory()
	assert.False(t, ok)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 1, ClampScore(0))
	assert.Equal(t, 1, ClampScore(-4))
	assert.Equal(t, 10, ClampScore(15))
	assert.Equal(t, 7, ClampScore(7))
}

func TestOverallFitScore(t *testing.T) {
	// 0.30*8 + 0.25*6 + 0.25*7 + 0.20*5 = 6.65 → 7
	assert.Equal(t, 7, OverallFitScore(8, 6, 7, 5))
	assert.Equal(t, 10, OverallFitScore(10, 10, 10, 10))
	assert.Equal(t, 1, OverallFitScore(1, 1, 1, 1))
	// Out-of-range model output is clamped before blending.
	assert.Equal(t, 10, OverallFitScore(40, 10, 10, 10))
}
