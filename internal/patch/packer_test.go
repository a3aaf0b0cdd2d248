package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewbot/internal/domain/model"
)

// byteCounter approximates tokens as bytes; deterministic for tests.
func byteCounter(text string) int { return len(text) }

func TestPacker_AddRespectsBudget(t *testing.T) {
	p := NewPacker(10, 0, byteCounter)

	assert.True(t, p.Add("12345"))
	assert.Equal(t, 5, p.Used())

	// Rejecting leaves the running count untouched.
	assert.False(t, p.Add("1234567"))
	assert.Equal(t, 5, p.Used())

	assert.True(t, p.Add("12345"))
	assert.Equal(t, 10, p.Used())
}

func TestPackHunks_GreedyStopsAtFirstOverflow(t *testing.T) {
	hunks := []model.Hunk{
		{NewStart: 1, NewEnd: 2, NewHunk: "aa", OldHunk: "aa"},
		{NewStart: 5, NewEnd: 9, NewHunk: "a very long hunk body that will not fit", OldHunk: "same"},
		{NewStart: 20, NewEnd: 21, NewHunk: "b", OldHunk: "b"},
	}

	small := byteCounter(FormatHunk(hunks[0]))
	p := NewPacker(small+10, 0, byteCounter)

	packed := PackHunks(p, hunks)

	// The third hunk would fit, but packing must not skip ahead past the
	// second: determinism over optimality.
	assert.Equal(t, 1, packed.Packed)
	assert.Equal(t, 3, packed.Total)
	require.Len(t, packed.Ranges, 1)
	assert.Equal(t, 1, packed.Ranges[0].NewStart)
}

func TestPackHunks_NeverExceedsBudget(t *testing.T) {
	hunks := []model.Hunk{
		{NewHunk: "alpha", OldHunk: "alpha"},
		{NewHunk: "beta", OldHunk: "beta"},
		{NewHunk: "gamma", OldHunk: "gamma"},
	}

	for budget := 0; budget < 200; budget += 17 {
		p := NewPacker(budget, 0, byteCounter)
		packed := PackHunks(p, hunks)
		assert.LessOrEqual(t, p.Used(), budget)
		assert.Equal(t, byteCounter(packed.Text), p.Used())
	}
}

func TestPackHunks_ZeroPacked(t *testing.T) {
	hunks := []model.Hunk{{NewHunk: "does not fit", OldHunk: "does not fit"}}
	p := NewPacker(1, 0, byteCounter)

	packed := PackHunks(p, hunks)
	assert.Zero(t, packed.Packed)
	assert.Empty(t, packed.Text)
}
