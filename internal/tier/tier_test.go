package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForLifetime(t *testing.T) {
	tests := []struct {
		points int64
		want   Tier
	}{
		{0, Silver},
		{24999, Silver},
		{25000, Gold},
		{49999, Gold},
		{50000, Platinum},
		{1_000_000, Platinum},
		{-5, Silver},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ForLifetime(tt.points), "points=%d", tt.points)
	}
}

func TestNext(t *testing.T) {
	next, pts, ok := Next(Silver)
	assert.True(t, ok)
	assert.Equal(t, Gold, next)
	assert.EqualValues(t, 25000, pts)

	next, pts, ok = Next(Gold)
	assert.True(t, ok)
	assert.Equal(t, Platinum, next)
	assert.EqualValues(t, 50000, pts)

	_, _, ok = Next(Platinum)
	assert.False(t, ok)
}

func TestProgressOf(t *testing.T) {
	p := ProgressOf(Silver, 12500)
	assert.Equal(t, Gold, p.Next)
	assert.EqualValues(t, 12500, p.Remaining)
	assert.InDelta(t, 50.0, p.Percent, 0.001)

	p = ProgressOf(Gold, 60000)
	assert.EqualValues(t, 0, p.Remaining)
	assert.InDelta(t, 100.0, p.Percent, 0.001)

	p = ProgressOf(Platinum, 70000)
	assert.Empty(t, p.Next)
	assert.InDelta(t, 100.0, p.Percent, 0.001)
}

func TestParseAndOrdering(t *testing.T) {
	assert.Equal(t, Gold, Parse(" GOLD "))
	assert.Equal(t, Silver, Parse("bronze"))
	assert.True(t, Platinum.AtLeast(Gold))
	assert.False(t, Silver.AtLeast(Gold))
	assert.Equal(t, 1.5, Multiplier(Gold))
	assert.Equal(t, "Platinum", Platinum.Label())
}
