package lottery

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"lottery/proc"
	"lottery/util/rand"
)

func TestPickIntervals(t *testing.T) {
	ws := []proc.Ttickets{200, 300, 300}
	assert.Equal(t, 0, pick(ws, 0))
	assert.Equal(t, 0, pick(ws, 199))
	assert.Equal(t, 1, pick(ws, 200))
	assert.Equal(t, 1, pick(ws, 499))
	assert.Equal(t, 2, pick(ws, 500))
	assert.Equal(t, 2, pick(ws, 799))
	assert.Equal(t, -1, pick(ws, 800))
	assert.Equal(t, -1, pick(ws, -1))
}

func TestPickSkipsZero(t *testing.T) {
	ws := []proc.Ttickets{0, 5, 0, 1}
	for r := int64(0); r < 5; r++ {
		assert.Equal(t, 1, pick(ws, r))
	}
	assert.Equal(t, 3, pick(ws, 5))
	assert.Equal(t, -1, pick(nil, 0))
}

func TestDrawInRange(t *testing.T) {
	r := rand.NewRand(7)
	ws := []proc.Ttickets{1, 2, 3}
	hits := make([]int, len(ws))
	for i := 0; i < 6000; i++ {
		j, v := draw(r, ws)
		assert.True(t, v >= 0 && v < total(ws), "v %d", v)
		hits[j]++
	}
	// Weight 3 wins about three times as often as weight 1.
	assert.InDelta(t, 3.0, float64(hits[2])/float64(hits[0]), 0.5)
}

func TestPickLargeWeights(t *testing.T) {
	ws := []proc.Ttickets{math.MaxInt, math.MaxInt, 1}
	assert.Equal(t, int64(math.MaxInt64), total(ws))
	assert.Equal(t, 0, pick(ws, 0))
	assert.Equal(t, 0, pick(ws, math.MaxInt64-1))
	assert.Equal(t, 1, pick(ws, math.MaxInt64))
	assert.Equal(t, -1, pick(ws, math.MinInt64))
}
