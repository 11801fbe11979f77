package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStockFromFloats(t *testing.T) {
	tests := []struct {
		name              string
		wood, stone, iron float64
		want              Stock
	}{
		{"whole values", 100, 200, 300, Stock{Wood: 100, Stone: 200, Iron: 300}},
		{"fractions truncated", 2.9, 0.5, 7.01, Stock{Wood: 2, Stone: 0, Iron: 7}},
		{"negative clamps to zero", -3.5, 4, 0, Stock{Wood: 0, Stone: 4, Iron: 0}},
		{"nan clamps to zero", math.NaN(), 1, 1, Stock{Wood: 0, Stone: 1, Iron: 1}},
		{"huge saturates", math.Inf(1), 1, 1, Stock{Wood: math.MaxInt64, Stone: 1, Iron: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StockFromFloats(tt.wood, tt.stone, tt.iron))
		})
	}
}

func TestStock_Get(t *testing.T) {
	s := Stock{Wood: 5, Stone: -2, Iron: 9}

	assert.Equal(t, int64(5), s.Get(Wood))
	assert.Equal(t, int64(0), s.Get(Stone), "negative stock reads as zero")
	assert.Equal(t, int64(9), s.Get(Iron))
	assert.Equal(t, int64(0), s.Get(Resource(7)))
}

func TestAllocation(t *testing.T) {
	a := NewAllocation([ResourceCount]int64{Wood: 2, Stone: 4, Iron: 4})

	assert.Equal(t, Allocation{Wood: 2, Stone: 4, Iron: 4}, a)
	assert.Equal(t, int64(10), a.Total())
	assert.Equal(t, int64(4), a.Get(Stone))
	assert.Equal(t, int64(0), a.Shortfall(10))
	assert.Equal(t, int64(3), a.Shortfall(13))
	assert.Equal(t, int64(0), a.Shortfall(5), "over-placement never reports negative shortfall")
	assert.Equal(t, "wood=2 stone=4 iron=4", a.String())
}

func TestResource_String(t *testing.T) {
	assert.Equal(t, "wood", Wood.String())
	assert.Equal(t, "stone", Stone.String())
	assert.Equal(t, "iron", Iron.String())
	assert.Equal(t, "resource(3)", Resource(3).String())
}
