package model

import (
	"fmt"
	"math"
)

// Resource identifies one of the three tradeable goods.
type Resource int

const (
	Wood Resource = iota
	Stone
	Iron
)

// ResourceCount is the number of Resource variants.
const ResourceCount = 3

// Resources lists every resource in the fixed order used for redistribution.
var Resources = [ResourceCount]Resource{Wood, Stone, Iron}

// String returns the lowercase resource name.
func (r Resource) String() string {
	switch r {
	case Wood:
		return "wood"
	case Stone:
		return "stone"
	case Iron:
		return "iron"
	default:
		return fmt.Sprintf("resource(%d)", int(r))
	}
}

// Stock holds the current amount of each resource in a town.
// It is used as an upper bound on what may be sent.
// A nil *Stock means the stock is unknown and nothing is capped.
type Stock struct {
	Wood  int64
	Stone int64
	Iron  int64
}

// StockFromFloats builds a Stock from fractional readings.
// Values are truncated toward zero; negative and NaN readings become 0.
func StockFromFloats(wood, stone, iron float64) Stock {
	return Stock{
		Wood:  wholeUnits(wood),
		Stone: wholeUnits(stone),
		Iron:  wholeUnits(iron),
	}
}

func wholeUnits(v float64) int64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.Trunc(v))
}

// Get returns the stock of r. Negative stored values read as 0.
func (s Stock) Get(r Resource) int64 {
	var v int64
	switch r {
	case Wood:
		v = s.Wood
	case Stone:
		v = s.Stone
	case Iron:
		v = s.Iron
	}
	return max(v, 0)
}

// Allocation is the amount of each resource to send.
type Allocation struct {
	Wood  int64 `json:"wood"`
	Stone int64 `json:"stone"`
	Iron  int64 `json:"iron"`
}

// NewAllocation builds an Allocation from amounts indexed by Resource.
func NewAllocation(amounts [ResourceCount]int64) Allocation {
	return Allocation{
		Wood:  amounts[Wood],
		Stone: amounts[Stone],
		Iron:  amounts[Iron],
	}
}

// Get returns the amount allocated to r.
func (a Allocation) Get(r Resource) int64 {
	switch r {
	case Wood:
		return a.Wood
	case Stone:
		return a.Stone
	case Iron:
		return a.Iron
	default:
		return 0
	}
}

// Total returns the sum of all three amounts.
func (a Allocation) Total() int64 {
	return a.Wood + a.Stone + a.Iron
}

// Shortfall returns how many of the requested units were not placed.
// It is positive when stock caps saturated every eligible resource.
func (a Allocation) Shortfall(requested int64) int64 {
	return max(requested-a.Total(), 0)
}

// String implements fmt.Stringer.
func (a Allocation) String() string {
	return fmt.Sprintf("wood=%d stone=%d iron=%d", a.Wood, a.Stone, a.Iron)
}
