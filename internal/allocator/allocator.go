// Package allocator splits a town's trade capacity between wood, stone and iron.
//
// Allocation happens in two phases. The base phase divides the total between
// the resources the mode makes active and caps each share at the town's stock.
// The redistribution phase spreads whatever the caps cut off over the
// resources that still have stock left, in the fixed order wood, stone, iron.
//
// When every eligible resource is saturated the result sums to less than the
// requested total. That is a valid outcome, not an error.
package allocator

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/udisondev/wonderhelper/internal/model"
)

// ErrInvalidTotal is returned for a negative total.
var ErrInvalidTotal = errors.New("invalid trade capacity total")

// Allocate splits total units according to mode.
// A nil stock means stock levels are unknown and caps are not applied.
// Unrecognized modes behave like model.ModeEven.
func Allocate(total int64, mode model.Mode, stock *model.Stock) (model.Allocation, error) {
	if total < 0 {
		return model.Allocation{}, fmt.Errorf("%w: %d", ErrInvalidTotal, total)
	}
	if total == 0 {
		return model.Allocation{}, nil
	}

	mode = mode.Normalize()
	amounts := baseShares(total, mode)

	if stock != nil {
		for _, r := range model.Resources {
			amounts[r] = min(amounts[r], stock.Get(r))
		}
	}

	rest := total - sum(amounts)
	if rest <= 0 {
		return model.NewAllocation(amounts), nil
	}

	allowed := eligible(mode, amounts, stock)
	if len(allowed) == 0 {
		return model.NewAllocation(amounts), nil
	}

	var room [model.ResourceCount]int64
	for _, r := range allowed {
		if stock == nil {
			// Nothing beyond rest can ever be added.
			room[r] = rest
		} else {
			room[r] = stock.Get(r) - amounts[r]
		}
	}

	res := redistribute(amounts, room, allowed, rest)
	if res.ceilingHit {
		slog.Warn("allocation pass ceiling reached",
			"total", total,
			"mode", mode.String(),
			"passes", res.passes,
			"undistributed", res.rest)
	}
	return model.NewAllocation(res.amounts), nil
}

// baseShares performs the integer base split for mode.
// The odd unit of a two-way split goes to the second resource of the pair.
func baseShares(total int64, mode model.Mode) [model.ResourceCount]int64 {
	var a [model.ResourceCount]int64
	switch mode {
	case model.ModeWoodOnly:
		a[model.Wood] = total
	case model.ModeStoneOnly:
		a[model.Stone] = total
	case model.ModeIronOnly:
		a[model.Iron] = total
	case model.ModeNoWood:
		a[model.Stone] = total / 2
		a[model.Iron] = total - a[model.Stone]
	case model.ModeNoStone:
		a[model.Wood] = total / 2
		a[model.Iron] = total - a[model.Wood]
	case model.ModeNoSilver:
		a[model.Wood] = total / 2
		a[model.Stone] = total - a[model.Wood]
	default:
		third := total / 3
		a[model.Wood], a[model.Stone], a[model.Iron] = third, third, third
	}
	return a
}

// eligible returns the resources that may receive remainder units.
// Pair modes only ever top up resources that got a base share, so the
// excluded resource stays at zero no matter how much stock it has.
func eligible(mode model.Mode, amounts [model.ResourceCount]int64, stock *model.Stock) []model.Resource {
	allowed := make([]model.Resource, 0, model.ResourceCount)
	for _, r := range model.Resources {
		if mode.IsPair() && amounts[r] == 0 {
			continue
		}
		if stock != nil && stock.Get(r) <= amounts[r] {
			continue
		}
		allowed = append(allowed, r)
	}
	return allowed
}

type spread struct {
	amounts    [model.ResourceCount]int64
	rest       int64
	passes     int
	ceilingHit bool
}

// redistribute places rest over allowed without exceeding room.
//
// The block step gives every allowed resource floor(rest/len(allowed)) capped
// by its room. The round-robin step then walks allowed in order, giving each
// resource with room left one unit per round. Whole rounds are handed out in a
// single pass of floor(rest/open) units, which yields the same result as going
// one unit at a time. Each pass either saturates a resource or leaves fewer
// units than open resources, and the pass after that finishes, so
// len(allowed)+2 passes always suffice.
func redistribute(amounts, room [model.ResourceCount]int64, allowed []model.Resource, rest int64) spread {
	give := func(r model.Resource, n int64) {
		n = min(n, room[r], rest)
		amounts[r] += n
		room[r] -= n
		rest -= n
	}

	per := rest / int64(len(allowed))
	if per > 0 {
		for _, r := range allowed {
			give(r, per)
		}
	}

	maxPasses := len(allowed) + 2
	passes := 0
	for rest > 0 {
		open := 0
		for _, r := range allowed {
			if room[r] > 0 {
				open++
			}
		}
		if open == 0 {
			break
		}
		if passes == maxPasses {
			return spread{amounts: amounts, rest: rest, passes: passes, ceilingHit: true}
		}
		passes++

		step := max(rest/int64(open), 1)
		for _, r := range allowed {
			if rest == 0 {
				break
			}
			if room[r] > 0 {
				give(r, step)
			}
		}
	}

	return spread{amounts: amounts, rest: rest, passes: passes}
}

func sum(a [model.ResourceCount]int64) int64 {
	var s int64
	for _, v := range a {
		s += v
	}
	return s
}
