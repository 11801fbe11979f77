package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
)

// ErrUnknownMode is returned by LookupMode for names that match no mode.
var ErrUnknownMode = errors.New("unknown distribution mode")

// Mode selects how trade capacity is split between resources.
// Numeric values are the ones persisted by the mode store.
type Mode int

const (
	ModeEven Mode = iota
	ModeWoodOnly
	ModeStoneOnly
	ModeIronOnly
	ModeNoWood
	ModeNoStone
	ModeNoSilver // silver is the in-game name of iron
)

// Modes lists every recognized mode in numeric order.
var Modes = []Mode{
	ModeEven,
	ModeWoodOnly,
	ModeStoneOnly,
	ModeIronOnly,
	ModeNoWood,
	ModeNoStone,
	ModeNoSilver,
}

var modeNames = map[Mode]string{
	ModeEven:      "even",
	ModeWoodOnly:  "wood_only",
	ModeStoneOnly: "stone_only",
	ModeIronOnly:  "iron_only",
	ModeNoWood:    "no_wood",
	ModeNoStone:   "no_stone",
	ModeNoSilver:  "no_silver",
}

// ModeFromInt decodes a persisted mode value. Unrecognized values fall back to ModeEven.
func ModeFromInt(v int) Mode {
	m := Mode(v)
	if !m.Valid() {
		return ModeEven
	}
	return m
}

// ParseMode decodes a mode from its numeric form ("0".."6") or its name.
// It never fails: anything unrecognized yields ModeEven.
func ParseMode(s string) Mode {
	m, err := LookupMode(s)
	if err != nil {
		return ModeEven
	}
	return m
}

// LookupMode is the strict form of ParseMode.
// The error for an unknown name suggests the closest mode name when one is near enough.
func LookupMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		m := Mode(n)
		if !m.Valid() {
			return ModeEven, fmt.Errorf("%w: %d", ErrUnknownMode, n)
		}
		return m, nil
	}

	s = strings.ReplaceAll(strings.ReplaceAll(s, "-", "_"), " ", "_")
	for _, m := range Modes {
		if modeNames[m] == s {
			return m, nil
		}
	}

	if hint := suggestMode(s); hint != "" {
		return ModeEven, fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownMode, s, hint)
	}
	return ModeEven, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

func suggestMode(s string) string {
	if s == "" {
		return ""
	}
	best, bestDist := "", -1
	for _, m := range Modes {
		name := modeNames[m]
		dist := levenshtein.ComputeDistance(s, name)
		if dist > suggestLimit(len(name)) {
			continue
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = name, dist
		}
	}
	return best
}

func suggestLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

// Valid reports whether m is one of the seven recognized modes.
func (m Mode) Valid() bool {
	return m >= ModeEven && m <= ModeNoSilver
}

// Normalize maps unrecognized values to ModeEven.
func (m Mode) Normalize() Mode {
	if !m.Valid() {
		return ModeEven
	}
	return m
}

// IsPair reports whether m splits between two resources and excludes the third.
func (m Mode) IsPair() bool {
	switch m.Normalize() {
	case ModeNoWood, ModeNoStone, ModeNoSilver:
		return true
	default:
		return false
	}
}

// Active returns the resources that receive a base share under m, in redistribution order.
func (m Mode) Active() []Resource {
	switch m.Normalize() {
	case ModeWoodOnly:
		return []Resource{Wood}
	case ModeStoneOnly:
		return []Resource{Stone}
	case ModeIronOnly:
		return []Resource{Iron}
	case ModeNoWood:
		return []Resource{Stone, Iron}
	case ModeNoStone:
		return []Resource{Wood, Iron}
	case ModeNoSilver:
		return []Resource{Wood, Stone}
	default:
		return []Resource{Wood, Stone, Iron}
	}
}

// String returns the canonical mode name.
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}
