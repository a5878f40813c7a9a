// Package tier holds the single loyalty tier table.  The gateway uses it to
// derive a member's tier when points are accrued and the client uses it to
// render progress towards the next tier, so both sides read the same
// thresholds.
package tier

import "strings"

// Tier is one of the three ordered loyalty levels.
type Tier string

const (
	Silver   Tier = "silver"
	Gold     Tier = "gold"
	Platinum Tier = "platinum"
)

// level describes a tier: the lifetime points needed to reach it and the
// multiplier applied to points earned while in it.
type level struct {
	tier       Tier
	minimum    int64
	multiplier float64
	label      string
}

// levels is ordered from the entry tier upwards.
var levels = []level{
	{Silver, 0, 1.0, "Silver"},
	{Gold, 25000, 1.5, "Gold"},
	{Platinum, 50000, 2.0, "Platinum"},
}

// Parse converts a stored tier name into a Tier.  Unknown values fall back to
// the entry tier.
func Parse(s string) Tier {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := indexOf(t); ok {
		return t
	}
	return Silver
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	_, ok := indexOf(t)
	return ok
}

// Label returns the display name of the tier.
func (t Tier) Label() string {
	if i, ok := indexOf(t); ok {
		return levels[i].label
	}
	return string(t)
}

// AtLeast reports whether t ranks at or above other.
func (t Tier) AtLeast(other Tier) bool {
	i, ok := indexOf(t)
	j, ok2 := indexOf(other)
	return ok && ok2 && i >= j
}

// ForLifetime returns the highest tier whose threshold lifetime reaches.
func ForLifetime(lifetime int64) Tier {
	out := levels[0].tier
	for _, l := range levels {
		if lifetime >= l.minimum {
			out = l.tier
		}
	}
	return out
}

// Threshold returns the lifetime points required to reach t.
func Threshold(t Tier) int64 {
	if i, ok := indexOf(t); ok {
		return levels[i].minimum
	}
	return 0
}

// Multiplier returns the points multiplier for t.
func Multiplier(t Tier) float64 {
	if i, ok := indexOf(t); ok {
		return levels[i].multiplier
	}
	return 1.0
}

// Next returns the tier above t and the lifetime points needed to reach it.
// ok is false when t is already the top tier.
func Next(t Tier) (next Tier, points int64, ok bool) {
	i, found := indexOf(t)
	if !found || i+1 >= len(levels) {
		return "", 0, false
	}
	l := levels[i+1]
	return l.tier, l.minimum, true
}

// Progress summarises how far a member is from the next tier.
type Progress struct {
	Current   Tier    `json:"current"`
	Next      Tier    `json:"next,omitempty"`
	Target    int64   `json:"target,omitempty"`
	Remaining int64   `json:"remaining"`
	Percent   float64 `json:"percent"`
}

// ProgressOf computes progress for a member with the given tier and lifetime
// points.  Percent is clamped to [0, 100]; top-tier members are always at 100.
func ProgressOf(current Tier, lifetime int64) Progress {
	p := Progress{Current: current, Percent: 100}
	next, target, ok := Next(current)
	if !ok {
		return p
	}
	p.Next = next
	p.Target = target
	if lifetime < target {
		p.Remaining = target - lifetime
	}
	pct := float64(lifetime) / float64(target) * 100
	switch {
	case pct < 0:
		pct = 0
	case pct > 100:
		pct = 100
	}
	p.Percent = pct
	return p
}

func indexOf(t Tier) (int, bool) {
	for i, l := range levels {
		if l.tier == t {
			return i, true
		}
	}
	return -1, false
}
