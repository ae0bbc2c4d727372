// Package tier maps a cumulative chat count to the engagement tier shown to
// users. Tiers are derived on read and never stored.
package tier

type Tier string

const (
	Unranked Tier = "unranked"
	Bronze   Tier = "bronze"
	Silver   Tier = "silver"
	Gold     Tier = "gold"
	Platinum Tier = "platinum"
	Diamond  Tier = "diamond"
)

// Descriptor is the display form of a tier.
type Descriptor struct {
	Tier  Tier   `json:"tier"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// Band is a half-open chat count range [Lower, Upper). Upper is 0 for the
// unbounded top band.
type Band struct {
	Descriptor
	Lower int `json:"lower"`
	Upper int `json:"upper,omitempty"`
}

// TierUpInfo is the payload surfaced to the client when a chat turn moves the
// user into a different tier.
type TierUpInfo struct {
	TieredUp bool   `json:"tieredUp"`
	OldTier  string `json:"oldTier"`
	NewTier  string `json:"newTier"`
	Color    string `json:"color"`
}

var bands = []Band{
	{Descriptor: Descriptor{Tier: Unranked, Label: "Novato", Color: "gray"}, Lower: 0, Upper: 1},
	{Descriptor: Descriptor{Tier: Bronze, Label: "Bronze", Color: "#CD7F32"}, Lower: 1, Upper: 5},
	{Descriptor: Descriptor{Tier: Silver, Label: "Prata", Color: "#C0C0C0"}, Lower: 5, Upper: 10},
	{Descriptor: Descriptor{Tier: Gold, Label: "Ouro", Color: "#FFD700"}, Lower: 10, Upper: 25},
	{Descriptor: Descriptor{Tier: Platinum, Label: "Platina", Color: "#E5E4E2"}, Lower: 25, Upper: 50},
	{Descriptor: Descriptor{Tier: Diamond, Label: "Diamante", Color: "#B9F2FF"}, Lower: 50},
}

// All returns the tier bands in ascending order.
func All() []Band {
	out := make([]Band, len(bands))
	copy(out, bands)
	return out
}

// Classify returns the tier for count. Negative counts are clamped to 0 and
// therefore classify as unranked.
func Classify(count int) Descriptor {
	return bands[bandIndex(count)].Descriptor
}

// NextThreshold returns the chat count at which the next tier begins, or
// false when count is already in the top band.
func NextThreshold(count int) (int, bool) {
	i := bandIndex(count)
	if i == len(bands)-1 {
		return 0, false
	}
	return bands[i].Upper, true
}

// TierUp reports the transition between the tiers of oldCount and newCount,
// or nil when both counts fall in the same tier. Callers must pass the
// before/after values of the one increment that produced newCount.
func TierUp(oldCount, newCount int) *TierUpInfo {
	from := Classify(oldCount)
	to := Classify(newCount)
	if from.Tier == to.Tier {
		return nil
	}
	return &TierUpInfo{
		TieredUp: true,
		OldTier:  from.Label,
		NewTier:  to.Label,
		Color:    to.Color,
	}
}

func bandIndex(count int) int {
	if count < 0 {
		count = 0
	}
	for i := len(bands) - 1; i > 0; i-- {
		if count >= bands[i].Lower {
			return i
		}
	}
	return 0
}

// Progress is a Descriptor plus the count where the next tier starts; nil on
// the top band.
type Progress struct {
	Descriptor
	NextTierAt *int `json:"nextTierAt"`
}

func ProgressFor(count int) Progress {
	p := Progress{Descriptor: Classify(count)}
	if next, ok := NextThreshold(count); ok {
		p.NextTierAt = &next
	}
	return p
}
