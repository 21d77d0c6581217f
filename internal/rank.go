package internal

import (
	"fmt"
	"strings"
)

// Rank is an ordered skill bracket: seven divided tiers of four divisions
// each, lowest (Iron IV) to highest (Diamond I), followed by the three
// undivided apex tiers. 31 values total.
type Rank int

const (
	RankMaster      Rank = 28
	RankGrandmaster Rank = 29
	RankChallenger  Rank = 30

	NumRanks = 31
)

var dividedTiers = []string{
	"IRON",
	"BRONZE",
	"SILVER",
	"GOLD",
	"PLATINUM",
	"EMERALD",
	"DIAMOND",
}

// Lowest (IV) to highest (I) keeps rank values increasing with skill.
var divisionOrder = []string{"IV", "III", "II", "I"}

var apexTiers = []string{"MASTER", "GRANDMASTER", "CHALLENGER"}

func (r Rank) Valid() bool {
	return r >= 0 && r < NumRanks
}

func (r Rank) IsApex() bool {
	return r >= RankMaster && r <= RankChallenger
}

func (r Rank) Tier() string {
	if !r.Valid() {
		return ""
	}
	if r.IsApex() {
		return apexTiers[int(r)-int(RankMaster)]
	}
	return dividedTiers[int(r)/len(divisionOrder)]
}

// Division returns the division within a divided tier, or "" for apex tiers.
func (r Rank) Division() string {
	if !r.Valid() || r.IsApex() {
		return ""
	}
	return divisionOrder[int(r)%len(divisionOrder)]
}

func (r Rank) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Rank(%d)", int(r))
	}
	if r.IsApex() {
		return r.Tier()
	}
	return r.Tier() + " " + r.Division()
}

// RankFromTier converts a Riot tier/division pair to its ordered Rank.
// Apex tiers accept an empty or "I" division; divided tiers require one.
func RankFromTier(tier, division string) (Rank, error) {
	normalizedTier := strings.ToUpper(strings.TrimSpace(tier))
	if normalizedTier == "" {
		return 0, fmt.Errorf("tier must be provided")
	}

	normalizedDivision := strings.ToUpper(strings.TrimSpace(division))

	for i, apex := range apexTiers {
		if normalizedTier != apex {
			continue
		}
		if normalizedDivision != "" && normalizedDivision != "I" {
			return 0, fmt.Errorf("tier %q does not use divisions, got %q", tier, division)
		}
		return RankMaster + Rank(i), nil
	}

	tierIndex := -1
	for i, t := range dividedTiers {
		if normalizedTier == t {
			tierIndex = i
			break
		}
	}
	if tierIndex < 0 {
		return 0, fmt.Errorf("unknown tier %q", tier)
	}

	if normalizedDivision == "" {
		return 0, fmt.Errorf("tier %q requires a division", tier)
	}
	for i, d := range divisionOrder {
		if normalizedDivision == d {
			return Rank(tierIndex*len(divisionOrder) + i), nil
		}
	}
	return 0, fmt.Errorf("unknown division %q for tier %q", division, tier)
}
