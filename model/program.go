package model

import (
	"time"

	"github.com/novanet-dev/nova-incentive-server/constdef"
)

// PoolKind identifies one of the three fixed reward budgets.
type PoolKind int

const (
	PoolBugBounty PoolKind = iota + 1
	PoolDapp
	PoolDeveloper
)

var poolKindStrings = map[PoolKind]string{
	PoolBugBounty: "bugbounty",
	PoolDapp:      "dapp",
	PoolDeveloper: "developer",
}

func (k PoolKind) String() string {
	if s, ok := poolKindStrings[k]; ok {
		return s
	}
	return "unknown"
}

// ParsePoolKind maps the wire representation back to a PoolKind. The zero
// value is returned for unrecognized input.
func ParsePoolKind(s string) PoolKind {
	for k, v := range poolKindStrings {
		if v == s {
			return k
		}
	}
	return 0
}

// PoolKinds lists every pool in a stable order.
func PoolKinds() []PoolKind {
	return []PoolKind{PoolBugBounty, PoolDapp, PoolDeveloper}
}

// Tier is the bug bounty severity classification. TierNone marks an address
// with no live assignment (never assigned, or already claimed).
type Tier int

const (
	TierNone Tier = iota
	TierLow
	TierMedium
	TierHigh
)

var tierStrings = map[Tier]string{
	TierNone:   "none",
	TierLow:    "low",
	TierMedium: "medium",
	TierHigh:   "high",
}

func (t Tier) String() string {
	if s, ok := tierStrings[t]; ok {
		return s
	}
	return "unknown"
}

func ParseTier(s string) Tier {
	switch s {
	case "low":
		return TierLow
	case "medium":
		return TierMedium
	case "high":
		return TierHigh
	}
	return TierNone
}

// ClaimCategory tags a claim ledger entry.
type ClaimCategory int

const (
	CategoryUnknown ClaimCategory = iota
	CategoryBugBounty
	CategoryDappRound
	CategoryDeployment
)

var categoryStrings = map[ClaimCategory]string{
	CategoryBugBounty:  "bugbounty",
	CategoryDappRound:  "dappround",
	CategoryDeployment: "deployment",
}

func (c ClaimCategory) String() string {
	if s, ok := categoryStrings[c]; ok {
		return s
	}
	return "unknown"
}

func ParseClaimCategory(s string) ClaimCategory {
	switch s {
	case "bugbounty":
		return CategoryBugBounty
	case "dappround":
		return CategoryDappRound
	case "deployment":
		return CategoryDeployment
	}
	return CategoryUnknown
}

// ProgramConfig carries the incentive program parameters. The pool and tier
// percentages are fixed at construction; the flat reward amounts may be
// updated by the admin at runtime (guarded by the reward manager).
type ProgramConfig struct {
	BugBountyPoolBps int
	DappPoolBps      int
	DeveloperPoolBps int

	TierLowBps    int
	TierMediumBps int
	TierHighBps   int

	MonthlyDappReward int64
	UptimeBonus       int64
	DeploymentReward  int64

	ClaimCooldown time.Duration

	// EngineAddress is the ledger account the program pays out of; the
	// emergency sweep drains this account's balance of a given token.
	EngineAddress string
}

// DefaultProgramConfig returns a config populated with the constdef defaults.
func DefaultProgramConfig() *ProgramConfig {
	return &ProgramConfig{
		BugBountyPoolBps:  constdef.DefaultBugBountyPoolBps,
		DappPoolBps:       constdef.DefaultDappPoolBps,
		DeveloperPoolBps:  constdef.DefaultDeveloperPoolBps,
		TierLowBps:        constdef.DefaultTierLowBps,
		TierMediumBps:     constdef.DefaultTierMediumBps,
		TierHighBps:       constdef.DefaultTierHighBps,
		MonthlyDappReward: constdef.DefaultMonthlyDappReward,
		UptimeBonus:       constdef.DefaultUptimeBonus,
		DeploymentReward:  constdef.DefaultDeploymentReward,
		ClaimCooldown:     constdef.DeploymentCooldown,
	}
}

// PoolBps returns the basis points of total supply earmarked for kind.
func (c *ProgramConfig) PoolBps(kind PoolKind) int {
	switch kind {
	case PoolBugBounty:
		return c.BugBountyPoolBps
	case PoolDapp:
		return c.DappPoolBps
	case PoolDeveloper:
		return c.DeveloperPoolBps
	}
	return 0
}

// TierBps returns the basis points of the bug bounty pool earmarked for tier.
func (c *ProgramConfig) TierBps(tier Tier) int {
	switch tier {
	case TierLow:
		return c.TierLowBps
	case TierMedium:
		return c.TierMediumBps
	case TierHigh:
		return c.TierHighBps
	}
	return 0
}
