package constdef

import "time"

const (
	MinPasswordLength = 6
	MaxPasswordLength = 40
)

// Percentages are expressed in basis points of the referenced budget.
const (
	BpsDenominator = 10_000

	DefaultBugBountyPoolBps = 3000
	DefaultDappPoolBps      = 4000
	DefaultDeveloperPoolBps = 3000

	// Tier shares are basis points of the bug bounty pool.
	DefaultTierLowBps    = 500
	DefaultTierMediumBps = 1500
	DefaultTierHighBps   = 3000
)

// Default reward amounts in base token units. The monthly dapp reward and the
// deployment reward are flat amounts; bulk pushes at launch are pool splits.
const (
	DefaultMonthlyDappReward int64 = 2_000
	DefaultUptimeBonus       int64 = 500
	DefaultDeploymentReward  int64 = 5_000
)

// DeploymentCooldown gates recurring developer claims. The window is measured
// from the last successful claim, not calendar months.
const DeploymentCooldown = 30 * 24 * time.Hour

const (
	AddressHexLength = 42 // 0x prefix plus 40 hex digits
	ZeroAddress      = "0x0000000000000000000000000000000000000000"
)

const EligibilityCacheSize = 4096
