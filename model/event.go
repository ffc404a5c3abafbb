package model

// Event types recorded in the append-only event stream. The stream is
// informational; nothing in the engine reads it back.
const (
	EventWhitelistUpdated   = "whitelist.updated"
	EventClaimed            = "claimed"
	EventClaimAmountUpdated = "claim.amount.updated"
	EventModeChanged        = "mode.changed"
	EventSwept              = "swept"
)

// Event is an observability record emitted alongside state changes.
type Event struct {
	Type       string
	Attributes map[string]string
}

// RoundStatus is one round membership of an address together with its claim
// state.
type RoundStatus struct {
	RoundID int64
	Claimed bool
}

// ClaimOutcome is the result of one successful claim payout.
type ClaimOutcome struct {
	Address  string
	Category ClaimCategory
	RoundID  int64
	Amount   int64
}

// EligibilitySnapshot aggregates everything the registry knows about one
// address. Served from the read cache where possible.
type EligibilitySnapshot struct {
	Address    string
	Tier       Tier
	TierReward int64
	Deployer   bool
	GoodUptime bool
	Rounds     []RoundStatus
}
