package incentivejson

// VersionResult models objects included in the version response.
type VersionResult struct {
	VersionString string `json:"version,omitempty"`
	Major         uint32 `json:"major,omitempty"`
	Minor         uint32 `json:"minor,omitempty"`
	Patch         uint32 `json:"patch,omitempty"`
}

// PoolInfoResult describes one reward pool and its consumption.
type PoolInfoResult struct {
	Kind          string `json:"kind"`
	AllocationBps int    `json:"allocation_bps"`
	Allocation    int64  `json:"allocation"`
	Claimed       int64  `json:"claimed"`
	Remaining     int64  `json:"remaining"`
}

// GetMetaInfoResult models objects included in the getmetainfo response.
type GetMetaInfoResult struct {
	StartTime   int64            `json:"start_time"`
	TotalSupply int64            `json:"total_supply"`
	Live        bool             `json:"live"`
	Distributed bool             `json:"distributed"`
	Paused      bool             `json:"paused"`
	NextRoundID int64            `json:"next_round_id"`
	LastSweep   string           `json:"last_sweep,omitempty"`
	Pools       []PoolInfoResult `json:"pools"`
}

// GetRemainingResult models objects included in the getremaining response.
type GetRemainingResult struct {
	Kind      string `json:"kind"`
	Remaining int64  `json:"remaining"`
}

// RoundMembershipResult is one round membership in an eligibility or claim
// record response.
type RoundMembershipResult struct {
	RoundID int64 `json:"round_id"`
	Claimed bool  `json:"claimed"`
}

// GetEligibilityResult models objects included in the geteligibility
// response.
type GetEligibilityResult struct {
	Address    string                  `json:"address"`
	Tier       string                  `json:"tier"`
	TierReward int64                   `json:"tier_reward"`
	Deployer   bool                    `json:"deployer"`
	GoodUptime bool                    `json:"good_uptime"`
	Rounds     []RoundMembershipResult `json:"rounds"`
}

// GetClaimRecordsResult models objects included in the getclaimrecords
// response.
type GetClaimRecordsResult struct {
	Address             string                  `json:"address"`
	BugBountyClaimed    bool                    `json:"bug_bounty_claimed"`
	LastDeploymentClaim string                  `json:"last_deployment_claim,omitempty"`
	Rounds              []RoundMembershipResult `json:"rounds"`
}

// TierRateResult is the current per-user reward for one tier.
type TierRateResult struct {
	Tier        string `json:"tier"`
	PerUser     int64  `json:"per_user"`
	MemberCount int64  `json:"member_count"`
}

// GetTierRatesResult models objects included in the gettierrates response.
type GetTierRatesResult struct {
	Rates []TierRateResult `json:"rates"`
}

// EventResult is one event stream entry.
type EventResult struct {
	EventID    string            `json:"event_id"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  string            `json:"created_at"`
}

// GetEventsResult models objects included in the getevents response.
type GetEventsResult struct {
	Events []EventResult `json:"events"`
	Total  int64         `json:"total"`
}

// RegisterTierResult models objects included in the registertier response.
type RegisterTierResult struct {
	Tier       string `json:"tier"`
	Registered int    `json:"registered"`
	PerUser    int64  `json:"per_user"`
}

// RegisterDeployerResult models objects included in the registerdeployer
// response.
type RegisterDeployerResult struct {
	Registered int `json:"registered"`
}

// RegisterDappRoundResult models objects included in the registerdappround
// response.
type RegisterDappRoundResult struct {
	RoundID    int64 `json:"round_id"`
	Registered int   `json:"registered"`
}

// SetLiveResult models objects included in the setlive response.
type SetLiveResult struct {
	Live        bool `json:"live"`
	Distributed bool `json:"distributed"`
}

// PauseResult models objects included in the pause and resume responses.
type PauseResult struct {
	Paused bool `json:"paused"`
}

// EmergencySweepResult models objects included in the emergencysweep
// response.
type EmergencySweepResult struct {
	Token  string `json:"token"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// SetRewardAmountResult models objects included in the set*reward responses.
type SetRewardAmountResult struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

// ClaimResult models objects included in every claim response.
type ClaimResult struct {
	Address  string `json:"address"`
	Category string `json:"category"`
	RoundID  int64  `json:"round_id,omitempty"`
	Amount   int64  `json:"amount"`
}
