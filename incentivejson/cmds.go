package incentivejson

// VersionCmd defines the version JSON-RPC command.
type VersionCmd struct{}

// NewVersionCmd returns a new instance which can be used to issue a JSON-RPC
// version command.
func NewVersionCmd() *VersionCmd { return new(VersionCmd) }

// GetMetaInfoCmd defines the getmetainfo JSON-RPC command.
type GetMetaInfoCmd struct{}

func NewGetMetaInfoCmd() *GetMetaInfoCmd { return new(GetMetaInfoCmd) }

// GetPoolInfoCmd defines the getpoolinfo JSON-RPC command. An empty kind
// returns every pool.
type GetPoolInfoCmd struct {
	Kind string `json:"kind"`
}

func NewGetPoolInfoCmd(kind string) *GetPoolInfoCmd {
	return &GetPoolInfoCmd{Kind: kind}
}

// GetRemainingCmd defines the getremaining JSON-RPC command.
type GetRemainingCmd struct {
	Kind string `json:"kind"`
}

func NewGetRemainingCmd(kind string) *GetRemainingCmd {
	return &GetRemainingCmd{Kind: kind}
}

// GetEligibilityCmd defines the geteligibility JSON-RPC command.
type GetEligibilityCmd struct {
	Address string `json:"address"`
}

func NewGetEligibilityCmd(address string) *GetEligibilityCmd {
	return &GetEligibilityCmd{Address: address}
}

// GetClaimRecordsCmd defines the getclaimrecords JSON-RPC command.
type GetClaimRecordsCmd struct {
	Address string `json:"address"`
}

func NewGetClaimRecordsCmd(address string) *GetClaimRecordsCmd {
	return &GetClaimRecordsCmd{Address: address}
}

// GetTierRatesCmd defines the gettierrates JSON-RPC command.
type GetTierRatesCmd struct{}

func NewGetTierRatesCmd() *GetTierRatesCmd { return new(GetTierRatesCmd) }

// GetEventsCmd defines the getevents JSON-RPC command.
type GetEventsCmd struct {
	Page          int   `json:"page"`
	Num           int   `json:"num"`
	PositiveOrder *bool `json:"positive_order" jsonrpcdefault:"false"`
}

func NewGetEventsCmd(page int, num int, positiveOrder *bool) *GetEventsCmd {
	return &GetEventsCmd{
		Page:          page,
		Num:           num,
		PositiveOrder: positiveOrder,
	}
}

// RegisterTierCmd defines the registertier JSON-RPC command. The per-user
// rate for the tier is recomputed from this batch alone.
type RegisterTierCmd struct {
	Addresses []string `json:"addresses"`
	Tier      string   `json:"tier"`
}

func NewRegisterTierCmd(addresses []string, tier string) *RegisterTierCmd {
	return &RegisterTierCmd{
		Addresses: addresses,
		Tier:      tier,
	}
}

// RegisterDeployerCmd defines the registerdeployer JSON-RPC command.
type RegisterDeployerCmd struct {
	Addresses []string `json:"addresses"`
}

func NewRegisterDeployerCmd(addresses []string) *RegisterDeployerCmd {
	return &RegisterDeployerCmd{Addresses: addresses}
}

// RegisterDappRoundCmd defines the registerdappround JSON-RPC command. The
// flag list must match the address list element for element.
type RegisterDappRoundCmd struct {
	Addresses  []string `json:"addresses"`
	GoodUptime []bool   `json:"good_uptime"`
}

func NewRegisterDappRoundCmd(addresses []string, goodUptime []bool) *RegisterDappRoundCmd {
	return &RegisterDappRoundCmd{
		Addresses:  addresses,
		GoodUptime: goodUptime,
	}
}

// SetLiveCmd defines the setlive JSON-RPC command.
type SetLiveCmd struct{}

func NewSetLiveCmd() *SetLiveCmd { return new(SetLiveCmd) }

// PauseCmd defines the pause JSON-RPC command.
type PauseCmd struct{}

func NewPauseCmd() *PauseCmd { return new(PauseCmd) }

// ResumeCmd defines the resume JSON-RPC command.
type ResumeCmd struct{}

func NewResumeCmd() *ResumeCmd { return new(ResumeCmd) }

// EmergencySweepCmd defines the emergencysweep JSON-RPC command. It drains
// the engine's entire balance of the given token to the destination address.
type EmergencySweepCmd struct {
	Token string `json:"token"`
	To    string `json:"to"`
}

func NewEmergencySweepCmd(token string, to string) *EmergencySweepCmd {
	return &EmergencySweepCmd{
		Token: token,
		To:    to,
	}
}

// SetMonthlyDappRewardCmd defines the setmonthlydappreward JSON-RPC command.
type SetMonthlyDappRewardCmd struct {
	Amount int64 `json:"amount"`
}

func NewSetMonthlyDappRewardCmd(amount int64) *SetMonthlyDappRewardCmd {
	return &SetMonthlyDappRewardCmd{Amount: amount}
}

// SetUptimeBonusCmd defines the setuptimebonus JSON-RPC command.
type SetUptimeBonusCmd struct {
	Amount int64 `json:"amount"`
}

func NewSetUptimeBonusCmd(amount int64) *SetUptimeBonusCmd {
	return &SetUptimeBonusCmd{Amount: amount}
}

// SetDeploymentRewardCmd defines the setdeploymentreward JSON-RPC command.
type SetDeploymentRewardCmd struct {
	Amount int64 `json:"amount"`
}

func NewSetDeploymentRewardCmd(amount int64) *SetDeploymentRewardCmd {
	return &SetDeploymentRewardCmd{Amount: amount}
}

// ClaimBugBountyCmd defines the claimbugbounty JSON-RPC command.
type ClaimBugBountyCmd struct {
	Address string `json:"address"`
}

func NewClaimBugBountyCmd(address string) *ClaimBugBountyCmd {
	return &ClaimBugBountyCmd{Address: address}
}

// ClaimDappRoundCmd defines the claimdappround JSON-RPC command.
type ClaimDappRoundCmd struct {
	Address string `json:"address"`
	RoundID int64  `json:"round_id"`
}

func NewClaimDappRoundCmd(address string, roundID int64) *ClaimDappRoundCmd {
	return &ClaimDappRoundCmd{
		Address: address,
		RoundID: roundID,
	}
}

// ClaimDeploymentCmd defines the claimdeployment JSON-RPC command.
type ClaimDeploymentCmd struct {
	Address string `json:"address"`
}

func NewClaimDeploymentCmd(address string) *ClaimDeploymentCmd {
	return &ClaimDeploymentCmd{Address: address}
}

// ClaimCmd defines the generic claim JSON-RPC command. The category string
// selects the concrete claim; an empty or unknown category is rejected.
type ClaimCmd struct {
	Address  string `json:"address"`
	Category string `json:"category"`
	RoundID  *int64 `json:"round_id"`
}

func NewClaimCmd(address string, category string, roundID *int64) *ClaimCmd {
	return &ClaimCmd{
		Address:  address,
		Category: category,
		RoundID:  roundID,
	}
}

// SubscribeEventsCmd defines the subscribeevents JSON-RPC command. It is only
// usable over a websocket connection and registers the client for program
// notifications.
type SubscribeEventsCmd struct{}

func NewSubscribeEventsCmd() *SubscribeEventsCmd { return new(SubscribeEventsCmd) }

func init() {
	MustRegisterCmd("version", (*VersionCmd)(nil))
	MustRegisterCmd("getmetainfo", (*GetMetaInfoCmd)(nil))
	MustRegisterCmd("getpoolinfo", (*GetPoolInfoCmd)(nil))
	MustRegisterCmd("getremaining", (*GetRemainingCmd)(nil))
	MustRegisterCmd("geteligibility", (*GetEligibilityCmd)(nil))
	MustRegisterCmd("getclaimrecords", (*GetClaimRecordsCmd)(nil))
	MustRegisterCmd("gettierrates", (*GetTierRatesCmd)(nil))
	MustRegisterCmd("getevents", (*GetEventsCmd)(nil))
	MustRegisterCmd("registertier", (*RegisterTierCmd)(nil))
	MustRegisterCmd("registerdeployer", (*RegisterDeployerCmd)(nil))
	MustRegisterCmd("registerdappround", (*RegisterDappRoundCmd)(nil))
	MustRegisterCmd("setlive", (*SetLiveCmd)(nil))
	MustRegisterCmd("pause", (*PauseCmd)(nil))
	MustRegisterCmd("resume", (*ResumeCmd)(nil))
	MustRegisterCmd("emergencysweep", (*EmergencySweepCmd)(nil))
	MustRegisterCmd("setmonthlydappreward", (*SetMonthlyDappRewardCmd)(nil))
	MustRegisterCmd("setuptimebonus", (*SetUptimeBonusCmd)(nil))
	MustRegisterCmd("setdeploymentreward", (*SetDeploymentRewardCmd)(nil))
	MustRegisterCmd("claimbugbounty", (*ClaimBugBountyCmd)(nil))
	MustRegisterCmd("claimdappround", (*ClaimDappRoundCmd)(nil))
	MustRegisterCmd("claimdeployment", (*ClaimDeploymentCmd)(nil))
	MustRegisterCmd("claim", (*ClaimCmd)(nil))
	MustRegisterCmd("subscribeevents", (*SubscribeEventsCmd)(nil))
}
