package rewardmgr

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/novanet-dev/nova-incentive-server/constdef"
	"github.com/novanet-dev/nova-incentive-server/incentivejson"
	"github.com/novanet-dev/nova-incentive-server/ledgerclient"
	"github.com/novanet-dev/nova-incentive-server/modectrl"
	"github.com/novanet-dev/nova-incentive-server/model"
	"github.com/novanet-dev/nova-incentive-server/service"
	"github.com/novanet-dev/nova-incentive-server/utils"

	"gorm.io/gorm"
)

// Config holds the collaborators a RewardManager needs.
type Config struct {
	DB      *gorm.DB
	Ledger  ledgerclient.Ledger
	Mode    *modectrl.ModeController
	Clock   clockwork.Clock
	Program *model.ProgramConfig
}

// RewardManager computes reward amounts and performs pool-funded payouts.
// Every mutating entry point runs as a single database transaction with the
// external transfer as its last step, so a failed payout rolls back all
// pool and ledger bookkeeping. claimMu serializes those transactions; only
// one unit of work touches the shared pools at a time.
type RewardManager struct {
	db     *gorm.DB
	ledger ledgerclient.Ledger
	mode   *modectrl.ModeController

	paramsMu sync.RWMutex
	program  model.ProgramConfig

	claimMu sync.Mutex

	clock clockwork.Clock

	metaInfoService service.MetaInfoService
	registryService service.RegistryService
	poolService     service.PoolService
	claimLedger     service.ClaimLedgerService
	eventService    service.EventService

	eligibilityCache *utils.EligibilityCache

	notificationsLock sync.RWMutex
	notifications     []NotificationCallback
}

func NewRewardManager(cfg *Config) (*RewardManager, error) {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	cache, err := utils.NewEligibilityCache(constdef.EligibilityCacheSize)
	if err != nil {
		return nil, err
	}

	rm := &RewardManager{
		db:               cfg.DB,
		ledger:           cfg.Ledger,
		mode:             cfg.Mode,
		program:          *cfg.Program,
		clock:            clock,
		metaInfoService:  service.GetMetaInfoService(),
		registryService:  service.GetRegistryService(),
		poolService:      service.GetPoolService(),
		claimLedger:      service.NewClaimLedgerService(clock),
		eventService:     service.GetEventService(),
		eligibilityCache: cache,
	}
	if err := rm.restoreParams(context.Background()); err != nil {
		return nil, err
	}
	return rm, nil
}

// restoreParams replays the newest claim-amount-updated audit event per
// parameter name so admin updates survive a restart. Configured defaults
// only apply to parameters that were never changed.
func (r *RewardManager) restoreParams(ctx context.Context) error {
	applied := make(map[string]struct{})

	for page := 1; len(applied) < 3; page++ {
		events, err := r.eventService.GetByType(ctx, r.db,
			model.EventClaimAmountUpdated, page, 100, false)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		for _, event := range events {
			var attrs map[string]string
			if err := json.Unmarshal([]byte(event.Attributes), &attrs); err != nil {
				return err
			}
			name := attrs["name"]
			if _, ok := applied[name]; ok {
				continue
			}
			amount, err := strconv.ParseInt(attrs["amount"], 10, 64)
			if err != nil {
				return err
			}

			switch name {
			case "monthly_dapp_reward":
				r.program.MonthlyDappReward = amount
			case "uptime_bonus":
				r.program.UptimeBonus = amount
			case "deployment_reward":
				r.program.DeploymentReward = amount
			default:
				continue
			}
			applied[name] = struct{}{}
			log.Debugf("Restored reward parameter %v to %v", name, amount)
		}
	}
	return nil
}

// Program returns a copy of the current reward parameters.
func (r *RewardManager) Program() model.ProgramConfig {
	r.paramsMu.RLock()
	defer r.paramsMu.RUnlock()
	return r.program
}

// GetEligibility serves a snapshot for the address, from the read cache when
// the address has not been touched by a write since the last lookup.
func (r *RewardManager) GetEligibility(ctx context.Context, address string) (*model.EligibilitySnapshot, error) {
	if snapshot, ok := r.eligibilityCache.Get(address); ok {
		return snapshot, nil
	}

	snapshot, err := r.registryService.GetEligibility(ctx, r.db.WithContext(ctx), address)
	if err != nil {
		return nil, err
	}
	r.eligibilityCache.Set(snapshot)
	return snapshot, nil
}

// AssignTier whitelists researcher addresses at a severity tier. Allowed in
// any mode; registration is an admin operation.
func (r *RewardManager) AssignTier(ctx context.Context, addresses []string, tier model.Tier) (int, int64, error) {
	r.claimMu.Lock()
	defer r.claimMu.Unlock()

	program := r.Program()

	var registered int
	var perUser int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		registered, perUser, err = r.registryService.AssignTier(ctx, tx, &program, addresses, tier)
		if err != nil {
			return err
		}
		return r.eventService.Append(ctx, tx, &model.Event{
			Type: model.EventWhitelistUpdated,
			Attributes: map[string]string{
				"category":   model.CategoryBugBounty.String(),
				"tier":       tier.String(),
				"registered": strconv.Itoa(registered),
				"per_user":   strconv.FormatInt(perUser, 10),
			},
		})
	})
	if err != nil {
		return 0, 0, err
	}

	r.eligibilityCache.Purge()
	r.sendNotification(NTWhitelistUpdated, &WhitelistUpdate{
		Category:   model.CategoryBugBounty.String(),
		Registered: registered,
	})
	log.Infof("Assigned tier %v to %v addresses, per-user reward %v", tier, registered, perUser)
	return registered, perUser, nil
}

// RegisterDeployer whitelists infrastructure developer addresses.
func (r *RewardManager) RegisterDeployer(ctx context.Context, addresses []string) (int, error) {
	r.claimMu.Lock()
	defer r.claimMu.Unlock()

	var registered int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		registered, err = r.registryService.RegisterDeployer(ctx, tx, addresses)
		if err != nil {
			return err
		}
		return r.eventService.Append(ctx, tx, &model.Event{
			Type: model.EventWhitelistUpdated,
			Attributes: map[string]string{
				"category":   model.CategoryDeployment.String(),
				"registered": strconv.Itoa(registered),
			},
		})
	})
	if err != nil {
		return 0, err
	}

	r.eligibilityCache.Purge()
	r.sendNotification(NTWhitelistUpdated, &WhitelistUpdate{
		Category:   model.CategoryDeployment.String(),
		Registered: registered,
	})
	log.Infof("Registered %v deployer addresses", registered)
	return registered, nil
}

// RegisterDappRound opens a new monthly dapp round.
func (r *RewardManager) RegisterDappRound(ctx context.Context, addresses []string, goodUptime []bool) (int64, int, error) {
	r.claimMu.Lock()
	defer r.claimMu.Unlock()

	var roundID int64
	var registered int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		roundID, registered, err = r.registryService.RegisterDappRound(ctx, tx, addresses, goodUptime)
		if err != nil {
			return err
		}
		return r.eventService.Append(ctx, tx, &model.Event{
			Type: model.EventWhitelistUpdated,
			Attributes: map[string]string{
				"category":   model.CategoryDappRound.String(),
				"round_id":   strconv.FormatInt(roundID, 10),
				"registered": strconv.Itoa(registered),
			},
		})
	})
	if err != nil {
		return 0, 0, err
	}

	r.eligibilityCache.Purge()
	r.sendNotification(NTWhitelistUpdated, &WhitelistUpdate{
		Category:   model.CategoryDappRound.String(),
		Registered: registered,
	})
	log.Infof("Opened dapp round %v with %v members", roundID, registered)
	return roundID, registered, nil
}

// SetLive transitions the program to Live, running the one-time launch
// distribution on the first call.
func (r *RewardManager) SetLive(ctx context.Context) (*modectrl.Status, error) {
	r.claimMu.Lock()
	defer r.claimMu.Unlock()

	status, err := r.mode.SetLive(ctx, r.bulkDistribute)
	if err != nil {
		return nil, err
	}
	r.sendNotification(NTModeChanged, status)
	return status, nil
}

// Pause stops payouts.
func (r *RewardManager) Pause(ctx context.Context) (*modectrl.Status, error) {
	status, err := r.mode.Pause(ctx)
	if err != nil {
		return nil, err
	}
	r.sendNotification(NTModeChanged, status)
	return status, nil
}

// Resume re-enables payouts.
func (r *RewardManager) Resume(ctx context.Context) (*modectrl.Status, error) {
	status, err := r.mode.Resume(ctx)
	if err != nil {
		return nil, err
	}
	r.sendNotification(NTModeChanged, status)
	return status, nil
}

// bulkDistribute is the one-time launch push: an even split of the dapp pool
// over the distinct dapp membership (plus uptime bonuses), then an even split
// of the developer pool over the deployer whitelist. Each address is paid at
// most once regardless of how many rounds it belongs to. Developer pushes set
// no claim flag; recurring deployment claims stay independent.
func (r *RewardManager) bulkDistribute(ctx context.Context, tx *gorm.DB) error {
	program := r.Program()

	if err := r.bulkPushDapp(ctx, tx, &program); err != nil {
		return err
	}
	return r.bulkPushDeveloper(ctx, tx)
}

func (r *RewardManager) bulkPushDapp(ctx context.Context, tx *gorm.DB, program *model.ProgramConfig) error {
	members, err := r.registryService.DistinctDappMembers(ctx, tx)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		log.Infof("No dapp members registered, skipping dapp launch push")
		return nil
	}

	pool, err := r.poolService.GetPool(ctx, tx, model.PoolDapp)
	if err != nil {
		return err
	}

	// Bonuses come out of the pool before the even split so the push as a
	// whole can never overrun the allocation.
	flagged := make(map[string]bool, len(members))
	var bonusTotal int64
	for _, member := range members {
		goodUptime, err := r.registryService.HasGoodUptime(ctx, tx, member)
		if err != nil {
			return err
		}
		flagged[member] = goodUptime
		if goodUptime {
			bonusTotal += program.UptimeBonus
		}
	}

	available := pool.Allocation - pool.Claimed - bonusTotal
	if available < 0 {
		return incentivejson.ErrInsufficientPoolOrBalance
	}
	base := available / int64(len(members))

	for _, member := range members {
		amount := base
		if flagged[member] {
			amount += program.UptimeBonus
		}
		if amount == 0 {
			continue
		}
		if err := r.payout(ctx, tx, model.PoolDapp, member, model.CategoryDappRound, 0, amount); err != nil {
			return err
		}
	}
	log.Infof("Pushed dapp launch rewards to %v addresses, base amount %v", len(members), base)
	return nil
}

func (r *RewardManager) bulkPushDeveloper(ctx context.Context, tx *gorm.DB) error {
	deployers, err := r.registryService.GetDeployers(ctx, tx)
	if err != nil {
		return err
	}
	if len(deployers) == 0 {
		log.Infof("No deployers registered, skipping developer launch push")
		return nil
	}

	pool, err := r.poolService.GetPool(ctx, tx, model.PoolDeveloper)
	if err != nil {
		return err
	}
	base := (pool.Allocation - pool.Claimed) / int64(len(deployers))
	if base == 0 {
		return nil
	}

	for _, deployer := range deployers {
		if err := r.payout(ctx, tx, model.PoolDeveloper, deployer, model.CategoryDeployment, 0, base); err != nil {
			return err
		}
	}
	log.Infof("Pushed developer launch rewards to %v addresses, amount %v each", len(deployers), base)
	return nil
}

// payout performs the shared tail of every reward payment: consume pool
// budget, append the audit event, then invoke the external transfer. State
// is mutated before the transfer so a re-entrant call observes the claim as
// already consumed; a transfer failure aborts the surrounding transaction.
func (r *RewardManager) payout(ctx context.Context, tx *gorm.DB, kind model.PoolKind, address string, category model.ClaimCategory, roundID int64, amount int64) error {
	if err := r.poolService.RecordClaim(ctx, tx, kind, amount); err != nil {
		return err
	}

	attrs := map[string]string{
		"address":  utils.NormalizeAddress(address),
		"category": category.String(),
		"amount":   strconv.FormatInt(amount, 10),
	}
	if roundID > 0 {
		attrs["round_id"] = strconv.FormatInt(roundID, 10)
	}
	err := r.eventService.Append(ctx, tx, &model.Event{Type: model.EventClaimed, Attributes: attrs})
	if err != nil {
		return err
	}

	if err := r.ledger.Transfer(ctx, address, amount); err != nil {
		if err == ledgerclient.ErrInsufficientBalance {
			return incentivejson.ErrInsufficientPoolOrBalance
		}
		return err
	}
	return nil
}

// ClaimBugBounty pays the claimant their tier's per-user reward once, then
// frees the tier slot so the address can be assigned again for a new finding.
func (r *RewardManager) ClaimBugBounty(ctx context.Context, address string) (*model.ClaimOutcome, error) {
	if !utils.ValidAddress(address) {
		return nil, incentivejson.ErrInvalidAddress
	}

	r.claimMu.Lock()
	defer r.claimMu.Unlock()

	var outcome *model.ClaimOutcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.mode.RequirePayable(ctx, tx); err != nil {
			return err
		}

		tier, err := r.registryService.GetTierAssignment(ctx, tx, address)
		if err != nil {
			return err
		}
		if tier == model.TierNone {
			// Distinguish "never assigned" from "already claimed this
			// assignment": the one-shot flag stays set until the next
			// assignment re-arms it.
			records, err := r.claimLedger.GetClaimRecords(ctx, tx, address)
			if err != nil {
				return err
			}
			for _, record := range records {
				if record.Category == int(model.CategoryBugBounty) && record.Claimed {
					return incentivejson.ErrAlreadyClaimed
				}
			}
			return incentivejson.ErrNotWhitelisted
		}

		rate, err := r.registryService.GetTierRate(ctx, tx, tier)
		if err != nil {
			return err
		}
		if rate == nil {
			return incentivejson.ErrUnknownTier
		}

		if err := r.claimLedger.TryConsumeOneShot(ctx, tx, address, model.CategoryBugBounty); err != nil {
			return err
		}
		if err := r.registryService.ResetTier(ctx, tx, address); err != nil {
			return err
		}

		if err := r.payout(ctx, tx, model.PoolBugBounty, address, model.CategoryBugBounty, 0, rate.PerUser); err != nil {
			return err
		}
		outcome = &model.ClaimOutcome{
			Address:  utils.NormalizeAddress(address),
			Category: model.CategoryBugBounty,
			Amount:   rate.PerUser,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.eligibilityCache.Invalidate(address)
	r.sendNotification(NTClaimed, outcome)
	log.Infof("Bug bounty claim by %v paid %v", outcome.Address, outcome.Amount)
	return outcome, nil
}

// ClaimDappRound pays the monthly dapp reward for one round, plus the uptime
// bonus when the claimant's sticky flag is set.
func (r *RewardManager) ClaimDappRound(ctx context.Context, address string, roundID int64) (*model.ClaimOutcome, error) {
	if !utils.ValidAddress(address) {
		return nil, incentivejson.ErrInvalidAddress
	}

	r.claimMu.Lock()
	defer r.claimMu.Unlock()

	program := r.Program()

	var outcome *model.ClaimOutcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.mode.RequirePayable(ctx, tx); err != nil {
			return err
		}

		if err := r.claimLedger.TryConsumeRound(ctx, tx, address, roundID); err != nil {
			return err
		}

		amount := program.MonthlyDappReward
		goodUptime, err := r.registryService.HasGoodUptime(ctx, tx, address)
		if err != nil {
			return err
		}
		if goodUptime {
			amount += program.UptimeBonus
		}

		if err := r.payout(ctx, tx, model.PoolDapp, address, model.CategoryDappRound, roundID, amount); err != nil {
			return err
		}
		outcome = &model.ClaimOutcome{
			Address:  utils.NormalizeAddress(address),
			Category: model.CategoryDappRound,
			RoundID:  roundID,
			Amount:   amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.eligibilityCache.Invalidate(address)
	r.sendNotification(NTClaimed, outcome)
	log.Infof("Dapp round %v claim by %v paid %v", roundID, outcome.Address, outcome.Amount)
	return outcome, nil
}

// ClaimDeployment pays the flat recurring deployment grant, gated by the
// rolling cooldown since the last successful claim.
func (r *RewardManager) ClaimDeployment(ctx context.Context, address string) (*model.ClaimOutcome, error) {
	if !utils.ValidAddress(address) {
		return nil, incentivejson.ErrInvalidAddress
	}

	r.claimMu.Lock()
	defer r.claimMu.Unlock()

	program := r.Program()

	var outcome *model.ClaimOutcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.mode.RequirePayable(ctx, tx); err != nil {
			return err
		}

		isDeployer, err := r.registryService.IsDeployer(ctx, tx, address)
		if err != nil {
			return err
		}
		if !isDeployer {
			return incentivejson.ErrNotWhitelisted
		}

		if err := r.claimLedger.TryConsumeCooldown(ctx, tx, address, model.CategoryDeployment, program.ClaimCooldown); err != nil {
			return err
		}

		if err := r.payout(ctx, tx, model.PoolDeveloper, address, model.CategoryDeployment, 0, program.DeploymentReward); err != nil {
			return err
		}
		outcome = &model.ClaimOutcome{
			Address:  utils.NormalizeAddress(address),
			Category: model.CategoryDeployment,
			Amount:   program.DeploymentReward,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.eligibilityCache.Invalidate(address)
	r.sendNotification(NTClaimed, outcome)
	log.Infof("Deployment claim by %v paid %v", outcome.Address, outcome.Amount)
	return outcome, nil
}

// Claim dispatches a generic claim request by category.
func (r *RewardManager) Claim(ctx context.Context, address string, category model.ClaimCategory, roundID *int64) (*model.ClaimOutcome, error) {
	switch category {
	case model.CategoryBugBounty:
		return r.ClaimBugBounty(ctx, address)
	case model.CategoryDappRound:
		if roundID == nil {
			return nil, incentivejson.ErrNoClaimSelected
		}
		return r.ClaimDappRound(ctx, address, *roundID)
	case model.CategoryDeployment:
		return r.ClaimDeployment(ctx, address)
	}
	return nil, incentivejson.ErrNoClaimSelected
}

// EmergencySweep drains the engine account's entire balance of the given
// token to the destination. It acts on raw custody and bypasses pool
// accounting entirely; an empty token sweeps the native token.
func (r *RewardManager) EmergencySweep(ctx context.Context, token string, to string) (int64, error) {
	if !utils.ValidAddress(to) {
		return 0, incentivejson.ErrInvalidAddress
	}

	r.claimMu.Lock()
	defer r.claimMu.Unlock()

	program := r.Program()

	var balance int64
	var err error
	if token == "" {
		balance, err = r.ledger.BalanceOf(ctx, program.EngineAddress)
	} else {
		balance, err = r.ledger.TokenBalanceOf(ctx, token, program.EngineAddress)
	}
	if err != nil {
		return 0, err
	}
	if balance == 0 {
		return 0, nil
	}

	dbErr := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.metaInfoService.SetSweepTime(ctx, tx, r.clock.Now()); err != nil {
			return err
		}

		err := r.eventService.Append(ctx, tx, &model.Event{
			Type: model.EventSwept,
			Attributes: map[string]string{
				"token":  token,
				"to":     utils.NormalizeAddress(to),
				"amount": strconv.FormatInt(balance, 10),
			},
		})
		if err != nil {
			return err
		}

		if token == "" {
			return r.ledger.Transfer(ctx, to, balance)
		}
		return r.ledger.TokenTransfer(ctx, token, to, balance)
	})
	if dbErr != nil {
		return 0, dbErr
	}

	log.Warnf("Emergency sweep moved %v of token %q to %v", balance, token, to)
	return balance, nil
}

// SetMonthlyDappReward updates the flat per-round dapp reward.
func (r *RewardManager) SetMonthlyDappReward(ctx context.Context, amount int64) error {
	return r.setParam(ctx, "monthly_dapp_reward", amount, func(p *model.ProgramConfig) {
		p.MonthlyDappReward = amount
	})
}

// SetUptimeBonus updates the bonus paid on top of dapp rewards for addresses
// with the sticky uptime flag.
func (r *RewardManager) SetUptimeBonus(ctx context.Context, amount int64) error {
	return r.setParam(ctx, "uptime_bonus", amount, func(p *model.ProgramConfig) {
		p.UptimeBonus = amount
	})
}

// SetDeploymentReward updates the flat recurring deployment grant.
func (r *RewardManager) SetDeploymentReward(ctx context.Context, amount int64) error {
	return r.setParam(ctx, "deployment_reward", amount, func(p *model.ProgramConfig) {
		p.DeploymentReward = amount
	})
}

func (r *RewardManager) setParam(ctx context.Context, name string, amount int64, apply func(*model.ProgramConfig)) error {
	if amount < 0 {
		return incentivejson.ErrInvalidParams
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.eventService.Append(ctx, tx, &model.Event{
			Type: model.EventClaimAmountUpdated,
			Attributes: map[string]string{
				"name":   name,
				"amount": strconv.FormatInt(amount, 10),
			},
		})
	})
	if err != nil {
		return err
	}

	// Only take effect once the audit event is durable.
	r.paramsMu.Lock()
	apply(&r.program)
	r.paramsMu.Unlock()

	r.sendNotification(NTClaimAmountUpdated, &ParamUpdate{Name: name, Amount: amount})
	log.Infof("Reward parameter %v set to %v", name, amount)
	return nil
}
