package poolserver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/novanet-dev/nova-incentive-server/dal/do"
	"github.com/novanet-dev/nova-incentive-server/incentivejson"
	"github.com/novanet-dev/nova-incentive-server/model"
)

// poolInfoResult converts a pool row to its RPC shape.
func poolInfoResult(pool *do.PoolInfo) incentivejson.PoolInfoResult {
	return incentivejson.PoolInfoResult{
		Kind:          model.PoolKind(pool.Kind).String(),
		AllocationBps: pool.AllocationBps,
		Allocation:    pool.Allocation,
		Claimed:       pool.Claimed,
		Remaining:     pool.Allocation - pool.Claimed,
	}
}

// handleGetMetaInfo implements the getmetainfo command.
func handleGetMetaInfo(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	ctx := context.Background()

	meta, err := s.metaInfoService.Get(ctx, s.db)
	if err != nil {
		return nil, internalRPCError(err.Error(), "handleGetMetaInfo")
	}

	pools, err := s.poolService.GetPools(ctx, s.db)
	if err != nil {
		return nil, internalRPCError(err.Error(), "handleGetMetaInfo")
	}

	result := incentivejson.GetMetaInfoResult{
		StartTime:   meta.CreatedAt.Unix(),
		TotalSupply: meta.TotalSupply,
		Live:        meta.Launched,
		Distributed: meta.Distributed,
		Paused:      meta.Paused,
		NextRoundID: meta.NextRoundID,
		Pools:       make([]incentivejson.PoolInfoResult, 0, len(pools)),
	}
	if meta.LastSweepTime != nil {
		result.LastSweep = meta.LastSweepTime.UTC().Format(time.RFC3339)
	}
	for _, pool := range pools {
		result.Pools = append(result.Pools, poolInfoResult(pool))
	}
	return result, nil
}

// handleGetPoolInfo implements the getpoolinfo command. An empty kind
// returns every pool.
func handleGetPoolInfo(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*incentivejson.GetPoolInfoCmd)
	ctx := context.Background()

	if c.Kind == "" {
		pools, err := s.poolService.GetPools(ctx, s.db)
		if err != nil {
			return nil, internalRPCError(err.Error(), "handleGetPoolInfo")
		}
		results := make([]incentivejson.PoolInfoResult, 0, len(pools))
		for _, pool := range pools {
			results = append(results, poolInfoResult(pool))
		}
		return results, nil
	}

	kind := model.ParsePoolKind(c.Kind)
	if kind == 0 {
		return nil, incentivejson.NewRPCError(incentivejson.ErrInvalidParams.Code,
			"unknown pool kind: "+c.Kind)
	}
	pool, err := s.poolService.GetPool(ctx, s.db, kind)
	if err != nil {
		return nil, internalRPCError(err.Error(), "handleGetPoolInfo")
	}
	return poolInfoResult(pool), nil
}

// handleGetRemaining implements the getremaining command.
func handleGetRemaining(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*incentivejson.GetRemainingCmd)

	kind := model.ParsePoolKind(c.Kind)
	if kind == 0 {
		return nil, incentivejson.NewRPCError(incentivejson.ErrInvalidParams.Code,
			"unknown pool kind: "+c.Kind)
	}

	remaining, err := s.poolService.Remaining(context.Background(), s.db, kind)
	if err != nil {
		return nil, internalRPCError(err.Error(), "handleGetRemaining")
	}
	return incentivejson.GetRemainingResult{
		Kind:      kind.String(),
		Remaining: remaining,
	}, nil
}

// handleGetEligibility implements the geteligibility command. Snapshots are
// served from the reward manager's read cache where possible.
func handleGetEligibility(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*incentivejson.GetEligibilityCmd)

	snapshot, err := s.rewardMgr.GetEligibility(context.Background(), c.Address)
	if err != nil {
		return nil, err
	}

	result := incentivejson.GetEligibilityResult{
		Address:    snapshot.Address,
		Tier:       snapshot.Tier.String(),
		TierReward: snapshot.TierReward,
		Deployer:   snapshot.Deployer,
		GoodUptime: snapshot.GoodUptime,
		Rounds:     make([]incentivejson.RoundMembershipResult, 0, len(snapshot.Rounds)),
	}
	for _, round := range snapshot.Rounds {
		result.Rounds = append(result.Rounds, incentivejson.RoundMembershipResult{
			RoundID: round.RoundID,
			Claimed: round.Claimed,
		})
	}
	return result, nil
}

// handleGetClaimRecords implements the getclaimrecords command.
func handleGetClaimRecords(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*incentivejson.GetClaimRecordsCmd)
	ctx := context.Background()

	records, err := s.claimLedger.GetClaimRecords(ctx, s.db, c.Address)
	if err != nil {
		return nil, internalRPCError(err.Error(), "handleGetClaimRecords")
	}
	memberships, err := s.registryService.GetRoundMemberships(ctx, s.db, c.Address)
	if err != nil {
		return nil, internalRPCError(err.Error(), "handleGetClaimRecords")
	}

	result := incentivejson.GetClaimRecordsResult{
		Address: c.Address,
		Rounds:  make([]incentivejson.RoundMembershipResult, 0, len(memberships)),
	}
	for _, record := range records {
		switch model.ClaimCategory(record.Category) {
		case model.CategoryBugBounty:
			result.BugBountyClaimed = record.Claimed
		case model.CategoryDeployment:
			if record.LastClaimTime != nil {
				result.LastDeploymentClaim = record.LastClaimTime.Format(time.RFC3339)
			}
		}
	}
	for _, membership := range memberships {
		result.Rounds = append(result.Rounds, incentivejson.RoundMembershipResult{
			RoundID: membership.RoundID,
			Claimed: membership.Claimed,
		})
	}
	return result, nil
}

// handleGetTierRates implements the gettierrates command.
func handleGetTierRates(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	rates, err := s.registryService.GetTierRates(context.Background(), s.db)
	if err != nil {
		return nil, internalRPCError(err.Error(), "handleGetTierRates")
	}

	result := incentivejson.GetTierRatesResult{
		Rates: make([]incentivejson.TierRateResult, 0, len(rates)),
	}
	for _, rate := range rates {
		result.Rates = append(result.Rates, incentivejson.TierRateResult{
			Tier:        model.Tier(rate.Tier).String(),
			PerUser:     rate.PerUser,
			MemberCount: rate.MemberCount,
		})
	}
	return result, nil
}

// handleGetEvents implements the getevents command.
func handleGetEvents(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*incentivejson.GetEventsCmd)
	ctx := context.Background()

	if c.Page < 0 || c.Num <= 0 {
		return nil, incentivejson.NewRPCError(incentivejson.ErrInvalidParams.Code,
			"page must be >= 0 and num > 0")
	}

	positiveOrder := false
	if c.PositiveOrder != nil {
		positiveOrder = *c.PositiveOrder
	}

	events, err := s.eventService.Get(ctx, s.db, c.Page, c.Num, positiveOrder)
	if err != nil {
		return nil, internalRPCError(err.Error(), "handleGetEvents")
	}
	total, err := s.eventService.Count(ctx, s.db)
	if err != nil {
		return nil, internalRPCError(err.Error(), "handleGetEvents")
	}

	result := incentivejson.GetEventsResult{
		Events: make([]incentivejson.EventResult, 0, len(events)),
		Total:  total,
	}
	for _, event := range events {
		attributes := make(map[string]string)
		if event.Attributes != "" {
			if err := json.Unmarshal([]byte(event.Attributes), &attributes); err != nil {
				log.Errorf("Malformed attributes on event %v: %v", event.EventID, err)
			}
		}
		result.Events = append(result.Events, incentivejson.EventResult{
			EventID:    event.EventID,
			Type:       event.Type,
			Attributes: attributes,
			CreatedAt:  event.CreatedAt.Format(time.RFC3339),
		})
	}
	return result, nil
}
