package poolserver

import (
	"context"

	"github.com/novanet-dev/nova-incentive-server/incentivejson"
	"github.com/novanet-dev/nova-incentive-server/model"
)

// claimResult converts a payout outcome to its RPC shape and bumps the claim
// metrics.
func (svr *IncentiveServer) claimResult(outcome *model.ClaimOutcome) incentivejson.ClaimResult {
	category := outcome.Category.String()
	svr.metrics.claimsTotal.WithLabelValues(category).Inc()
	svr.metrics.claimedAmountTotal.WithLabelValues(category).Add(float64(outcome.Amount))

	return incentivejson.ClaimResult{
		Address:  outcome.Address,
		Category: category,
		RoundID:  outcome.RoundID,
		Amount:   outcome.Amount,
	}
}

// handleClaimBugBounty implements the claimbugbounty command.
func handleClaimBugBounty(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*incentivejson.ClaimBugBountyCmd)

	outcome, err := s.rewardMgr.ClaimBugBounty(context.Background(), c.Address)
	if err != nil {
		return nil, err
	}
	return s.claimResult(outcome), nil
}

// handleClaimDappRound implements the claimdappround command.
func handleClaimDappRound(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*incentivejson.ClaimDappRoundCmd)

	outcome, err := s.rewardMgr.ClaimDappRound(context.Background(), c.Address, c.RoundID)
	if err != nil {
		return nil, err
	}
	return s.claimResult(outcome), nil
}

// handleClaimDeployment implements the claimdeployment command.
func handleClaimDeployment(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*incentivejson.ClaimDeploymentCmd)

	outcome, err := s.rewardMgr.ClaimDeployment(context.Background(), c.Address)
	if err != nil {
		return nil, err
	}
	return s.claimResult(outcome), nil
}

// handleClaim implements the generic claim command. The category string
// selects the concrete claim flow.
func handleClaim(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*incentivejson.ClaimCmd)

	category := model.ParseClaimCategory(c.Category)
	outcome, err := s.rewardMgr.Claim(context.Background(), c.Address, category, c.RoundID)
	if err != nil {
		return nil, err
	}
	return s.claimResult(outcome), nil
}
