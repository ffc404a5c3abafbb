package poolserver

import (
	"context"

	"github.com/novanet-dev/nova-incentive-server/incentivejson"
	"github.com/novanet-dev/nova-incentive-server/model"
)

// handleRegisterTier implements the registertier command.
func handleRegisterTier(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*incentivejson.RegisterTierCmd)

	tier := model.ParseTier(c.Tier)
	registered, perUser, err := s.rewardMgr.AssignTier(context.Background(), c.Addresses, tier)
	if err != nil {
		return nil, err
	}
	return incentivejson.RegisterTierResult{
		Tier:       tier.String(),
		Registered: registered,
		PerUser:    perUser,
	}, nil
}

// handleRegisterDeployer implements the registerdeployer command.
func handleRegisterDeployer(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*incentivejson.RegisterDeployerCmd)

	registered, err := s.rewardMgr.RegisterDeployer(context.Background(), c.Addresses)
	if err != nil {
		return nil, err
	}
	return incentivejson.RegisterDeployerResult{Registered: registered}, nil
}

// handleRegisterDappRound implements the registerdappround command.
func handleRegisterDappRound(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*incentivejson.RegisterDappRoundCmd)

	roundID, registered, err := s.rewardMgr.RegisterDappRound(context.Background(), c.Addresses, c.GoodUptime)
	if err != nil {
		return nil, err
	}
	return incentivejson.RegisterDappRoundResult{
		RoundID:    roundID,
		Registered: registered,
	}, nil
}

// handleSetLive implements the setlive command. The first successful call
// also runs the one-time bulk distribution.
func handleSetLive(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	status, err := s.rewardMgr.SetLive(context.Background())
	if err != nil {
		return nil, err
	}
	return incentivejson.SetLiveResult{
		Live:        status.Live,
		Distributed: status.Distributed,
	}, nil
}

// handlePause implements the pause command.
func handlePause(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	status, err := s.rewardMgr.Pause(context.Background())
	if err != nil {
		return nil, err
	}
	return incentivejson.PauseResult{Paused: status.Paused}, nil
}

// handleResume implements the resume command.
func handleResume(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	status, err := s.rewardMgr.Resume(context.Background())
	if err != nil {
		return nil, err
	}
	return incentivejson.PauseResult{Paused: status.Paused}, nil
}

// handleEmergencySweep implements the emergencysweep command.
func handleEmergencySweep(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*incentivejson.EmergencySweepCmd)

	amount, err := s.rewardMgr.EmergencySweep(context.Background(), c.Token, c.To)
	if err != nil {
		return nil, err
	}
	return incentivejson.EmergencySweepResult{
		Token:  c.Token,
		To:     c.To,
		Amount: amount,
	}, nil
}

// handleSetMonthlyDappReward implements the setmonthlydappreward command.
func handleSetMonthlyDappReward(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*incentivejson.SetMonthlyDappRewardCmd)

	if err := s.rewardMgr.SetMonthlyDappReward(context.Background(), c.Amount); err != nil {
		return nil, err
	}
	return incentivejson.SetRewardAmountResult{
		Name:   "monthly_dapp_reward",
		Amount: c.Amount,
	}, nil
}

// handleSetUptimeBonus implements the setuptimebonus command.
func handleSetUptimeBonus(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*incentivejson.SetUptimeBonusCmd)

	if err := s.rewardMgr.SetUptimeBonus(context.Background(), c.Amount); err != nil {
		return nil, err
	}
	return incentivejson.SetRewardAmountResult{
		Name:   "uptime_bonus",
		Amount: c.Amount,
	}, nil
}

// handleSetDeploymentReward implements the setdeploymentreward command.
func handleSetDeploymentReward(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	c := cmd.(*incentivejson.SetDeploymentRewardCmd)

	if err := s.rewardMgr.SetDeploymentReward(context.Background(), c.Amount); err != nil {
		return nil, err
	}
	return incentivejson.SetRewardAmountResult{
		Name:   "deployment_reward",
		Amount: c.Amount,
	}, nil
}
