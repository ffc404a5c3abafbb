package main

import (
	"time"

	"github.com/novanet-dev/nova-incentive-server/ledgerclient"
	"github.com/novanet-dev/nova-incentive-server/modectrl"
	"github.com/novanet-dev/nova-incentive-server/model"
	"github.com/novanet-dev/nova-incentive-server/poolserver"
	"github.com/novanet-dev/nova-incentive-server/rewardmgr"

	"gorm.io/gorm"
)

type server struct {
	incentiveRPCServer *poolserver.IncentiveServer
	rewardManager      *rewardmgr.RewardManager
	modeController     *modectrl.ModeController
}

// newProgramConfig builds the reward parameters from the loaded config.
func newProgramConfig(cfg *config) *model.ProgramConfig {
	return &model.ProgramConfig{
		BugBountyPoolBps:  cfg.BugBountyPoolBps,
		DappPoolBps:       cfg.DappPoolBps,
		DeveloperPoolBps:  cfg.DeveloperPoolBps,
		TierLowBps:        cfg.TierLowBps,
		TierMediumBps:     cfg.TierMediumBps,
		TierHighBps:       cfg.TierHighBps,
		MonthlyDappReward: cfg.MonthlyDappReward,
		UptimeBonus:       cfg.UptimeBonus,
		DeploymentReward:  cfg.DeploymentReward,
		ClaimCooldown:     time.Duration(cfg.CooldownDays) * 24 * time.Hour,
		EngineAddress:     cfg.EngineAddress,
	}
}

func newServer(db *gorm.DB, ledger ledgerclient.Ledger, program *model.ProgramConfig) (*server, error) {
	modeController := modectrl.NewModeController(db)

	rewardMgr, err := rewardmgr.NewRewardManager(&rewardmgr.Config{
		DB:      db,
		Ledger:  ledger,
		Mode:    modeController,
		Program: program,
	})
	if err != nil {
		return nil, err
	}

	rpcSvr, err := poolserver.NewIncentiveServer(&poolserver.Config{
		ListenersString:  cfg.Listeners,
		RPCUser:          cfg.RPCUser,
		RPCPass:          cfg.RPCPass,
		RPCLimitUser:     cfg.RPCLimitUser,
		RPCLimitPass:     cfg.RPCLimitPass,
		RPCMaxClients:    cfg.RPCMaxClients,
		RPCMaxWebsockets: cfg.RPCMaxWebsockets,
		DisableTLS:       cfg.DisableTLS,
		RPCCert:          cfg.RPCCert,
		RPCKey:           cfg.RPCKey,
	}, db, rewardMgr)
	if err != nil {
		return nil, err
	}

	return &server{
		incentiveRPCServer: rpcSvr,
		rewardManager:      rewardMgr,
		modeController:     modeController,
	}, nil
}

func (s *server) Start() {
	if s.incentiveRPCServer != nil {
		s.incentiveRPCServer.Start()
	}
}

func (s *server) Stop() {
	if s.incentiveRPCServer != nil {
		s.incentiveRPCServer.Stop()
	}
}
