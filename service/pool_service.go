package service

import (
	"context"

	"github.com/novanet-dev/nova-incentive-server/constdef"
	"github.com/novanet-dev/nova-incentive-server/dal/dao"
	"github.com/novanet-dev/nova-incentive-server/dal/do"
	"github.com/novanet-dev/nova-incentive-server/incentivejson"
	"github.com/novanet-dev/nova-incentive-server/model"

	"gorm.io/gorm"
)

type PoolService interface {
	InitPools(ctx context.Context, tx *gorm.DB, cfg *model.ProgramConfig, totalSupply int64) error
	GetPool(ctx context.Context, tx *gorm.DB, kind model.PoolKind) (*do.PoolInfo, error)
	GetPools(ctx context.Context, tx *gorm.DB) ([]*do.PoolInfo, error)
	Remaining(ctx context.Context, tx *gorm.DB, kind model.PoolKind) (int64, error)
	RecordClaim(ctx context.Context, tx *gorm.DB, kind model.PoolKind, amount int64) error
}

type PoolServiceImpl struct {
	poolInfoDAO dao.PoolInfoDAO
}

var poolService PoolService = &PoolServiceImpl{
	poolInfoDAO: dao.GetPoolInfoDAOImpl(),
}

func GetPoolService() PoolService {
	return poolService
}

// InitPools carves the total supply into the three bounded pools. Allocations
// are computed once and never revised, so restarting with different shares
// leaves existing pools untouched.
func (p *PoolServiceImpl) InitPools(ctx context.Context, tx *gorm.DB, cfg *model.ProgramConfig, totalSupply int64) error {
	existing, err := p.poolInfoDAO.GetAll(ctx, tx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, kind := range model.PoolKinds() {
		bps := cfg.PoolBps(kind)
		allocation := totalSupply * int64(bps) / constdef.BpsDenominator
		info := do.PoolInfo{
			Kind:          int(kind),
			AllocationBps: bps,
			Allocation:    allocation,
		}
		_, err := p.poolInfoDAO.Create(ctx, tx, &info)
		if err != nil {
			return err
		}
		log.Infof("Initialized %v pool: %v bps of %v = %v", kind, bps, totalSupply, allocation)
	}
	return nil
}

func (p *PoolServiceImpl) GetPool(ctx context.Context, tx *gorm.DB, kind model.PoolKind) (*do.PoolInfo, error) {
	return p.poolInfoDAO.GetByKind(ctx, tx, int(kind))
}

func (p *PoolServiceImpl) GetPools(ctx context.Context, tx *gorm.DB) ([]*do.PoolInfo, error) {
	return p.poolInfoDAO.GetAll(ctx, tx)
}

func (p *PoolServiceImpl) Remaining(ctx context.Context, tx *gorm.DB, kind model.PoolKind) (int64, error) {
	info, err := p.poolInfoDAO.GetByKind(ctx, tx, int(kind))
	if err != nil {
		return 0, err
	}
	return info.Allocation - info.Claimed, nil
}

// RecordClaim consumes amount from the pool's allocation. It fails with
// ErrInsufficientPoolOrBalance when the pool cannot cover the amount.
func (p *PoolServiceImpl) RecordClaim(ctx context.Context, tx *gorm.DB, kind model.PoolKind, amount int64) error {
	if amount < 0 {
		return incentivejson.ErrInvalidParams
	}
	if amount == 0 {
		return nil
	}

	affected, err := p.poolInfoDAO.AddClaimed(ctx, tx, int(kind), amount)
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either the pool row is missing or the bound would be broken.
		if _, err := p.poolInfoDAO.GetByKind(ctx, tx, int(kind)); err != nil {
			return err
		}
		return incentivejson.ErrInsufficientPoolOrBalance
	}
	return nil
}
