package service

import (
	"context"

	"github.com/novanet-dev/nova-incentive-server/constdef"
	"github.com/novanet-dev/nova-incentive-server/dal/dao"
	"github.com/novanet-dev/nova-incentive-server/dal/do"
	"github.com/novanet-dev/nova-incentive-server/incentivejson"
	"github.com/novanet-dev/nova-incentive-server/model"
	"github.com/novanet-dev/nova-incentive-server/utils"

	"gorm.io/gorm"
)

type RegistryService interface {
	AssignTier(ctx context.Context, tx *gorm.DB, cfg *model.ProgramConfig, addresses []string, tier model.Tier) (int, int64, error)
	GetTierAssignment(ctx context.Context, tx *gorm.DB, address string) (model.Tier, error)
	ResetTier(ctx context.Context, tx *gorm.DB, address string) error
	GetTierRate(ctx context.Context, tx *gorm.DB, tier model.Tier) (*do.TierRateInfo, error)
	GetTierRates(ctx context.Context, tx *gorm.DB) ([]*do.TierRateInfo, error)
	RegisterDeployer(ctx context.Context, tx *gorm.DB, addresses []string) (int, error)
	IsDeployer(ctx context.Context, tx *gorm.DB, address string) (bool, error)
	GetDeployers(ctx context.Context, tx *gorm.DB) ([]string, error)
	RegisterDappRound(ctx context.Context, tx *gorm.DB, addresses []string, goodUptime []bool) (int64, int, error)
	GetRoundMemberships(ctx context.Context, tx *gorm.DB, address string) ([]*do.RoundMembershipInfo, error)
	GetRoundMembership(ctx context.Context, tx *gorm.DB, address string, roundID int64) (*do.RoundMembershipInfo, error)
	DistinctDappMembers(ctx context.Context, tx *gorm.DB) ([]string, error)
	HasGoodUptime(ctx context.Context, tx *gorm.DB, address string) (bool, error)
	GetEligibility(ctx context.Context, tx *gorm.DB, address string) (*model.EligibilitySnapshot, error)
}

type RegistryServiceImpl struct {
	tierAssignmentInfoDAO  dao.TierAssignmentInfoDAO
	tierRateInfoDAO        dao.TierRateInfoDAO
	deployerInfoDAO        dao.DeployerInfoDAO
	roundMembershipInfoDAO dao.RoundMembershipInfoDAO
	userFlagInfoDAO        dao.UserFlagInfoDAO
	claimRecordInfoDAO     dao.ClaimRecordInfoDAO
	poolInfoDAO            dao.PoolInfoDAO
	metaInfoDAO            dao.MetaInfoDAO
}

var registryService RegistryService = &RegistryServiceImpl{
	tierAssignmentInfoDAO:  dao.GetTierAssignmentInfoDAOImpl(),
	tierRateInfoDAO:        dao.GetTierRateInfoDAOImpl(),
	deployerInfoDAO:        dao.GetDeployerInfoDAOImpl(),
	roundMembershipInfoDAO: dao.GetRoundMembershipInfoDAOImpl(),
	userFlagInfoDAO:        dao.GetUserFlagInfoDAOImpl(),
	claimRecordInfoDAO:     dao.GetClaimRecordInfoDAOImpl(),
	poolInfoDAO:            dao.GetPoolInfoDAOImpl(),
	metaInfoDAO:            dao.GetMetaInfoDAOImpl(),
}

func GetRegistryService() RegistryService {
	return registryService
}

func validateBatch(addresses []string) error {
	if len(addresses) == 0 {
		return incentivejson.ErrEmptyBatch
	}
	for _, address := range addresses {
		if !utils.ValidAddress(address) {
			return incentivejson.ErrInvalidAddress
		}
	}
	return nil
}

// AssignTier whitelists a batch of researcher addresses at the given tier and
// recomputes the tier's per-user reward as the tier's pool share divided by
// the size of this batch. The divisor is the batch, not the tier's historical
// membership. An address already holding a live tier cannot be moved; it has
// to claim (or be reset) first.
func (r *RegistryServiceImpl) AssignTier(ctx context.Context, tx *gorm.DB, cfg *model.ProgramConfig, addresses []string, tier model.Tier) (int, int64, error) {
	if tier == model.TierNone {
		return 0, 0, incentivejson.ErrUnknownTier
	}
	if err := validateBatch(addresses); err != nil {
		return 0, 0, err
	}

	seen := make(map[string]struct{}, len(addresses))
	for _, address := range addresses {
		address = utils.NormalizeAddress(address)
		if _, ok := seen[address]; ok {
			return 0, 0, incentivejson.ErrAlreadyAssigned
		}
		seen[address] = struct{}{}

		existing, err := r.tierAssignmentInfoDAO.GetByAddress(ctx, tx, address)
		if err != nil {
			return 0, 0, err
		}
		if existing == nil {
			_, err = r.tierAssignmentInfoDAO.Create(ctx, tx, &do.TierAssignmentInfo{
				Address: address,
				Tier:    int(tier),
			})
			if err != nil {
				return 0, 0, err
			}
			continue
		}
		if existing.Tier != int(model.TierNone) {
			return 0, 0, incentivejson.ErrAlreadyAssigned
		}

		// Re-assignment after a claim. The one-shot flag is armed again so
		// the address can claim once for the new finding.
		_, err = r.tierAssignmentInfoDAO.UpdateTier(ctx, tx, address, int(tier))
		if err != nil {
			return 0, 0, err
		}
		_, err = r.claimRecordInfoDAO.ResetClaimed(ctx, tx, address, int(model.CategoryBugBounty))
		if err != nil {
			return 0, 0, err
		}
	}

	pool, err := r.poolInfoDAO.GetByKind(ctx, tx, int(model.PoolBugBounty))
	if err != nil {
		return 0, 0, err
	}
	tierShare := pool.Allocation * int64(cfg.TierBps(tier)) / constdef.BpsDenominator
	perUser := tierShare / int64(len(addresses))

	if _, err := r.tierRateInfoDAO.Upsert(ctx, tx, int(tier), perUser, int64(len(addresses))); err != nil {
		return 0, 0, err
	}
	return len(addresses), perUser, nil
}

func (r *RegistryServiceImpl) GetTierAssignment(ctx context.Context, tx *gorm.DB, address string) (model.Tier, error) {
	info, err := r.tierAssignmentInfoDAO.GetByAddress(ctx, tx, utils.NormalizeAddress(address))
	if err != nil {
		return model.TierNone, err
	}
	if info == nil {
		return model.TierNone, nil
	}
	return model.Tier(info.Tier), nil
}

func (r *RegistryServiceImpl) ResetTier(ctx context.Context, tx *gorm.DB, address string) error {
	_, err := r.tierAssignmentInfoDAO.UpdateTier(ctx, tx, utils.NormalizeAddress(address), int(model.TierNone))
	return err
}

func (r *RegistryServiceImpl) GetTierRate(ctx context.Context, tx *gorm.DB, tier model.Tier) (*do.TierRateInfo, error) {
	return r.tierRateInfoDAO.GetByTier(ctx, tx, int(tier))
}

func (r *RegistryServiceImpl) GetTierRates(ctx context.Context, tx *gorm.DB) ([]*do.TierRateInfo, error) {
	return r.tierRateInfoDAO.GetAll(ctx, tx)
}

// RegisterDeployer whitelists a batch of infrastructure developer addresses.
// Registration is permanent, so a repeated address fails the whole batch.
func (r *RegistryServiceImpl) RegisterDeployer(ctx context.Context, tx *gorm.DB, addresses []string) (int, error) {
	if err := validateBatch(addresses); err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(addresses))
	infos := make([]*do.DeployerInfo, 0, len(addresses))
	for _, address := range addresses {
		address = utils.NormalizeAddress(address)
		if _, ok := seen[address]; ok {
			return 0, incentivejson.ErrAlreadyRegistered
		}
		seen[address] = struct{}{}

		exists, err := r.deployerInfoDAO.Exists(ctx, tx, address)
		if err != nil {
			return 0, err
		}
		if exists {
			return 0, incentivejson.ErrAlreadyRegistered
		}
		infos = append(infos, &do.DeployerInfo{Address: address})
	}

	_, err := r.deployerInfoDAO.MCreate(ctx, tx, infos)
	if err != nil {
		return 0, err
	}
	return len(infos), nil
}

func (r *RegistryServiceImpl) IsDeployer(ctx context.Context, tx *gorm.DB, address string) (bool, error) {
	return r.deployerInfoDAO.Exists(ctx, tx, utils.NormalizeAddress(address))
}

func (r *RegistryServiceImpl) GetDeployers(ctx context.Context, tx *gorm.DB) ([]string, error) {
	infos, err := r.deployerInfoDAO.GetAll(ctx, tx)
	if err != nil {
		return nil, err
	}
	addresses := make([]string, 0, len(infos))
	for _, info := range infos {
		addresses = append(addresses, info.Address)
	}
	return addresses, nil
}

// RegisterDappRound opens a new monthly round with the given member list.
// goodUptime, when present, must pair with addresses one to one; flagged
// addresses earn the sticky uptime bonus on their next round claim.
func (r *RegistryServiceImpl) RegisterDappRound(ctx context.Context, tx *gorm.DB, addresses []string, goodUptime []bool) (int64, int, error) {
	if err := validateBatch(addresses); err != nil {
		return 0, 0, err
	}
	if goodUptime != nil && len(goodUptime) != len(addresses) {
		return 0, 0, incentivejson.ErrLengthMismatch
	}

	meta, err := r.metaInfoDAO.Get(ctx, tx)
	if err != nil {
		return 0, 0, err
	}
	roundID := meta.NextRoundID

	seen := make(map[string]struct{}, len(addresses))
	infos := make([]*do.RoundMembershipInfo, 0, len(addresses))
	for i, address := range addresses {
		address = utils.NormalizeAddress(address)
		if _, ok := seen[address]; ok {
			return 0, 0, incentivejson.ErrDuplicateInRound
		}
		seen[address] = struct{}{}
		infos = append(infos, &do.RoundMembershipInfo{Address: address, RoundID: roundID})

		if goodUptime != nil && goodUptime[i] {
			if _, err := r.userFlagInfoDAO.SetGoodUptime(ctx, tx, address); err != nil {
				return 0, 0, err
			}
		}
	}

	if _, err := r.roundMembershipInfoDAO.MCreate(ctx, tx, infos); err != nil {
		return 0, 0, err
	}
	if _, err := r.metaInfoDAO.BumpNextRoundID(ctx, tx); err != nil {
		return 0, 0, err
	}
	return roundID, len(infos), nil
}

func (r *RegistryServiceImpl) GetRoundMemberships(ctx context.Context, tx *gorm.DB, address string) ([]*do.RoundMembershipInfo, error) {
	return r.roundMembershipInfoDAO.GetByAddress(ctx, tx, utils.NormalizeAddress(address))
}

func (r *RegistryServiceImpl) GetRoundMembership(ctx context.Context, tx *gorm.DB, address string, roundID int64) (*do.RoundMembershipInfo, error) {
	return r.roundMembershipInfoDAO.Get(ctx, tx, utils.NormalizeAddress(address), roundID)
}

func (r *RegistryServiceImpl) DistinctDappMembers(ctx context.Context, tx *gorm.DB) ([]string, error) {
	return r.roundMembershipInfoDAO.DistinctAddresses(ctx, tx)
}

func (r *RegistryServiceImpl) HasGoodUptime(ctx context.Context, tx *gorm.DB, address string) (bool, error) {
	info, err := r.userFlagInfoDAO.GetByAddress(ctx, tx, utils.NormalizeAddress(address))
	if err != nil {
		return false, err
	}
	return info != nil && info.GoodUptime, nil
}

// GetEligibility gathers everything one address is currently entitled to.
func (r *RegistryServiceImpl) GetEligibility(ctx context.Context, tx *gorm.DB, address string) (*model.EligibilitySnapshot, error) {
	if !utils.ValidAddress(address) {
		return nil, incentivejson.ErrInvalidAddress
	}
	address = utils.NormalizeAddress(address)

	tier, err := r.GetTierAssignment(ctx, tx, address)
	if err != nil {
		return nil, err
	}

	var tierReward int64
	if tier != model.TierNone {
		rate, err := r.tierRateInfoDAO.GetByTier(ctx, tx, int(tier))
		if err != nil {
			return nil, err
		}
		if rate != nil {
			tierReward = rate.PerUser
		}
	}

	deployer, err := r.deployerInfoDAO.Exists(ctx, tx, address)
	if err != nil {
		return nil, err
	}

	goodUptime, err := r.HasGoodUptime(ctx, tx, address)
	if err != nil {
		return nil, err
	}

	memberships, err := r.roundMembershipInfoDAO.GetByAddress(ctx, tx, address)
	if err != nil {
		return nil, err
	}
	rounds := make([]model.RoundStatus, 0, len(memberships))
	for _, m := range memberships {
		rounds = append(rounds, model.RoundStatus{RoundID: m.RoundID, Claimed: m.Claimed})
	}

	return &model.EligibilitySnapshot{
		Address:    address,
		Tier:       tier,
		TierReward: tierReward,
		Deployer:   deployer,
		GoodUptime: goodUptime,
		Rounds:     rounds,
	}, nil
}
