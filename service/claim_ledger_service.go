package service

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/novanet-dev/nova-incentive-server/dal/dao"
	"github.com/novanet-dev/nova-incentive-server/dal/do"
	"github.com/novanet-dev/nova-incentive-server/incentivejson"
	"github.com/novanet-dev/nova-incentive-server/model"
	"github.com/novanet-dev/nova-incentive-server/utils"

	"gorm.io/gorm"
)

// ClaimLedgerService enforces the three claim disciplines: one-shot flags
// for bug bounties, per-round flags for dapp rewards and a rolling cooldown
// for deployment rewards.
type ClaimLedgerService interface {
	TryConsumeOneShot(ctx context.Context, tx *gorm.DB, address string, category model.ClaimCategory) error
	TryConsumeRound(ctx context.Context, tx *gorm.DB, address string, roundID int64) error
	TryConsumeCooldown(ctx context.Context, tx *gorm.DB, address string, category model.ClaimCategory, cooldown time.Duration) error
	GetClaimRecords(ctx context.Context, tx *gorm.DB, address string) ([]*do.ClaimRecordInfo, error)
}

type ClaimLedgerServiceImpl struct {
	claimRecordInfoDAO     dao.ClaimRecordInfoDAO
	roundMembershipInfoDAO dao.RoundMembershipInfoDAO
	clock                  clockwork.Clock
}

var claimLedgerService = &ClaimLedgerServiceImpl{
	claimRecordInfoDAO:     dao.GetClaimRecordInfoDAOImpl(),
	roundMembershipInfoDAO: dao.GetRoundMembershipInfoDAOImpl(),
	clock:                  clockwork.NewRealClock(),
}

func GetClaimLedgerService() ClaimLedgerService {
	return claimLedgerService
}

// NewClaimLedgerService returns a ledger bound to the given clock. Production
// code uses the process-wide singleton with a real clock.
func NewClaimLedgerService(clock clockwork.Clock) ClaimLedgerService {
	return &ClaimLedgerServiceImpl{
		claimRecordInfoDAO:     dao.GetClaimRecordInfoDAOImpl(),
		roundMembershipInfoDAO: dao.GetRoundMembershipInfoDAOImpl(),
		clock:                  clock,
	}
}

// TryConsumeOneShot burns the single claim the address holds for the
// category. A second consume fails until the flag is armed again.
func (c *ClaimLedgerServiceImpl) TryConsumeOneShot(ctx context.Context, tx *gorm.DB, address string, category model.ClaimCategory) error {
	address = utils.NormalizeAddress(address)

	record, err := c.claimRecordInfoDAO.Get(ctx, tx, address, int(category))
	if err != nil {
		return err
	}
	if record != nil && record.Claimed {
		return incentivejson.ErrAlreadyClaimed
	}

	affected, err := c.claimRecordInfoDAO.MarkClaimed(ctx, tx, address, int(category))
	if err != nil {
		return err
	}
	if affected == 0 {
		return incentivejson.ErrAlreadyClaimed
	}
	return nil
}

// TryConsumeRound burns the address's claim for one monthly round.
func (c *ClaimLedgerServiceImpl) TryConsumeRound(ctx context.Context, tx *gorm.DB, address string, roundID int64) error {
	address = utils.NormalizeAddress(address)

	membership, err := c.roundMembershipInfoDAO.Get(ctx, tx, address, roundID)
	if err != nil {
		return err
	}
	if membership == nil {
		return incentivejson.ErrNotWhitelisted
	}
	if membership.Claimed {
		return incentivejson.ErrAlreadyClaimed
	}

	affected, err := c.roundMembershipInfoDAO.SetClaimed(ctx, tx, address, roundID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return incentivejson.ErrAlreadyClaimed
	}
	return nil
}

// TryConsumeCooldown stamps the claim time if the previous claim is at least
// one full cooldown in the past.
func (c *ClaimLedgerServiceImpl) TryConsumeCooldown(ctx context.Context, tx *gorm.DB, address string, category model.ClaimCategory, cooldown time.Duration) error {
	address = utils.NormalizeAddress(address)
	now := c.clock.Now()

	record, err := c.claimRecordInfoDAO.Get(ctx, tx, address, int(category))
	if err != nil {
		return err
	}
	if record != nil && record.LastClaimTime != nil {
		if now.Sub(*record.LastClaimTime) < cooldown {
			return incentivejson.ErrCooldownActive
		}
	}

	_, err = c.claimRecordInfoDAO.SetLastClaimTime(ctx, tx, address, int(category), now)
	return err
}

func (c *ClaimLedgerServiceImpl) GetClaimRecords(ctx context.Context, tx *gorm.DB, address string) ([]*do.ClaimRecordInfo, error) {
	return c.claimRecordInfoDAO.GetByAddress(ctx, tx, utils.NormalizeAddress(address))
}
