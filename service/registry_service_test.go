package service

import (
	"context"
	"testing"

	"github.com/novanet-dev/nova-incentive-server/incentivejson"
	"github.com/novanet-dev/nova-incentive-server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig() *model.ProgramConfig {
	return model.DefaultProgramConfig()
}

const (
	addrA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	addrB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	addrC = "0xcccccccccccccccccccccccccccccccccccccccc"
)

func TestAssignTierPerUserRate(t *testing.T) {
	db := newTestDB(t)
	newTestProgram(t, db)
	ctx := context.Background()
	svc := GetRegistryService()
	cfg := newTestConfig()

	// Bug bounty pool is 3000 bps of 1,000,000 = 300,000. Low tier gets
	// 500 bps of that = 15,000, split across a batch of two.
	registered, perUser, err := svc.AssignTier(ctx, db, cfg, []string{addrA, addrB}, model.TierLow)
	require.NoError(t, err)
	assert.Equal(t, 2, registered)
	assert.Equal(t, int64(7_500), perUser)

	tier, err := svc.GetTierAssignment(ctx, db, addrA)
	require.NoError(t, err)
	assert.Equal(t, model.TierLow, tier)
}

func TestAssignTierRateIsCallScoped(t *testing.T) {
	db := newTestDB(t)
	newTestProgram(t, db)
	ctx := context.Background()
	svc := GetRegistryService()
	cfg := newTestConfig()

	_, perUser, err := svc.AssignTier(ctx, db, cfg, []string{addrA, addrB}, model.TierLow)
	require.NoError(t, err)
	assert.Equal(t, int64(7_500), perUser)

	// A later batch of one re-derives the rate from its own size, not the
	// cumulative tier membership.
	_, perUser, err = svc.AssignTier(ctx, db, cfg, []string{addrC}, model.TierLow)
	require.NoError(t, err)
	assert.Equal(t, int64(15_000), perUser)

	rate, err := svc.GetTierRate(ctx, db, model.TierLow)
	require.NoError(t, err)
	assert.Equal(t, int64(15_000), rate.PerUser)
	assert.Equal(t, int64(1), rate.MemberCount)
}

func TestAssignTierRejectsBadBatches(t *testing.T) {
	db := newTestDB(t)
	newTestProgram(t, db)
	ctx := context.Background()
	svc := GetRegistryService()
	cfg := newTestConfig()

	_, _, err := svc.AssignTier(ctx, db, cfg, nil, model.TierLow)
	assert.Equal(t, incentivejson.ErrEmptyBatch, err)

	_, _, err = svc.AssignTier(ctx, db, cfg, []string{"nonsense"}, model.TierLow)
	assert.Equal(t, incentivejson.ErrInvalidAddress, err)

	zero := "0x0000000000000000000000000000000000000000"
	_, _, err = svc.AssignTier(ctx, db, cfg, []string{zero}, model.TierLow)
	assert.Equal(t, incentivejson.ErrInvalidAddress, err)

	_, _, err = svc.AssignTier(ctx, db, cfg, []string{addrA}, model.TierNone)
	assert.Equal(t, incentivejson.ErrUnknownTier, err)

	_, _, err = svc.AssignTier(ctx, db, cfg, []string{addrA, addrA}, model.TierLow)
	assert.Equal(t, incentivejson.ErrAlreadyAssigned, err)

	_, _, err = svc.AssignTier(ctx, db, cfg, []string{addrA}, model.TierLow)
	require.NoError(t, err)
	_, _, err = svc.AssignTier(ctx, db, cfg, []string{addrA}, model.TierMedium)
	assert.Equal(t, incentivejson.ErrAlreadyAssigned, err)
}

func TestRegisterDeployer(t *testing.T) {
	db := newTestDB(t)
	newTestProgram(t, db)
	ctx := context.Background()
	svc := GetRegistryService()

	_, err := svc.RegisterDeployer(ctx, db, []string{})
	assert.Equal(t, incentivejson.ErrEmptyBatch, err)

	registered, err := svc.RegisterDeployer(ctx, db, []string{addrA, addrB})
	require.NoError(t, err)
	assert.Equal(t, 2, registered)

	// The whitelist is write-once.
	_, err = svc.RegisterDeployer(ctx, db, []string{addrB})
	assert.Equal(t, incentivejson.ErrAlreadyRegistered, err)

	isDeployer, err := svc.IsDeployer(ctx, db, addrA)
	require.NoError(t, err)
	assert.True(t, isDeployer)

	isDeployer, err = svc.IsDeployer(ctx, db, addrC)
	require.NoError(t, err)
	assert.False(t, isDeployer)
}

func TestRegisterDappRound(t *testing.T) {
	db := newTestDB(t)
	newTestProgram(t, db)
	ctx := context.Background()
	svc := GetRegistryService()

	_, _, err := svc.RegisterDappRound(ctx, db, []string{addrA}, []bool{true, false})
	assert.Equal(t, incentivejson.ErrLengthMismatch, err)

	_, _, err = svc.RegisterDappRound(ctx, db, []string{addrA, addrA}, nil)
	assert.Equal(t, incentivejson.ErrDuplicateInRound, err)

	roundID, registered, err := svc.RegisterDappRound(ctx, db, []string{addrA, addrB}, []bool{true, false})
	require.NoError(t, err)
	assert.Equal(t, int64(1), roundID)
	assert.Equal(t, 2, registered)

	// Round ids increment and an address may join multiple rounds.
	roundID, _, err = svc.RegisterDappRound(ctx, db, []string{addrA}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), roundID)

	memberships, err := svc.GetRoundMemberships(ctx, db, addrA)
	require.NoError(t, err)
	require.Len(t, memberships, 2)

	members, err := svc.DistinctDappMembers(ctx, db)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestStickyUptimeFlag(t *testing.T) {
	db := newTestDB(t)
	newTestProgram(t, db)
	ctx := context.Background()
	svc := GetRegistryService()

	_, _, err := svc.RegisterDappRound(ctx, db, []string{addrA}, []bool{true})
	require.NoError(t, err)

	goodUptime, err := svc.HasGoodUptime(ctx, db, addrA)
	require.NoError(t, err)
	assert.True(t, goodUptime)

	// A later round with a false flag must not clear it.
	_, _, err = svc.RegisterDappRound(ctx, db, []string{addrA}, []bool{false})
	require.NoError(t, err)

	goodUptime, err = svc.HasGoodUptime(ctx, db, addrA)
	require.NoError(t, err)
	assert.True(t, goodUptime)
}

func TestGetEligibility(t *testing.T) {
	db := newTestDB(t)
	newTestProgram(t, db)
	ctx := context.Background()
	svc := GetRegistryService()
	cfg := newTestConfig()

	_, _, err := svc.AssignTier(ctx, db, cfg, []string{addrA}, model.TierHigh)
	require.NoError(t, err)
	_, err = svc.RegisterDeployer(ctx, db, []string{addrA})
	require.NoError(t, err)
	_, _, err = svc.RegisterDappRound(ctx, db, []string{addrA}, []bool{true})
	require.NoError(t, err)

	snapshot, err := svc.GetEligibility(ctx, db, addrA)
	require.NoError(t, err)
	assert.Equal(t, model.TierHigh, snapshot.Tier)
	// High tier gets 3000 bps of the 300,000 bug bounty pool.
	assert.Equal(t, int64(90_000), snapshot.TierReward)
	assert.True(t, snapshot.Deployer)
	assert.True(t, snapshot.GoodUptime)
	require.Len(t, snapshot.Rounds, 1)
	assert.False(t, snapshot.Rounds[0].Claimed)
}
