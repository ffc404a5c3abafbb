package service

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/novanet-dev/nova-incentive-server/incentivejson"
	"github.com/novanet-dev/nova-incentive-server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneShotClaim(t *testing.T) {
	db := newTestDB(t)
	newTestProgram(t, db)
	ctx := context.Background()
	svc := NewClaimLedgerService(clockwork.NewFakeClock())

	require.NoError(t, svc.TryConsumeOneShot(ctx, db, addrA, model.CategoryBugBounty))
	assert.Equal(t, incentivejson.ErrAlreadyClaimed,
		svc.TryConsumeOneShot(ctx, db, addrA, model.CategoryBugBounty))

	// Other addresses are unaffected.
	require.NoError(t, svc.TryConsumeOneShot(ctx, db, addrB, model.CategoryBugBounty))
}

func TestRoundClaim(t *testing.T) {
	db := newTestDB(t)
	newTestProgram(t, db)
	ctx := context.Background()
	svc := NewClaimLedgerService(clockwork.NewFakeClock())

	roundID, _, err := GetRegistryService().RegisterDappRound(ctx, db, []string{addrA}, nil)
	require.NoError(t, err)

	// Non-members cannot consume the round.
	assert.Equal(t, incentivejson.ErrNotWhitelisted, svc.TryConsumeRound(ctx, db, addrB, roundID))

	require.NoError(t, svc.TryConsumeRound(ctx, db, addrA, roundID))
	assert.Equal(t, incentivejson.ErrAlreadyClaimed, svc.TryConsumeRound(ctx, db, addrA, roundID))
}

func TestCooldownClaim(t *testing.T) {
	db := newTestDB(t)
	newTestProgram(t, db)
	ctx := context.Background()

	clock := clockwork.NewFakeClock()
	svc := NewClaimLedgerService(clock)
	cooldown := 30 * 24 * time.Hour

	require.NoError(t, svc.TryConsumeCooldown(ctx, db, addrA, model.CategoryDeployment, cooldown))

	clock.Advance(29 * 24 * time.Hour)
	assert.Equal(t, incentivejson.ErrCooldownActive,
		svc.TryConsumeCooldown(ctx, db, addrA, model.CategoryDeployment, cooldown))

	clock.Advance(24 * time.Hour)
	require.NoError(t, svc.TryConsumeCooldown(ctx, db, addrA, model.CategoryDeployment, cooldown))
}

func TestPoolBound(t *testing.T) {
	db := newTestDB(t)
	newTestProgram(t, db)
	ctx := context.Background()
	pools := GetPoolService()

	// Bug bounty pool is 300,000.
	remaining, err := pools.Remaining(ctx, db, model.PoolBugBounty)
	require.NoError(t, err)
	assert.Equal(t, int64(300_000), remaining)

	require.NoError(t, pools.RecordClaim(ctx, db, model.PoolBugBounty, 300_000))

	// The next unit over the allocation must be rejected and leave the
	// claimed counter untouched.
	err = pools.RecordClaim(ctx, db, model.PoolBugBounty, 1)
	assert.Equal(t, incentivejson.ErrInsufficientPoolOrBalance, err)

	remaining, err = pools.Remaining(ctx, db, model.PoolBugBounty)
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining)
}
