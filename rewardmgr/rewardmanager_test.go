package rewardmgr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/novanet-dev/nova-incentive-server/dal"
	"github.com/novanet-dev/nova-incentive-server/dal/do"
	"github.com/novanet-dev/nova-incentive-server/incentivejson"
	"github.com/novanet-dev/nova-incentive-server/ledgerclient"
	"github.com/novanet-dev/nova-incentive-server/modectrl"
	"github.com/novanet-dev/nova-incentive-server/model"
	"github.com/novanet-dev/nova-incentive-server/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testTotalSupply int64 = 1_000_000

	addrA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	addrB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	addrC = "0xcccccccccccccccccccccccccccccccccccccccc"
)

// fakeLedger records transfers and can be armed to fail the next one.
type fakeLedger struct {
	mu        sync.Mutex
	transfers map[string]int64
	failNext  error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{transfers: make(map[string]int64)}
}

func (f *fakeLedger) TotalSupply(ctx context.Context) (int64, error) {
	return testTotalSupply, nil
}

func (f *fakeLedger) BalanceOf(ctx context.Context, address string) (int64, error) {
	return testTotalSupply, nil
}

func (f *fakeLedger) Transfer(ctx context.Context, to string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.transfers[to] += amount
	return nil
}

func (f *fakeLedger) TokenBalanceOf(ctx context.Context, token string, address string) (int64, error) {
	return 12_345, nil
}

func (f *fakeLedger) TokenTransfer(ctx context.Context, token string, to string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers[token+":"+to] += amount
	return nil
}

func (f *fakeLedger) paid(to string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transfers[to]
}

func (f *fakeLedger) transferCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transfers)
}

type testEnv struct {
	rm     *RewardManager
	db     *gorm.DB
	ledger *fakeLedger
	clock  *clockwork.FakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(dal.AllTables()...))

	program := model.DefaultProgramConfig()
	program.EngineAddress = addrC

	_, err = service.GetMetaInfoService().Init(ctx, db, testTotalSupply)
	require.NoError(t, err)
	require.NoError(t, service.GetPoolService().InitPools(ctx, db, program, testTotalSupply))

	ledger := newFakeLedger()
	clock := clockwork.NewFakeClock()
	rm, err := NewRewardManager(&Config{
		DB:      db,
		Ledger:  ledger,
		Mode:    modectrl.NewModeController(db),
		Clock:   clock,
		Program: program,
	})
	require.NoError(t, err)

	return &testEnv{rm: rm, db: db, ledger: ledger, clock: clock}
}

func TestClaimRequiresLive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.rm.AssignTier(ctx, []string{addrA}, model.TierLow)
	require.NoError(t, err)

	_, err = env.rm.ClaimBugBounty(ctx, addrA)
	assert.Equal(t, incentivejson.ErrModeNotLive, err)

	_, err = env.rm.SetLive(ctx)
	require.NoError(t, err)

	outcome, err := env.rm.ClaimBugBounty(ctx, addrA)
	require.NoError(t, err)
	assert.Equal(t, int64(15_000), outcome.Amount)
}

func TestBugBountyClaimLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// The worked example: low tier is 500 bps of the 300,000 bug bounty
	// pool, split across a batch of two, so 7,500 each.
	_, perUser, err := env.rm.AssignTier(ctx, []string{addrA, addrB}, model.TierLow)
	require.NoError(t, err)
	require.Equal(t, int64(7_500), perUser)

	_, err = env.rm.SetLive(ctx)
	require.NoError(t, err)

	for _, addr := range []string{addrA, addrB} {
		outcome, err := env.rm.ClaimBugBounty(ctx, addr)
		require.NoError(t, err)
		assert.Equal(t, int64(7_500), outcome.Amount)
		assert.Equal(t, int64(7_500), env.ledger.paid(addr))
	}

	// The one-shot flag is terminal for this assignment lifetime.
	_, err = env.rm.ClaimBugBounty(ctx, addrA)
	assert.Equal(t, incentivejson.ErrAlreadyClaimed, err)

	// An address that was never assigned is a different failure.
	_, err = env.rm.ClaimBugBounty(ctx, addrC)
	assert.Equal(t, incentivejson.ErrNotWhitelisted, err)

	// Re-assignment arms a fresh claim for a new finding.
	_, perUser, err = env.rm.AssignTier(ctx, []string{addrA}, model.TierMedium)
	require.NoError(t, err)
	assert.Equal(t, int64(45_000), perUser)

	outcome, err := env.rm.ClaimBugBounty(ctx, addrA)
	require.NoError(t, err)
	assert.Equal(t, int64(45_000), outcome.Amount)
}

func TestSetLiveDistributesExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// addrA joins two rounds but must receive the launch base only once.
	_, _, err := env.rm.RegisterDappRound(ctx, []string{addrA, addrB}, []bool{true, false})
	require.NoError(t, err)
	_, _, err = env.rm.RegisterDappRound(ctx, []string{addrA}, nil)
	require.NoError(t, err)

	status, err := env.rm.SetLive(ctx)
	require.NoError(t, err)
	assert.True(t, status.Live)
	assert.True(t, status.Distributed)

	paidA := env.ledger.paid(addrA)
	paidB := env.ledger.paid(addrB)
	program := env.rm.Program()

	// One uptime bonus is reserved, the rest splits evenly: base is
	// (400,000 - 500) / 2, and only addrA carries the bonus.
	base := (int64(400_000) - program.UptimeBonus) / 2
	assert.Equal(t, base+program.UptimeBonus, paidA)
	assert.Equal(t, base, paidB)

	// A second setlive must not push again.
	status, err = env.rm.SetLive(ctx)
	require.NoError(t, err)
	assert.True(t, status.Distributed)
	assert.Equal(t, paidA, env.ledger.paid(addrA))
	assert.Equal(t, paidB, env.ledger.paid(addrB))
}

func TestPauseBlocksClaims(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.rm.SetLive(ctx)
	require.NoError(t, err)

	roundID, _, err := env.rm.RegisterDappRound(ctx, []string{addrA}, nil)
	require.NoError(t, err)

	_, err = env.rm.Pause(ctx)
	require.NoError(t, err)

	_, err = env.rm.ClaimDappRound(ctx, addrA, roundID)
	assert.Equal(t, incentivejson.ErrPaused, err)

	// Registrations keep working while paused.
	_, _, err = env.rm.RegisterDappRound(ctx, []string{addrB}, nil)
	require.NoError(t, err)

	_, err = env.rm.Resume(ctx)
	require.NoError(t, err)

	outcome, err := env.rm.ClaimDappRound(ctx, addrA, roundID)
	require.NoError(t, err)
	assert.Equal(t, env.rm.Program().MonthlyDappReward, outcome.Amount)
}

func TestDappRoundClaimWithUptimeBonus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.rm.SetLive(ctx)
	require.NoError(t, err)

	roundID, _, err := env.rm.RegisterDappRound(ctx, []string{addrA, addrB}, []bool{true, false})
	require.NoError(t, err)

	program := env.rm.Program()

	outcome, err := env.rm.ClaimDappRound(ctx, addrA, roundID)
	require.NoError(t, err)
	assert.Equal(t, program.MonthlyDappReward+program.UptimeBonus, outcome.Amount)

	outcome, err = env.rm.ClaimDappRound(ctx, addrB, roundID)
	require.NoError(t, err)
	assert.Equal(t, program.MonthlyDappReward, outcome.Amount)

	_, err = env.rm.ClaimDappRound(ctx, addrA, roundID)
	assert.Equal(t, incentivejson.ErrAlreadyClaimed, err)

	// Membership is per round.
	_, err = env.rm.ClaimDappRound(ctx, addrC, roundID)
	assert.Equal(t, incentivejson.ErrNotWhitelisted, err)
}

func TestDeploymentClaimCooldown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.rm.SetLive(ctx)
	require.NoError(t, err)

	// Registered after launch so the developer pool is still intact.
	_, err = env.rm.RegisterDeployer(ctx, []string{addrA})
	require.NoError(t, err)

	program := env.rm.Program()

	outcome, err := env.rm.ClaimDeployment(ctx, addrA)
	require.NoError(t, err)
	assert.Equal(t, program.DeploymentReward, outcome.Amount)

	env.clock.Advance(29 * 24 * time.Hour)
	_, err = env.rm.ClaimDeployment(ctx, addrA)
	assert.Equal(t, incentivejson.ErrCooldownActive, err)

	env.clock.Advance(24 * time.Hour)
	_, err = env.rm.ClaimDeployment(ctx, addrA)
	require.NoError(t, err)
	assert.Equal(t, 2*program.DeploymentReward, env.ledger.paid(addrA))

	_, err = env.rm.ClaimDeployment(ctx, addrB)
	assert.Equal(t, incentivejson.ErrNotWhitelisted, err)
}

func TestTransferFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.rm.AssignTier(ctx, []string{addrA}, model.TierHigh)
	require.NoError(t, err)
	_, err = env.rm.SetLive(ctx)
	require.NoError(t, err)

	env.ledger.failNext = errors.New("ledger down")
	_, err = env.rm.ClaimBugBounty(ctx, addrA)
	require.Error(t, err)

	// Nothing may stick: the tier, the one-shot flag and the pool budget
	// all roll back, so the retry succeeds for the full amount.
	remaining, err := service.GetPoolService().Remaining(ctx, env.db, model.PoolBugBounty)
	require.NoError(t, err)
	assert.Equal(t, int64(300_000), remaining)

	outcome, err := env.rm.ClaimBugBounty(ctx, addrA)
	require.NoError(t, err)
	assert.Equal(t, int64(90_000), outcome.Amount)

	remaining, err = service.GetPoolService().Remaining(ctx, env.db, model.PoolBugBounty)
	require.NoError(t, err)
	assert.Equal(t, int64(210_000), remaining)
}

func TestInsufficientLedgerBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.rm.AssignTier(ctx, []string{addrA}, model.TierLow)
	require.NoError(t, err)
	_, err = env.rm.SetLive(ctx)
	require.NoError(t, err)

	env.ledger.failNext = ledgerclient.ErrInsufficientBalance
	_, err = env.rm.ClaimBugBounty(ctx, addrA)
	assert.Equal(t, incentivejson.ErrInsufficientPoolOrBalance, err)
}

func TestGenericClaimDispatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.rm.SetLive(ctx)
	require.NoError(t, err)

	roundID, _, err := env.rm.RegisterDappRound(ctx, []string{addrA}, nil)
	require.NoError(t, err)

	_, err = env.rm.Claim(ctx, addrA, model.CategoryUnknown, nil)
	assert.Equal(t, incentivejson.ErrNoClaimSelected, err)

	_, err = env.rm.Claim(ctx, addrA, model.CategoryDappRound, nil)
	assert.Equal(t, incentivejson.ErrNoClaimSelected, err)

	outcome, err := env.rm.Claim(ctx, addrA, model.CategoryDappRound, &roundID)
	require.NoError(t, err)
	assert.Equal(t, model.CategoryDappRound, outcome.Category)
}

func TestEmergencySweep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	amount, err := env.rm.EmergencySweep(ctx, "0xdddddddddddddddddddddddddddddddddddddddd", addrB)
	require.NoError(t, err)
	assert.Equal(t, int64(12_345), amount)

	meta, err := service.GetMetaInfoService().Get(ctx, env.db)
	require.NoError(t, err)
	require.NotNil(t, meta.LastSweepTime)
	assert.True(t, meta.LastSweepTime.Equal(env.clock.Now()))

	_, err = env.rm.EmergencySweep(ctx, "", "bogus")
	assert.Equal(t, incentivejson.ErrInvalidAddress, err)
}

func TestSetRewardParameters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.rm.SetMonthlyDappReward(ctx, 3_000))
	require.NoError(t, env.rm.SetUptimeBonus(ctx, 700))
	require.NoError(t, env.rm.SetDeploymentReward(ctx, 9_000))
	assert.Equal(t, incentivejson.ErrInvalidParams, env.rm.SetMonthlyDappReward(ctx, -1))

	program := env.rm.Program()
	assert.Equal(t, int64(3_000), program.MonthlyDappReward)
	assert.Equal(t, int64(700), program.UptimeBonus)
	assert.Equal(t, int64(9_000), program.DeploymentReward)
}

func TestRewardParametersSurviveRestart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.rm.SetMonthlyDappReward(ctx, 3_000))
	require.NoError(t, env.rm.SetMonthlyDappReward(ctx, 4_000))
	require.NoError(t, env.rm.SetUptimeBonus(ctx, 700))

	program := model.DefaultProgramConfig()
	program.EngineAddress = addrC
	restarted, err := NewRewardManager(&Config{
		DB:      env.db,
		Ledger:  env.ledger,
		Mode:    modectrl.NewModeController(env.db),
		Clock:   env.clock,
		Program: program,
	})
	require.NoError(t, err)

	restored := restarted.Program()
	assert.Equal(t, int64(4_000), restored.MonthlyDappReward)
	assert.Equal(t, int64(700), restored.UptimeBonus)
	// Never updated, so the configured default stays.
	assert.Equal(t, program.DeploymentReward, restored.DeploymentReward)
}

func TestSetRewardParameterKeepsOldValueOnFailedAudit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.rm.SetMonthlyDappReward(ctx, 3_000))

	// Without the audit event the update must not take effect.
	require.NoError(t, env.db.Migrator().DropTable(&do.EventInfo{}))
	assert.Error(t, env.rm.SetMonthlyDappReward(ctx, 8_000))
	assert.Equal(t, int64(3_000), env.rm.Program().MonthlyDappReward)

	_, err := env.rm.SetLive(ctx)
	require.NoError(t, err)
	roundID, _, err := env.rm.RegisterDappRound(ctx, []string{addrA}, nil)
	require.NoError(t, err)

	outcome, err := env.rm.ClaimDappRound(ctx, addrA, roundID)
	require.NoError(t, err)
	assert.Equal(t, int64(3_000), outcome.Amount)
}

func TestNotificationsFanOut(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var mu sync.Mutex
	var seen []NotificationType
	env.rm.Subscribe(func(n *Notification) {
		mu.Lock()
		seen = append(seen, n.Type)
		mu.Unlock()
	})

	_, _, err := env.rm.AssignTier(ctx, []string{addrA}, model.TierLow)
	require.NoError(t, err)
	_, err = env.rm.SetLive(ctx)
	require.NoError(t, err)
	_, err = env.rm.ClaimBugBounty(ctx, addrA)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []NotificationType{NTWhitelistUpdated, NTModeChanged, NTClaimed}, seen)
}
