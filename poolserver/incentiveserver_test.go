package poolserver

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/novanet-dev/nova-incentive-server/dal"
	"github.com/novanet-dev/nova-incentive-server/incentivejson"
	"github.com/novanet-dev/nova-incentive-server/model"
	"github.com/novanet-dev/nova-incentive-server/modectrl"
	"github.com/novanet-dev/nova-incentive-server/rewardmgr"
	"github.com/novanet-dev/nova-incentive-server/service"
)

const (
	testTotalSupply int64 = 1_000_000

	addrA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	addrB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

type fakeLedger struct{}

func (f *fakeLedger) TotalSupply(ctx context.Context) (int64, error) {
	return testTotalSupply, nil
}

func (f *fakeLedger) BalanceOf(ctx context.Context, address string) (int64, error) {
	return testTotalSupply, nil
}

func (f *fakeLedger) Transfer(ctx context.Context, to string, amount int64) error {
	return nil
}

func (f *fakeLedger) TokenBalanceOf(ctx context.Context, token string, address string) (int64, error) {
	return 0, nil
}

func (f *fakeLedger) TokenTransfer(ctx context.Context, token string, to string, amount int64) error {
	return nil
}

func newTestServer(t *testing.T) *IncentiveServer {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(dal.AllTables()...))

	program := model.DefaultProgramConfig()
	_, err = service.GetMetaInfoService().Init(ctx, db, testTotalSupply)
	require.NoError(t, err)
	require.NoError(t, service.GetPoolService().InitPools(ctx, db, program, testTotalSupply))

	mgr, err := rewardmgr.NewRewardManager(&rewardmgr.Config{
		DB:      db,
		Ledger:  &fakeLedger{},
		Mode:    modectrl.NewModeController(db),
		Program: program,
	})
	require.NoError(t, err)

	svr := &IncentiveServer{
		cfg: Config{
			RPCUser:          "admin",
			RPCPass:          "adminpass",
			RPCLimitUser:     "limit",
			RPCLimitPass:     "limitpass",
			RPCMaxClients:    10,
			RPCMaxWebsockets: 5,
		},
		db:              db,
		rewardMgr:       mgr,
		metaInfoService: service.GetMetaInfoService(),
		poolService:     service.GetPoolService(),
		registryService: service.GetRegistryService(),
		claimLedger:     service.GetClaimLedgerService(),
		eventService:    service.GetEventService(),
		adminService:    service.GetAdminService(),
		metrics:         newServerMetrics(),
		quit:            make(chan int),
	}
	svr.authsha = sha256.Sum256([]byte(basicAuth(svr.cfg.RPCUser, svr.cfg.RPCPass)))
	svr.limitauthsha = sha256.Sum256([]byte(basicAuth(svr.cfg.RPCLimitUser, svr.cfg.RPCLimitPass)))
	svr.ntfnMgr = newWsNotificationManager(svr)
	mgr.Subscribe(svr.handleRewardNotification)

	return svr
}

func basicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

// rpcCall runs one request through the full read/dispatch/marshal path and
// decodes the reply.
func rpcCall(t *testing.T, svr *IncentiveServer, isAdmin bool, method string, params interface{}) *incentivejson.Response {
	t.Helper()

	request, err := incentivejson.NewRequest(1, method, params)
	require.NoError(t, err)
	body, err := json.Marshal(request)
	require.NoError(t, err)

	httpReq := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	recorder := httptest.NewRecorder()
	svr.jsonRPCRead(recorder, httpReq, isAdmin)

	require.Equal(t, http.StatusOK, recorder.Code)
	var response incentivejson.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	return &response
}

func TestParseCmd(t *testing.T) {
	params, _ := json.Marshal(map[string]interface{}{"kind": "bugbounty"})
	parsed := parseCmd(&incentivejson.Request{
		Jsonrpc: "2.0",
		Method:  "getpoolinfo",
		Params:  params,
		ID:      1,
	})
	require.Nil(t, parsed.err)
	cmd, ok := parsed.cmd.(*incentivejson.GetPoolInfoCmd)
	require.True(t, ok)
	assert.Equal(t, "bugbounty", cmd.Kind)

	parsed = parseCmd(&incentivejson.Request{Jsonrpc: "2.0", Method: "nosuchmethod", ID: 1})
	require.NotNil(t, parsed.err)
	assert.Equal(t, incentivejson.ErrRPCMethodNotFound.Code, parsed.err.Code)
}

func TestCreateMarshalledReply(t *testing.T) {
	// Domain RPC errors pass through with their code intact.
	msg, err := createMarshalledReply(1, nil, incentivejson.ErrAlreadyClaimed)
	require.NoError(t, err)
	var response incentivejson.Response
	require.NoError(t, json.Unmarshal(msg, &response))
	require.NotNil(t, response.Error)
	assert.Equal(t, incentivejson.ErrAlreadyClaimed.Code, response.Error.Code)

	// Other errors become internal errors.
	msg, err = createMarshalledReply(1, nil, fmt.Errorf("boom"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(msg, &response))
	require.NotNil(t, response.Error)
	assert.Equal(t, incentivejson.ErrRPCInternal.Code, response.Error.Code)
}

func TestLimitedMethodsAreRegistered(t *testing.T) {
	for method := range rpcLimited {
		// subscribeevents is serviced by the websocket client itself.
		if method == "subscribeevents" {
			continue
		}
		_, ok := rpcHandlers[method]
		assert.True(t, ok, "limited method %q has no handler", method)
	}
}

func TestCheckAuth(t *testing.T) {
	svr := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", basicAuth("admin", "adminpass"))
	ok, isAdmin, err := svr.checkAuth(req, true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, isAdmin)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", basicAuth("limit", "limitpass"))
	ok, isAdmin, err = svr.checkAuth(req, true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, isAdmin)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", basicAuth("admin", "wrongpass"))
	_, _, err = svr.checkAuth(req, true)
	assert.Error(t, err)

	// Missing header is only an error when auth is required.
	req = httptest.NewRequest(http.MethodPost, "/", nil)
	ok, _, err = svr.checkAuth(req, false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVersionRPC(t *testing.T) {
	svr := newTestServer(t)

	response := rpcCall(t, svr, false, "version", incentivejson.NewVersionCmd())
	require.Nil(t, response.Error)

	var result incentivejson.VersionResult
	require.NoError(t, json.Unmarshal(response.Result, &result))
	assert.Equal(t, uint32(jsonrpcSemverMajor), result.Major)
}

func TestLimitedUserCannotMutate(t *testing.T) {
	svr := newTestServer(t)

	response := rpcCall(t, svr, false, "setlive", incentivejson.NewSetLiveCmd())
	require.NotNil(t, response.Error)
	assert.Equal(t, incentivejson.ErrUnauthorized.Code, response.Error.Code)
}

func TestProgramLifecycleRPC(t *testing.T) {
	svr := newTestServer(t)

	// Register a bug bounty batch.
	response := rpcCall(t, svr, true, "registertier",
		incentivejson.NewRegisterTierCmd([]string{addrA, addrB}, "high"))
	require.Nil(t, response.Error)
	var registered incentivejson.RegisterTierResult
	require.NoError(t, json.Unmarshal(response.Result, &registered))
	assert.Equal(t, 2, registered.Registered)
	// 1,000,000 total * 30% pool * 30% tier / 2 addresses.
	assert.Equal(t, int64(45_000), registered.PerUser)

	// Claims are rejected before launch.
	response = rpcCall(t, svr, false, "claimbugbounty", incentivejson.NewClaimBugBountyCmd(addrA))
	require.NotNil(t, response.Error)
	assert.Equal(t, incentivejson.ErrModeNotLive.Code, response.Error.Code)

	// Go live.
	response = rpcCall(t, svr, true, "setlive", incentivejson.NewSetLiveCmd())
	require.Nil(t, response.Error)
	var live incentivejson.SetLiveResult
	require.NoError(t, json.Unmarshal(response.Result, &live))
	assert.True(t, live.Live)
	assert.True(t, live.Distributed)

	// Now the claim succeeds exactly once.
	response = rpcCall(t, svr, false, "claimbugbounty", incentivejson.NewClaimBugBountyCmd(addrA))
	require.Nil(t, response.Error)
	var claim incentivejson.ClaimResult
	require.NoError(t, json.Unmarshal(response.Result, &claim))
	assert.Equal(t, int64(45_000), claim.Amount)

	response = rpcCall(t, svr, false, "claimbugbounty", incentivejson.NewClaimBugBountyCmd(addrA))
	require.NotNil(t, response.Error)
	assert.Equal(t, incentivejson.ErrAlreadyClaimed.Code, response.Error.Code)

	// Meta reflects the consumed pool.
	response = rpcCall(t, svr, false, "getmetainfo", incentivejson.NewGetMetaInfoCmd())
	require.Nil(t, response.Error)
	var meta incentivejson.GetMetaInfoResult
	require.NoError(t, json.Unmarshal(response.Result, &meta))
	assert.True(t, meta.Live)
	assert.Equal(t, testTotalSupply, meta.TotalSupply)

	// The event stream recorded the whole lifecycle.
	response = rpcCall(t, svr, false, "getevents", incentivejson.NewGetEventsCmd(0, 50, nil))
	require.Nil(t, response.Error)
	var events incentivejson.GetEventsResult
	require.NoError(t, json.Unmarshal(response.Result, &events))
	assert.GreaterOrEqual(t, events.Total, int64(3))
}

func TestGetPoolInfoRPC(t *testing.T) {
	svr := newTestServer(t)

	response := rpcCall(t, svr, false, "getpoolinfo", incentivejson.NewGetPoolInfoCmd("dapp"))
	require.Nil(t, response.Error)
	var pool incentivejson.PoolInfoResult
	require.NoError(t, json.Unmarshal(response.Result, &pool))
	assert.Equal(t, "dapp", pool.Kind)
	assert.Equal(t, int64(400_000), pool.Allocation)

	response = rpcCall(t, svr, false, "getpoolinfo", incentivejson.NewGetPoolInfoCmd("nosuchpool"))
	require.NotNil(t, response.Error)
	assert.Equal(t, incentivejson.ErrInvalidParams.Code, response.Error.Code)
}

func TestWebsocketNotificationDelivery(t *testing.T) {
	svr := newTestServer(t)
	svr.ntfnMgr.Start()
	defer func() {
		svr.ntfnMgr.Shutdown()
		svr.ntfnMgr.WaitForShutdown()
	}()

	httpServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		svr.websocketHandler(w, r, false)
	}))
	defer httpServer.Close()

	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Wait for the client registration to land before broadcasting.
	require.Eventually(t, func() bool {
		return svr.ntfnMgr.NumClients() == 1
	}, 5*time.Second, 10*time.Millisecond)

	// Notifications only flow to subscribed clients.
	err = conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"jsonrpc":"2.0","method":"subscribeevents","id":1}`))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, subMsg, err := conn.ReadMessage()
	require.NoError(t, err)

	var subResp incentivejson.Response
	require.NoError(t, json.Unmarshal(subMsg, &subResp))
	require.Nil(t, subResp.Error)
	assert.JSONEq(t, "true", string(subResp.Result))

	svr.handleRewardNotification(&rewardmgr.Notification{
		Type: rewardmgr.NTClaimed,
		Data: &model.ClaimOutcome{
			Address:  addrA,
			Category: model.CategoryBugBounty,
			Amount:   45_000,
		},
	})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var pushed incentivejson.Request
	require.NoError(t, json.Unmarshal(msg, &pushed))
	assert.Equal(t, incentivejson.ClaimedNtfnMethod, pushed.Method)

	var payload incentivejson.ClaimedNtfn
	require.NoError(t, json.Unmarshal(pushed.Params, &payload))
	assert.Equal(t, addrA, payload.Address)
	assert.Equal(t, int64(45_000), payload.Amount)
}
