package poolserver

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/novanet-dev/nova-incentive-server/incentivejson"
	"github.com/novanet-dev/nova-incentive-server/rewardmgr"
	"github.com/novanet-dev/nova-incentive-server/service"
	"github.com/novanet-dev/nova-incentive-server/utils"

	"gorm.io/gorm"
)

const (
	// rpcAuthTimeoutSeconds is the number of seconds a connection to the
	// RPC server is allowed to stay open without authenticating before it
	// is closed.
	rpcAuthTimeoutSeconds = 10

	// JSON-RPC API semantic version reported by the version method.
	jsonrpcSemverMajor = 1
	jsonrpcSemverMinor = 0
	jsonrpcSemverPatch = 0
)

// Commands that are available to a limited user. Everything else requires
// admin credentials.
var rpcLimited = map[string]struct{}{
	"version":         {},
	"getmetainfo":     {},
	"getpoolinfo":     {},
	"getremaining":    {},
	"geteligibility":  {},
	"getclaimrecords": {},
	"gettierrates":    {},
	"getevents":       {},

	"claim":           {},
	"claimbugbounty":  {},
	"claimdappround":  {},
	"claimdeployment": {},

	"subscribeevents": {},
}

type commandHandler func(*IncentiveServer, interface{}, <-chan struct{}) (interface{}, error)

// rpcHandlers maps RPC command strings to appropriate handler functions.
// This is set by init because handlers reference the server type and thus
// cause a dependency loop when declared inline.
var rpcHandlers map[string]commandHandler
var rpcHandlersBeforeInit = map[string]commandHandler{
	"version": handleVersion,

	"getmetainfo":     handleGetMetaInfo,
	"getpoolinfo":     handleGetPoolInfo,
	"getremaining":    handleGetRemaining,
	"geteligibility":  handleGetEligibility,
	"getclaimrecords": handleGetClaimRecords,
	"gettierrates":    handleGetTierRates,
	"getevents":       handleGetEvents,

	"registertier":      handleRegisterTier,
	"registerdeployer":  handleRegisterDeployer,
	"registerdappround": handleRegisterDappRound,

	"setlive":        handleSetLive,
	"pause":          handlePause,
	"resume":         handleResume,
	"emergencysweep": handleEmergencySweep,

	"setmonthlydappreward": handleSetMonthlyDappReward,
	"setuptimebonus":       handleSetUptimeBonus,
	"setdeploymentreward":  handleSetDeploymentReward,

	"claim":           handleClaim,
	"claimbugbounty":  handleClaimBugBounty,
	"claimdappround":  handleClaimDappRound,
	"claimdeployment": handleClaimDeployment,
}

func init() {
	rpcHandlers = rpcHandlersBeforeInit
}

// simpleAddr implements the net.Addr interface with two struct fields.
type simpleAddr struct {
	net, addr string
}

func (a simpleAddr) String() string {
	return a.addr
}

func (a simpleAddr) Network() string {
	return a.net
}

var _ net.Addr = simpleAddr{}

// internalRPCError is a convenience function to convert an internal error to
// an RPC error with the appropriate code set. It also logs the error to the
// RPC server subsystem since internal errors really should not occur.
func internalRPCError(errStr, context string) *incentivejson.RPCError {
	logStr := errStr
	if context != "" {
		logStr = context + ": " + errStr
	}
	log.Error(logStr)
	return incentivejson.NewRPCError(incentivejson.ErrRPCInternal.Code, errStr)
}

// Config holds the incentive RPC server settings.
type Config struct {
	ListenersString []string
	Listeners       []net.Listener

	RPCUser      string
	RPCPass      string
	RPCLimitUser string
	RPCLimitPass string

	RPCMaxClients    int
	RPCMaxWebsockets int

	DisableTLS bool
	RPCCert    string
	RPCKey     string
}

// IncentiveServer serves the reward program's JSON-RPC API over HTTP POST
// and pushes program notifications to websocket subscribers.
type IncentiveServer struct {
	started  int32
	shutdown int32

	cfg       Config
	db        *gorm.DB
	rewardMgr *rewardmgr.RewardManager

	metaInfoService service.MetaInfoService
	poolService     service.PoolService
	registryService service.RegistryService
	claimLedger     service.ClaimLedgerService
	eventService    service.EventService
	adminService    service.AdminService

	authsha      [sha256.Size]byte
	limitauthsha [sha256.Size]byte

	ntfnMgr    *wsNotificationManager
	metrics    *serverMetrics
	numClients int32
	startTime  int64

	wg   sync.WaitGroup
	quit chan int
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// parseListeners determines whether each listen address is IPv4 and IPv6 and
// returns a slice of appropriate net.Addrs to listen on with TCP. It also
// properly detects addresses which apply to "all interfaces" and adds the
// address as both IPv4 and IPv6.
func parseListeners(addrs []string) ([]net.Addr, error) {
	netAddrs := make([]net.Addr, 0, len(addrs)*2)
	for _, addr := range addrs {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			// Shouldn't happen due to already being normalized.
			return nil, err
		}

		// Empty host or host of * on plan9 is both IPv4 and IPv6.
		if host == "" || (host == "*" && runtime.GOOS == "plan9") {
			netAddrs = append(netAddrs, simpleAddr{net: "tcp4", addr: addr})
			netAddrs = append(netAddrs, simpleAddr{net: "tcp6", addr: addr})
			continue
		}

		// Strip IPv6 zone id if present since net.ParseIP does not
		// handle it.
		zoneIndex := strings.LastIndex(host, "%")
		if zoneIndex > 0 {
			host = host[:zoneIndex]
		}

		ip := net.ParseIP(host)
		if ip == nil {
			return nil, fmt.Errorf("'%s' is not a valid IP address", host)
		}

		// To4 returns nil when the IP is not an IPv4 address, so use
		// this to determine the address type.
		if ip.To4() == nil {
			netAddrs = append(netAddrs, simpleAddr{net: "tcp6", addr: addr})
		} else {
			netAddrs = append(netAddrs, simpleAddr{net: "tcp4", addr: addr})
		}
	}
	return netAddrs, nil
}

// setupRPCListeners returns a slice of listeners that are configured for use
// with the RPC server depending on the configuration settings for listen
// addresses and TLS.
func setupRPCListeners(listenersString []string, rpcKey string, rpcCert string, disableTLS bool) ([]net.Listener, error) {
	listenFunc := net.Listen
	if !disableTLS {
		if !fileExists(rpcKey) || !fileExists(rpcCert) {
			return nil, errors.New("cannot find RPC cert and key")
		}

		keypair, err := tls.LoadX509KeyPair(rpcCert, rpcKey)
		if err != nil {
			return nil, err
		}

		tlsConfig := tls.Config{
			Certificates: []tls.Certificate{keypair},
			MinVersion:   tls.VersionTLS12,
		}

		// Change the standard net.Listen function to the tls one.
		listenFunc = func(net string, laddr string) (net.Listener, error) {
			return tls.Listen(net, laddr, &tlsConfig)
		}
	}

	netAddrs, err := parseListeners(listenersString)
	if err != nil {
		return nil, err
	}

	listeners := make([]net.Listener, 0, len(netAddrs))
	for _, addr := range netAddrs {
		listener, err := listenFunc(addr.Network(), addr.String())
		if err != nil {
			log.Warnf("Can't listen on %s: %v", addr, err)
			continue
		}
		listeners = append(listeners, listener)
	}

	return listeners, nil
}

// NewIncentiveServer returns a new instance of the IncentiveServer struct.
func NewIncentiveServer(config *Config, db *gorm.DB, rewardMgr *rewardmgr.RewardManager) (*IncentiveServer, error) {
	rpcListeners, err := setupRPCListeners(config.ListenersString, config.RPCKey, config.RPCCert, config.DisableTLS)
	if err != nil {
		return nil, err
	}
	if len(rpcListeners) == 0 {
		return nil, errors.New("incentive RPC: no valid listen address")
	}
	config.Listeners = rpcListeners

	svr := IncentiveServer{
		startTime:       time.Now().Unix(),
		cfg:             *config,
		db:              db,
		rewardMgr:       rewardMgr,
		metaInfoService: service.GetMetaInfoService(),
		poolService:     service.GetPoolService(),
		registryService: service.GetRegistryService(),
		claimLedger:     service.GetClaimLedgerService(),
		eventService:    service.GetEventService(),
		adminService:    service.GetAdminService(),
		metrics:         newServerMetrics(),
		quit:            make(chan int),
	}
	if config.RPCUser != "" && config.RPCPass != "" {
		login := config.RPCUser + ":" + config.RPCPass
		auth := "Basic " + base64.StdEncoding.EncodeToString([]byte(login))
		svr.authsha = sha256.Sum256([]byte(auth))
	}
	if config.RPCLimitUser != "" && config.RPCLimitPass != "" {
		login := config.RPCLimitUser + ":" + config.RPCLimitPass
		auth := "Basic " + base64.StdEncoding.EncodeToString([]byte(login))
		svr.limitauthsha = sha256.Sum256([]byte(auth))
	}
	svr.ntfnMgr = newWsNotificationManager(&svr)
	rewardMgr.Subscribe(svr.handleRewardNotification)

	return &svr, nil
}

// jsonRPCRead handles reading and responding to one RPC request.
func (svr *IncentiveServer) jsonRPCRead(w http.ResponseWriter, r *http.Request, isAdmin bool) {
	if atomic.LoadInt32(&svr.shutdown) != 0 {
		return
	}

	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		errCode := http.StatusBadRequest
		http.Error(w, fmt.Sprintf("%d error reading JSON message: %v",
			errCode, err), errCode)
		return
	}

	var responseID interface{}
	var jsonErr error
	var result interface{}
	var request incentivejson.Request
	if err := json.Unmarshal(body, &request); err != nil {
		jsonErr = incentivejson.NewRPCError(
			incentivejson.ErrRPCParse.Code,
			"Failed to parse request: "+err.Error(),
		)
	}
	if jsonErr == nil {
		if request.ID == nil {
			// Notifications have no reply.
			return
		}
		responseID = request.ID

		// A closed request context aborts long-running handlers.
		closeChan := make(chan struct{}, 1)
		go func() {
			<-r.Context().Done()
			close(closeChan)
		}()

		// Check if the user is limited and set error if method unauthorized.
		if !isAdmin {
			if _, ok := rpcLimited[request.Method]; !ok {
				jsonErr = incentivejson.NewRPCError(
					incentivejson.ErrUnauthorized.Code,
					"limited user not authorized for this method",
				)
			}
		}

		if jsonErr == nil {
			svr.metrics.requestsTotal.WithLabelValues(request.Method).Inc()

			parsedCmd := parseCmd(&request)
			if parsedCmd.err != nil {
				jsonErr = parsedCmd.err
			} else {
				result, jsonErr = svr.standardCmdResult(parsedCmd, closeChan)
			}
		}
	}

	if result == nil && jsonErr == nil {
		jsonErr = incentivejson.ErrRPCInternal
	}

	msg, err := createMarshalledReply(responseID, result, jsonErr)
	if err != nil {
		log.Errorf("Failed to marshal reply: %v", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(msg); err != nil {
		log.Errorf("Failed to write marshalled reply: %v", err)
		return
	}

	// Terminate with newline to maintain compatibility.
	if _, err := w.Write([]byte{'\n'}); err != nil {
		log.Errorf("Failed to append terminating newline to reply: %v", err)
	}
}

// standardCmdResult checks that a parsed command is a standard JSON-RPC
// command and runs the appropriate handler. Handler panics are converted to
// internal RPC errors so one bad request cannot take the server down.
func (svr *IncentiveServer) standardCmdResult(cmd *parsedRPCCmd, closeChan <-chan struct{}) (result interface{}, err error) {
	handler, ok := rpcHandlers[cmd.method]
	if !ok {
		if _, ok := cmd.cmd.(*incentivejson.SubscribeEventsCmd); ok {
			return nil, incentivejson.NewRPCError(
				incentivejson.ErrRPCInvalidParams.Code,
				"subscribeevents is only available on websocket connections",
			)
		}
		return nil, incentivejson.ErrRPCMethodNotFound
	}

	defer func() {
		if r := recover(); r != nil {
			utils.DumpPanicInfo(fmt.Sprintf("rpc handler %v: %v", cmd.method, r))
			result = nil
			err = internalRPCError(fmt.Sprintf("%v", r), "handler panic")
		}
	}()

	return handler(svr, cmd.cmd, closeChan)
}

// Start is used by server.go to start the RPC listeners.
func (svr *IncentiveServer) Start() {
	if atomic.AddInt32(&svr.started, 1) != 1 {
		return
	}

	log.Trace("Starting incentive RPC server...")
	rpcServeMux := http.NewServeMux()
	httpServer := &http.Server{
		Handler: rpcServeMux,

		// Timeout connections which don't complete the initial
		// handshake within the allowed timeframe.
		ReadTimeout: time.Second * rpcAuthTimeoutSeconds,
	}

	// Http endpoint.
	rpcServeMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Connection", "close")
		r.Close = true

		if svr.limitConnections(w, r.RemoteAddr) {
			return
		}

		svr.incrementClients()
		defer svr.decrementClients()
		_, isAdmin, err := svr.checkAuth(r, true)
		if err != nil {
			jsonAuthFail(w)
			return
		}

		svr.jsonRPCRead(w, r, isAdmin)
	})

	// Prometheus endpoint, admin only.
	rpcServeMux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		_, isAdmin, err := svr.checkAuth(r, true)
		if err != nil || !isAdmin {
			jsonAuthFail(w)
			return
		}
		svr.metrics.handler().ServeHTTP(w, r)
	})

	// Websocket endpoint for program notifications.
	rpcServeMux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		authenticated, isAdmin, err := svr.checkAuth(r, false)
		if err != nil || !authenticated {
			jsonAuthFail(w)
			return
		}
		svr.websocketHandler(w, r, isAdmin)
	})

	for _, listener := range svr.cfg.Listeners {
		svr.wg.Add(1)
		go func(listener net.Listener) {
			tlsState := "on"
			if svr.cfg.DisableTLS {
				tlsState = "off"
			}
			log.Infof("Incentive RPC server listening on %s (TLS %s)", listener.Addr(), tlsState)
			httpServer.Serve(listener)
			log.Tracef("Incentive RPC listener done for %s", listener.Addr())
			svr.wg.Done()
		}(listener)
	}

	svr.ntfnMgr.Start()
}

// Stop is used by server.go to stop the RPC listeners.
func (svr *IncentiveServer) Stop() error {
	if atomic.AddInt32(&svr.shutdown, 1) != 1 {
		log.Infof("Incentive RPC server is already in the process of shutting down")
		return nil
	}
	log.Warnf("Incentive RPC server shutting down...")
	for _, listener := range svr.cfg.Listeners {
		err := listener.Close()
		if err != nil {
			log.Errorf("Problem shutting down incentive RPC server: %v", err)
			return err
		}
	}
	svr.ntfnMgr.Shutdown()
	svr.ntfnMgr.WaitForShutdown()
	close(svr.quit)
	svr.wg.Wait()
	log.Infof("Incentive RPC server shutdown complete")
	return nil
}

// limitConnections responds with a 503 service unavailable and returns true
// if adding another client would exceed the maximum allowed RPC clients.
//
// This function is safe for concurrent access.
func (svr *IncentiveServer) limitConnections(w http.ResponseWriter, remoteAddr string) bool {
	if int(atomic.LoadInt32(&svr.numClients)+1) > svr.cfg.RPCMaxClients {
		log.Infof("Max RPC clients exceeded [%d] - disconnecting client %s",
			svr.cfg.RPCMaxClients, remoteAddr)
		http.Error(w, "503 Too busy.  Try again later.",
			http.StatusServiceUnavailable)
		return true
	}
	return false
}

// incrementClients adds one to the number of connected RPC clients. Websocket
// clients have their own limits and are tracked separately.
//
// This function is safe for concurrent access.
func (svr *IncentiveServer) incrementClients() {
	atomic.AddInt32(&svr.numClients, 1)
}

// decrementClients subtracts one from the number of connected RPC clients.
//
// This function is safe for concurrent access.
func (svr *IncentiveServer) decrementClients() {
	atomic.AddInt32(&svr.numClients, -1)
}

// checkAuth checks the HTTP Basic authentication. Limited users are verified
// against the configured credentials with a time-constant compare; admin
// users are verified against the stored admin account.
//
// The first bool return value signifies auth success and the second whether
// the user may change the state of the server (admin) or is limited.
func (svr *IncentiveServer) checkAuth(r *http.Request, require bool) (bool, bool, error) {
	authhdr := r.Header["Authorization"]
	if len(authhdr) <= 0 {
		if require {
			log.Warnf("RPC authentication failure from %s", r.RemoteAddr)
			return false, false, errors.New("auth failure")
		}

		return false, false, nil
	}

	authsha := sha256.Sum256([]byte(authhdr[0]))

	// Check for limited auth first as in environments with limited users,
	// those are probably expected to have a higher volume of calls.
	limitcmp := subtle.ConstantTimeCompare(authsha[:], svr.limitauthsha[:])
	if limitcmp == 1 {
		return true, false, nil
	}

	cmp := subtle.ConstantTimeCompare(authsha[:], svr.authsha[:])
	if cmp == 1 {
		return true, true, nil
	}

	success, err := svr.adminService.LoginAdmin(context.Background(), svr.db, authhdr[0])
	if err != nil || !success {
		log.Warnf("RPC authentication failure from %s", r.RemoteAddr)
		return false, false, errors.New("auth failure")
	}
	return true, true, nil
}

// jsonAuthFail sends a message back to the client if the http auth is
// rejected.
func jsonAuthFail(w http.ResponseWriter) {
	w.Header().Add("WWW-Authenticate", `Basic realm="nova incentive server"`)
	http.Error(w, "401 Unauthorized.", http.StatusUnauthorized)
}

// createMarshalledReply returns a new marshalled JSON-RPC response given the
// passed parameters. It will automatically convert errors that are not of
// the type *incentivejson.RPCError to the appropriate type as needed.
func createMarshalledReply(id, result interface{}, replyErr error) ([]byte, error) {
	var jsonErr *incentivejson.RPCError
	if replyErr != nil {
		if jErr, ok := replyErr.(*incentivejson.RPCError); ok {
			jsonErr = jErr
		} else {
			jsonErr = internalRPCError(replyErr.Error(), "")
		}
	}

	return incentivejson.MarshalResponse(id, result, jsonErr)
}

// parsedRPCCmd represents a JSON-RPC request object that has been parsed into
// a known concrete command along with any error that might have happened
// while parsing it.
type parsedRPCCmd struct {
	id     interface{}
	method string
	cmd    interface{}
	err    *incentivejson.RPCError
}

// parseCmd parses a JSON-RPC request object into a known concrete command.
// The err field of the returned parsedRPCCmd struct will contain an RPC error
// that is suitable for use in replies if the command is invalid in some way
// such as an unregistered command or invalid parameters.
func parseCmd(request *incentivejson.Request) *parsedRPCCmd {
	var parsedCmd parsedRPCCmd
	parsedCmd.id = request.ID
	parsedCmd.method = request.Method

	cmd, err := incentivejson.UnmarshalCmd(request)
	if err != nil {
		// When the error is because the method is not registered, produce a
		// method not found RPC error.
		var unregisteredErr *incentivejson.ErrUnregisteredMethod
		if errors.As(err, &unregisteredErr) {
			parsedCmd.err = incentivejson.ErrRPCMethodNotFound
			return &parsedCmd
		}

		parsedCmd.err = incentivejson.NewRPCError(
			incentivejson.ErrInvalidParams.Code, err.Error())
		return &parsedCmd
	}

	parsedCmd.cmd = cmd
	return &parsedCmd
}

// handleVersion implements the version command.
func handleVersion(s *IncentiveServer, cmd interface{}, closeChan <-chan struct{}) (interface{}, error) {
	result := incentivejson.VersionResult{
		VersionString: fmt.Sprintf("%d.%d.%d", jsonrpcSemverMajor, jsonrpcSemverMinor, jsonrpcSemverPatch),
		Major:         jsonrpcSemverMajor,
		Minor:         jsonrpcSemverMinor,
		Patch:         jsonrpcSemverPatch,
	}
	return result, nil
}
