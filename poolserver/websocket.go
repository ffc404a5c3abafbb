package poolserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/novanet-dev/nova-incentive-server/incentivejson"
	"github.com/novanet-dev/nova-incentive-server/model"
	"github.com/novanet-dev/nova-incentive-server/modectrl"
	"github.com/novanet-dev/nova-incentive-server/rewardmgr"

	"github.com/gorilla/websocket"
)

// ErrClientQuit describes an error where a websocket client is disconnecting
// while a notification send is pending.
var ErrClientQuit = errors.New("client quit")

// websocketSendBufferSize is the number of elements the send channel can
// queue before blocking. Note that this only applies to requests handled
// directly in the websocket client input handler or the async handler since
// notifications have their own queuing mechanism independent of the send
// channel buffer.
const websocketSendBufferSize = 50

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Basic auth already happened on the HTTP request.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// websocketHandler upgrades the HTTP connection and serves the client until
// it disconnects. Clients issue commands over the connection the same way as
// over the regular HTTP endpoint and may register for program notifications
// with subscribeevents.
func (svr *IncentiveServer) websocketHandler(w http.ResponseWriter, r *http.Request, isAdmin bool) {
	if svr.ntfnMgr.NumClients()+1 > svr.cfg.RPCMaxWebsockets {
		log.Infof("Max websocket clients exceeded [%d] - disconnecting client %s",
			svr.cfg.RPCMaxWebsockets, r.RemoteAddr)
		http.Error(w, "503 Too busy.  Try again later.", http.StatusServiceUnavailable)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed websocket upgrade for %s: %v", r.RemoteAddr, err)
		return
	}
	conn.SetReadLimit(1024)

	client := newWebsocketClient(svr, conn, r.RemoteAddr, isAdmin)
	svr.metrics.wsClients.Inc()
	svr.ntfnMgr.AddClient(client)
	client.Start()
	client.WaitForShutdown()
	svr.ntfnMgr.RemoveClient(client)
	svr.metrics.wsClients.Dec()
	log.Tracef("Disconnected websocket client %s", r.RemoteAddr)
}

// handleRewardNotification converts a reward manager notification into its
// wire form and hands it to the websocket notification manager.
func (svr *IncentiveServer) handleRewardNotification(n *rewardmgr.Notification) {
	var method string
	var payload interface{}

	switch n.Type {
	case rewardmgr.NTClaimed:
		outcome, ok := n.Data.(*model.ClaimOutcome)
		if !ok {
			log.Warnf("Claimed notification with unexpected payload type %T", n.Data)
			return
		}
		method = incentivejson.ClaimedNtfnMethod
		payload = &incentivejson.ClaimedNtfn{
			Address:  outcome.Address,
			Category: outcome.Category.String(),
			RoundID:  outcome.RoundID,
			Amount:   outcome.Amount,
		}

	case rewardmgr.NTWhitelistUpdated:
		update, ok := n.Data.(*rewardmgr.WhitelistUpdate)
		if !ok {
			log.Warnf("Whitelist notification with unexpected payload type %T", n.Data)
			return
		}
		method = incentivejson.WhitelistUpdatedNtfnMethod
		payload = &incentivejson.WhitelistUpdatedNtfn{
			Category:   update.Category,
			Registered: update.Registered,
		}

	case rewardmgr.NTModeChanged:
		status, ok := n.Data.(*modectrl.Status)
		if !ok {
			log.Warnf("Mode notification with unexpected payload type %T", n.Data)
			return
		}
		method = incentivejson.ModeChangedNtfnMethod
		payload = &incentivejson.ModeChangedNtfn{
			Live:   status.Live,
			Paused: status.Paused,
		}

	case rewardmgr.NTClaimAmountUpdated:
		update, ok := n.Data.(*rewardmgr.ParamUpdate)
		if !ok {
			log.Warnf("Param notification with unexpected payload type %T", n.Data)
			return
		}
		method = incentivejson.ClaimAmountUpdatedNtfnMethod
		payload = &incentivejson.ClaimAmountUpdatedNtfn{
			Name:   update.Name,
			Amount: update.Amount,
		}

	default:
		log.Warnf("Unhandled reward notification type %v", n.Type)
		return
	}

	marshalledJSON, err := incentivejson.MarshalNtfn(method, payload)
	if err != nil {
		log.Errorf("Failed to marshal %s notification: %v", method, err)
		return
	}
	svr.ntfnMgr.NotifyAll(marshalledJSON)
}

// Notification control messages passed through the notification queue.
type notificationRegisterClient wsClient
type notificationUnregisterClient wsClient
type notificationRegisterEvents wsClient
type notificationBroadcast []byte

// wsNotificationManager is a connection and notification manager used for
// websockets. It keeps track of all connected websocket clients and fans
// program notifications out to them.
type wsNotificationManager struct {
	// server is the RPC server the notification manager is associated with.
	server *IncentiveServer

	// queueNotification queues a notification for handling.
	queueNotification chan interface{}

	// notificationMsgs feeds notificationHandler with notifications and
	// client (un)registration requests from the queue.
	notificationMsgs chan interface{}

	// Access channel for current number of connected clients.
	numClients chan int

	// Shutdown handling
	wg   sync.WaitGroup
	quit chan struct{}
}

// newWsNotificationManager returns a new notification manager ready for use.
// See wsNotificationManager for more details.
func newWsNotificationManager(server *IncentiveServer) *wsNotificationManager {
	return &wsNotificationManager{
		server:            server,
		queueNotification: make(chan interface{}),
		notificationMsgs:  make(chan interface{}),
		numClients:        make(chan int),
		quit:              make(chan struct{}),
	}
}

// Start starts the goroutines required for the manager to queue and process
// websocket client notifications.
func (m *wsNotificationManager) Start() {
	m.wg.Add(2)
	go m.queueHandler()
	go m.notificationHandler()
}

// NumClients returns the number of clients actively being served.
func (m *wsNotificationManager) NumClients() (n int) {
	select {
	case n = <-m.numClients:
	case <-m.quit: // Use default n (0) if server has shut down.
	}
	return
}

// AddClient adds the passed websocket client to the notification manager.
func (m *wsNotificationManager) AddClient(wsc *wsClient) {
	m.queueNotification <- (*notificationRegisterClient)(wsc)
}

// RemoveClient removes the passed websocket client and all notifications
// registered for it.
func (m *wsNotificationManager) RemoveClient(wsc *wsClient) {
	select {
	case m.queueNotification <- (*notificationUnregisterClient)(wsc):
	case <-m.quit:
	}
}

// RegisterEventNtfns requests program notifications to be delivered to the
// passed websocket client.
func (m *wsNotificationManager) RegisterEventNtfns(wsc *wsClient) {
	select {
	case m.queueNotification <- (*notificationRegisterEvents)(wsc):
	case <-m.quit:
	}
}

// NotifyAll queues the passed marshalled notification for delivery to every
// subscribed websocket client.
func (m *wsNotificationManager) NotifyAll(marshalledJSON []byte) {
	select {
	case m.queueNotification <- notificationBroadcast(marshalledJSON):
	case <-m.quit:
	}
}

// WaitForShutdown blocks until all notification manager goroutines have
// finished.
func (m *wsNotificationManager) WaitForShutdown() {
	m.wg.Wait()
}

// Shutdown shuts down the manager, stopping the notification queue and
// notification handler goroutines.
func (m *wsNotificationManager) Shutdown() {
	close(m.quit)
}

// queueHandler maintains a queue of notifications and notification handler
// control messages.
func (m *wsNotificationManager) queueHandler() {
	queueHandler(m.queueNotification, m.notificationMsgs, m.quit)
	m.wg.Done()
}

// queueHandler manages a queue of empty interfaces, reading from in and
// sending the oldest unsent to out. This handler stops when either of the
// in or quit channels are closed, and closes out before returning, without
// waiting to send any variables still remaining in the queue.
func queueHandler(in <-chan interface{}, out chan<- interface{}, quit <-chan struct{}) {
	var q []interface{}
	var dequeue chan<- interface{}
	skipQueue := out
	var next interface{}
out:
	for {
		select {
		case n, ok := <-in:
			if !ok {
				// Sender closed input channel.
				break out
			}

			// Either send to out immediately if skipQueue is
			// non-nil (queue is empty) and reader is ready,
			// or append to the queue and send later.
			select {
			case skipQueue <- n:
			default:
				q = append(q, n)
				dequeue = out
				skipQueue = nil
				next = q[0]
			}

		case dequeue <- next:
			copy(q, q[1:])
			q[len(q)-1] = nil // avoid leak
			q = q[:len(q)-1]
			if len(q) == 0 {
				dequeue = nil
				skipQueue = out
			} else {
				next = q[0]
			}

		case <-quit:
			break out
		}
	}
	close(out)
}

// notificationHandler reads notifications and control messages from the queue
// handler and processes one at a time.
func (m *wsNotificationManager) notificationHandler() {
	// clients is a map of all currently connected websocket clients.
	clients := make(map[chan struct{}]*wsClient)

	// subscribers is the subset of clients registered for program
	// notifications via subscribeevents.
	subscribers := make(map[chan struct{}]*wsClient)

out:
	for {
		select {
		case n, ok := <-m.notificationMsgs:
			if !ok {
				// queueHandler quit.
				break out
			}
			switch nT := n.(type) {
			case *notificationRegisterClient:
				wsc := (*wsClient)(nT)
				log.Infof("New websocket client registered: %v", wsc.addr)
				clients[wsc.quit] = wsc

			case *notificationUnregisterClient:
				wsc := (*wsClient)(nT)
				log.Infof("Websocket client disconnected: %v", wsc.addr)
				delete(clients, wsc.quit)
				delete(subscribers, wsc.quit)

			case *notificationRegisterEvents:
				wsc := (*wsClient)(nT)
				log.Debugf("Websocket client %v subscribed to events", wsc.addr)
				subscribers[wsc.quit] = wsc

			case notificationBroadcast:
				for _, wsc := range subscribers {
					if err := wsc.QueueNotification([]byte(nT)); err == ErrClientQuit {
						delete(subscribers, wsc.quit)
					}
				}

			default:
				log.Warnf("Unhandled notification type")
			}

		case m.numClients <- len(clients):

		case <-m.quit:
			break out
		}
	}

	for _, c := range clients {
		c.Disconnect()
	}
	m.wg.Done()
}

// wsResponse houses a message to send to a connected websocket client as
// well as a channel to reply on when the message is sent.
type wsResponse struct {
	msg      []byte
	doneChan chan bool
}

// wsClient provides an abstraction for handling a websocket client. Requests
// read from the connection are dispatched to the same handlers as the HTTP
// endpoint, while notifications flow out through their own queue so a slow
// request cannot starve them.
type wsClient struct {
	sync.Mutex

	server *IncentiveServer
	conn   *websocket.Conn

	// disconnected indicated whether or not the websocket client is
	// disconnected.
	disconnected bool

	// addr is the remote address of the client.
	addr string

	// isAdmin specifies whether a client may change the state of the server;
	// false means its access is only to the limited set of RPC calls.
	isAdmin bool

	ntfnChan chan []byte
	sendChan chan wsResponse
	quit     chan struct{}
	wg       sync.WaitGroup
}

// newWebsocketClient returns a new websocket client ready to start.
func newWebsocketClient(server *IncentiveServer, conn *websocket.Conn, remoteAddr string, isAdmin bool) *wsClient {
	return &wsClient{
		server:   server,
		conn:     conn,
		addr:     remoteAddr,
		isAdmin:  isAdmin,
		ntfnChan: make(chan []byte, 1),
		sendChan: make(chan wsResponse, websocketSendBufferSize),
		quit:     make(chan struct{}),
	}
}

// Start begins processing input and output messages.
func (c *wsClient) Start() {
	log.Tracef("Starting websocket client %s", c.addr)

	c.wg.Add(3)
	go c.inHandler()
	go c.notificationQueueHandler()
	go c.outHandler()
}

// WaitForShutdown blocks until the websocket client goroutines are stopped
// and the connection is closed.
func (c *wsClient) WaitForShutdown() {
	c.wg.Wait()
}

// Disconnected returns whether or not the websocket client is disconnected.
func (c *wsClient) Disconnected() bool {
	c.Lock()
	isDisconnected := c.disconnected
	c.Unlock()

	return isDisconnected
}

// Disconnect disconnects the websocket client.
func (c *wsClient) Disconnect() {
	c.Lock()
	defer c.Unlock()

	// Nothing to do if already disconnected.
	if c.disconnected {
		return
	}

	log.Tracef("Disconnecting websocket client %s", c.addr)
	close(c.quit)
	c.conn.Close()
	c.disconnected = true
}

// QueueNotification queues the passed notification to be sent to the
// websocket client. If the client is in the process of shutting down, this
// function returns ErrClientQuit.
func (c *wsClient) QueueNotification(marshalledJSON []byte) error {
	// Don't queue the message if disconnected.
	if c.Disconnected() {
		return ErrClientQuit
	}

	c.ntfnChan <- marshalledJSON
	return nil
}

// inHandler handles all incoming messages for the websocket connection. It
// must be run as a goroutine.
func (c *wsClient) inHandler() {
out:
	for {
		select {
		case <-c.quit:
			break out
		default:
		}

		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if _, ok := err.(*websocket.CloseError); !ok {
				log.Tracef("Websocket receive error from %s: %v", c.addr, err)
			}
			break out
		}

		var request incentivejson.Request
		if err := json.Unmarshal(msg, &request); err != nil {
			jsonErr := incentivejson.NewRPCError(
				incentivejson.ErrRPCParse.Code,
				"Failed to parse request: "+err.Error(),
			)
			c.replyWithError(nil, jsonErr)
			continue
		}

		// Notifications have no reply.
		if request.ID == nil {
			continue
		}

		cmd := parseCmd(&request)
		if cmd.err != nil {
			c.replyWithError(cmd.id, cmd.err)
			continue
		}
		log.Debugf("Received command <%s> from %s", cmd.method, c.addr)

		// Check if the client is using limited RPC credentials and
		// error when not authorized to call this RPC.
		if !c.isAdmin {
			if _, ok := rpcLimited[cmd.method]; !ok {
				jsonErr := incentivejson.NewRPCError(
					incentivejson.ErrUnauthorized.Code,
					"limited user not authorized for this method",
				)
				c.replyWithError(cmd.id, jsonErr)
				continue
			}
		}

		c.server.metrics.requestsTotal.WithLabelValues(cmd.method).Inc()
		c.serviceRequest(cmd)
	}

	c.Disconnect()
	c.wg.Done()
	log.Tracef("Websocket client input handler done for %s", c.addr)
}

// serviceRequest services a parsed RPC request by looking up and executing
// the appropriate handler. Commands that only make sense on a websocket
// connection are handled here; everything else is dispatched exactly like the
// HTTP endpoint does. The response is marshalled and sent to the client.
func (c *wsClient) serviceRequest(r *parsedRPCCmd) {
	var result interface{}
	var err error

	switch r.cmd.(type) {
	case *incentivejson.SubscribeEventsCmd:
		c.server.ntfnMgr.RegisterEventNtfns(c)
		result = true

	default:
		result, err = c.server.standardCmdResult(r, c.quit)
	}

	reply, marshalErr := createMarshalledReply(r.id, result, err)
	if marshalErr != nil {
		log.Errorf("Failed to marshal reply for <%s> command: %v",
			r.method, marshalErr)
		return
	}
	c.SendMessage(reply, nil)
}

// replyWithError marshals and sends an error-only reply to the client.
func (c *wsClient) replyWithError(id interface{}, jsonErr error) {
	reply, err := createMarshalledReply(id, nil, jsonErr)
	if err != nil {
		log.Errorf("Failed to marshal error reply: %v", err)
		return
	}
	c.SendMessage(reply, nil)
}

// notificationQueueHandler handles the queuing of outgoing notifications for
// the websocket client. It must be run as a goroutine.
func (c *wsClient) notificationQueueHandler() {
	ntfnSentChan := make(chan bool, 1) // nonblocking sync

	// pendingNtfns is a queue for notifications that are ready to be sent
	// once there are no outstanding notifications currently being sent.
	var pendingNtfns [][]byte
	waiting := false
out:
	for {
		select {
		case msg := <-c.ntfnChan:
			if !waiting {
				c.SendMessage(msg, ntfnSentChan)
				waiting = true
			} else {
				pendingNtfns = append(pendingNtfns, msg)
			}

		case <-ntfnSentChan:
			if len(pendingNtfns) == 0 {
				waiting = false
				continue
			}
			next := pendingNtfns[0]
			pendingNtfns[0] = nil // avoid leak
			pendingNtfns = pendingNtfns[1:]
			c.SendMessage(next, ntfnSentChan)

		case <-c.quit:
			break out
		}
	}

	c.wg.Done()
	log.Tracef("Websocket client notification queue handler done for %s", c.addr)
}

// SendMessage sends the passed json to the websocket client. It is backed
// by a buffered channel, so it will not block until the send channel is full.
func (c *wsClient) SendMessage(marshalledJSON []byte, doneChan chan bool) {
	// Don't send the message if disconnected.
	if c.Disconnected() {
		if doneChan != nil {
			doneChan <- false
		}
		return
	}

	c.sendChan <- wsResponse{msg: marshalledJSON, doneChan: doneChan}
}

// outHandler handles all outgoing messages for the websocket connection. It
// must be run as a goroutine.
func (c *wsClient) outHandler() {
out:
	for {
		select {
		case r := <-c.sendChan:
			err := c.conn.WriteMessage(websocket.TextMessage, r.msg)
			if err != nil {
				c.Disconnect()
				break out
			}
			if r.doneChan != nil {
				r.doneChan <- true
			}

		case <-c.quit:
			break out
		}
	}

	// Drain any wait channels before exiting so nothing is left waiting
	// around to send.
cleanup:
	for {
		select {
		case r := <-c.sendChan:
			if r.doneChan != nil {
				r.doneChan <- false
			}
		default:
			break cleanup
		}
	}
	c.wg.Done()
	log.Tracef("Websocket client output handler done for %s", c.addr)
}
