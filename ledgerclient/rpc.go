package ledgerclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/novanet-dev/nova-incentive-server/incentivejson"
)

// rpcErrCodeInsufficientBalance is the ledger node's error code for a
// transfer exceeding the sender's balance.
const rpcErrCodeInsufficientBalance = -6

const defaultRequestTimeout = 30 * time.Second

// ConnConfig describes the connection to the ledger node's RPC endpoint.
type ConnConfig struct {
	// Host is the "host:port" of the ledger RPC server.
	Host string

	// User and Pass are the basic auth credentials.
	User string
	Pass string

	// DisableTLS connects over plain HTTP. Certificates is the PEM chain to
	// trust when TLS is enabled; empty means the system pool.
	DisableTLS   bool
	Certificates []byte

	// EngineAddress is the account payouts are sent from. The ledger node
	// holds its key; this client only names it in requests.
	EngineAddress string
}

// RPCClient is an HTTP JSON-RPC client for the ledger node. It satisfies the
// Ledger interface.
type RPCClient struct {
	config     *ConnConfig
	httpClient *http.Client
	nextID     uint64
}

// NewRPCClient creates a ledger client for the given connection config. The
// connection is exercised lazily on the first call.
func NewRPCClient(config *ConnConfig) (*RPCClient, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("ledger RPC host is required")
	}

	var transport http.RoundTripper
	if !config.DisableTLS && len(config.Certificates) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(config.Certificates) {
			return nil, fmt.Errorf("invalid ledger RPC certificate")
		}
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool},
		}
	}

	return &RPCClient{
		config: config,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   defaultRequestTimeout,
		},
	}, nil
}

func (c *RPCClient) url() string {
	scheme := "https"
	if c.config.DisableTLS {
		scheme = "http"
	}
	return scheme + "://" + c.config.Host
}

// call performs one JSON-RPC round trip and unmarshals the result into
// result when it is non-nil.
func (c *RPCClient) call(ctx context.Context, method string, params interface{}, result interface{}) error {
	id := atomic.AddUint64(&c.nextID, 1)
	reqBody, err := incentivejson.NewRequest(id, method, params)
	if err != nil {
		return err
	}
	marshalled, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(), bytes.NewReader(marshalled))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.User != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(c.config.User + ":" + c.config.Pass))
		httpReq.Header.Set("Authorization", "Basic "+auth)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return err
	}
	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("ledger RPC returned status %v: %s", httpResp.StatusCode, body)
	}

	var resp struct {
		Result json.RawMessage         `json:"result"`
		Error  *incentivejson.RPCError `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		if resp.Error.Code == rpcErrCodeInsufficientBalance {
			return ErrInsufficientBalance
		}
		return resp.Error
	}
	if result != nil {
		return json.Unmarshal(resp.Result, result)
	}
	return nil
}

func (c *RPCClient) TotalSupply(ctx context.Context) (int64, error) {
	var supply int64
	err := c.call(ctx, "totalsupply", struct{}{}, &supply)
	return supply, err
}

func (c *RPCClient) BalanceOf(ctx context.Context, address string) (int64, error) {
	params := struct {
		Address string `json:"address"`
	}{Address: address}

	var balance int64
	err := c.call(ctx, "balanceof", params, &balance)
	return balance, err
}

func (c *RPCClient) Transfer(ctx context.Context, to string, amount int64) error {
	params := struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Amount int64  `json:"amount"`
	}{From: c.config.EngineAddress, To: to, Amount: amount}

	log.Debugf("Transferring %v to %v", amount, to)
	return c.call(ctx, "transfer", params, nil)
}

func (c *RPCClient) TokenBalanceOf(ctx context.Context, token string, address string) (int64, error) {
	params := struct {
		Token   string `json:"token"`
		Address string `json:"address"`
	}{Token: token, Address: address}

	var balance int64
	err := c.call(ctx, "tokenbalanceof", params, &balance)
	return balance, err
}

func (c *RPCClient) TokenTransfer(ctx context.Context, token string, to string, amount int64) error {
	params := struct {
		Token  string `json:"token"`
		From   string `json:"from"`
		To     string `json:"to"`
		Amount int64  `json:"amount"`
	}{Token: token, From: c.config.EngineAddress, To: to, Amount: amount}

	log.Debugf("Transferring %v of token %v to %v", amount, token, to)
	return c.call(ctx, "tokentransfer", params, nil)
}
