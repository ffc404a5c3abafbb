package incentivejson

import "encoding/json"

// Websocket notification method names pushed to subscribed clients.
const (
	ClaimedNtfnMethod            = "claimed"
	WhitelistUpdatedNtfnMethod   = "whitelistupdated"
	ModeChangedNtfnMethod        = "modechanged"
	ClaimAmountUpdatedNtfnMethod = "claimamountupdated"
)

// ClaimedNtfn is pushed after a successful reward claim.
type ClaimedNtfn struct {
	Address  string `json:"address"`
	Category string `json:"category"`
	RoundID  int64  `json:"round_id,omitempty"`
	Amount   int64  `json:"amount"`
}

// WhitelistUpdatedNtfn is pushed after a registration batch is accepted.
type WhitelistUpdatedNtfn struct {
	Category   string `json:"category"`
	Registered int    `json:"registered"`
}

// ModeChangedNtfn is pushed when the program transitions between modes or
// pause states.
type ModeChangedNtfn struct {
	Live   bool `json:"live"`
	Paused bool `json:"paused"`
}

// ClaimAmountUpdatedNtfn is pushed when an operator changes a reward
// parameter.
type ClaimAmountUpdatedNtfn struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

// MarshalNtfn marshals a notification payload into a JSON-RPC request with a
// nil id, the form pushed over websocket connections.
func MarshalNtfn(method string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req := Request{
		Jsonrpc: "2.0",
		Method:  method,
		Params:  raw,
		ID:      nil,
	}
	return json.Marshal(req)
}
