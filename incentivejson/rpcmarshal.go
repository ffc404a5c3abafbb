package incentivejson

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Request is a raw JSON-RPC 2.0 request object as it arrives off the wire.
// Params stay unparsed until the method is matched to a registered command.
type Request struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      interface{}     `json:"id"`
}

// Response is the general form of a JSON-RPC response.
type Response struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
	ID     *interface{}    `json:"id"`
}

// NewRequest marshals params and returns a Request ready for encoding.
func NewRequest(id interface{}, method string, params interface{}) (*Request, error) {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return &Request{
		Jsonrpc: "2.0",
		Method:  method,
		Params:  rawParams,
		ID:      id,
	}, nil
}

// MarshalResponse marshals the passed id, result and error into a JSON-RPC
// response byte slice that is suitable for transmission to a client.
func MarshalResponse(id interface{}, result interface{}, rpcErr *RPCError) ([]byte, error) {
	rawResult, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	resp := Response{
		Result: rawResult,
		Error:  rpcErr,
		ID:     &id,
	}
	return json.Marshal(&resp)
}

var (
	registerLock sync.RWMutex
	methodToCmd  = make(map[string]reflect.Type)
)

// MustRegisterCmd binds method to the concrete command type cmd uses. It
// panics on duplicate registration, so it is meant for package init time.
func MustRegisterCmd(method string, cmd interface{}) {
	registerLock.Lock()
	defer registerLock.Unlock()

	if _, ok := methodToCmd[method]; ok {
		panic(fmt.Sprintf("method %q is already registered", method))
	}

	rt := reflect.TypeOf(cmd)
	if rt.Kind() != reflect.Ptr || rt.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("command for method %q must be a struct pointer", method))
	}
	methodToCmd[method] = rt.Elem()
}

// RegisteredMethod reports whether a command type is bound to method.
func RegisteredMethod(method string) bool {
	registerLock.RLock()
	defer registerLock.RUnlock()
	_, ok := methodToCmd[method]
	return ok
}

// RegisteredMethods returns a sorted list of every registered method.
func RegisteredMethods() []string {
	registerLock.RLock()
	defer registerLock.RUnlock()

	methods := make([]string, 0, len(methodToCmd))
	for method := range methodToCmd {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return methods
}

// ErrUnregisteredMethod is returned by UnmarshalCmd for methods with no
// registered command type.
type ErrUnregisteredMethod struct {
	Method string
}

func (e *ErrUnregisteredMethod) Error() string {
	return "unregistered method " + e.Method
}

// UnmarshalCmd parses a request into the registered concrete command for its
// method. Missing params produce a zero-valued command.
func UnmarshalCmd(r *Request) (interface{}, error) {
	registerLock.RLock()
	rt, ok := methodToCmd[r.Method]
	registerLock.RUnlock()
	if !ok {
		return nil, &ErrUnregisteredMethod{Method: r.Method}
	}

	rv := reflect.New(rt)
	cmd := rv.Interface()
	if len(r.Params) > 0 {
		if err := json.Unmarshal(r.Params, cmd); err != nil {
			return nil, fmt.Errorf("invalid params for method %q: %v", r.Method, err)
		}
	}
	return cmd, nil
}
