package main

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/novanet-dev/nova-incentive-server/incentivejson"
)

const version = "0.1.0"

// commandUsage displays the usage for a specific command.
func commandUsage() {
	fmt.Fprintf(os.Stderr, "Usage:\n  %s [OPTIONS] <method> [jsonparams]\n\n",
		"incentivectl")
	fmt.Fprintln(os.Stderr, "Params are passed as a single JSON object, e.g.")
	fmt.Fprintln(os.Stderr, `  incentivectl getpoolinfo '{"kind": "bugbounty"}'`)
	fmt.Fprintln(os.Stderr, "Use -l to list the available methods.")
}

// listCommands prints every method the server understands.
func listCommands() {
	for _, method := range incentivejson.RegisteredMethods() {
		fmt.Println(method)
	}
}

// sendPostRequest sends the marshalled JSON-RPC request to the server
// described in the passed config and returns the reply.
func sendPostRequest(marshalledJSON []byte, cfg *config) (*incentivejson.Response, error) {
	// Generate a request to the configured RPC server.
	protocol := "https"
	if cfg.NoTLS {
		protocol = "http"
	}
	url := protocol + "://" + cfg.ServerAddress

	httpRequest, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(marshalledJSON))
	if err != nil {
		return nil, err
	}
	httpRequest.Close = true
	httpRequest.Header.Set("Content-Type", "application/json")

	// Configure basic access authorization.
	httpRequest.SetBasicAuth(cfg.RPCUser, cfg.RPCPassword)

	// Configure TLS if needed.
	var client http.Client
	if !cfg.NoTLS && cfg.ServerCert != "" {
		pem, err := os.ReadFile(cfg.ServerCert)
		if err != nil {
			return nil, err
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("invalid certificate file: %v", cfg.ServerCert)
		}
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool},
		}
	}

	httpResponse, err := client.Do(httpRequest)
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(httpResponse.Body)
	httpResponse.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("error reading json reply: %v", err)
	}

	// Handle unsuccessful HTTP responses.
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		if len(body) == 0 {
			return nil, fmt.Errorf("%v %v", httpResponse.StatusCode,
				http.StatusText(httpResponse.StatusCode))
		}
		return nil, fmt.Errorf("%v", strings.TrimSpace(string(body)))
	}

	var response incentivejson.Response
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func main() {
	cfg, args, err := loadConfig()
	if err != nil {
		os.Exit(1)
	}
	if len(args) < 1 {
		commandUsage()
		os.Exit(1)
	}

	method := args[0]
	if !incentivejson.RegisteredMethod(method) {
		fmt.Fprintf(os.Stderr, "Unrecognized method %q\n", method)
		commandUsage()
		os.Exit(1)
	}

	// Params are passed as one JSON object. The special parameter `-`
	// reads the object from the next line of standard input, which avoids
	// leaking secrets into the shell history.
	var params json.RawMessage
	if len(args) > 1 {
		raw := args[1]
		if raw == "-" {
			scanner := bufio.NewScanner(os.Stdin)
			if !scanner.Scan() {
				fmt.Fprintln(os.Stderr, "Failed to read params from stdin")
				os.Exit(1)
			}
			raw = scanner.Text()
		}
		if !json.Valid([]byte(raw)) {
			fmt.Fprintf(os.Stderr, "Params are not valid JSON: %v\n", raw)
			os.Exit(1)
		}
		params = json.RawMessage(raw)
	}

	request := &incentivejson.Request{
		Jsonrpc: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}
	marshalledJSON, err := json.Marshal(request)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	response, err := sendPostRequest(marshalledJSON, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if response.Error != nil {
		fmt.Fprintf(os.Stderr, "error (code %d): %v\n",
			response.Error.Code, response.Error.Message)
		os.Exit(1)
	}

	// Pretty print the result when it is a JSON object or array, otherwise
	// print the raw string.
	var indented bytes.Buffer
	if err := json.Indent(&indented, response.Result, "", "  "); err == nil {
		fmt.Println(indented.String())
	} else {
		fmt.Println(strings.TrimSpace(string(response.Result)))
	}
}
