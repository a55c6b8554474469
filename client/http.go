package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/exvulsec/permafrost/model"
)

var errNullResult = errors.New("node returned null result")

// httpSource posts raw JSON-RPC envelopes over a plain http client. It is
// the fallback backend for providers the geth rpc client chokes on.
type httpSource struct {
	url     string
	client  *http.Client
	timeout time.Duration
	nextID  atomic.Int64
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *responseError  `json:"error"`
}

type responseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *responseError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (e *responseError) ErrorCode() int {
	return e.Code
}

func NewHTTPSource(providerURL string, timeout time.Duration, maxConns int) Source {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxConnsPerHost = maxConns
	logrus.Infof("init http json-rpc client")
	return &httpSource{
		url:     providerURL,
		client:  &http.Client{Transport: transport},
		timeout: timeout,
	}
}

func (s *httpSource) Name() string {
	return "http"
}

func (s *httpSource) Call(ctx context.Context, op model.Operation) (json.RawMessage, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := op.Params
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      s.nextID.Add(1),
		Method:  op.Method,
		Params:  params,
	})
	if err != nil {
		return nil, &FetchError{Kind: FailMalformed, Method: op.Method, Err: err}
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{Kind: FailTransport, Method: op.Method, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, classify(op.Method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &FetchError{Kind: FailRateLimited, Method: op.Method, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Kind: FailTransport, Method: op.Method, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(op.Method, err)
	}
	var parsed rpcResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, &FetchError{Kind: FailMalformed, Method: op.Method, Err: err}
	}
	if parsed.Error != nil {
		return nil, classify(op.Method, parsed.Error)
	}
	if isNullResult(parsed.Result) {
		return nil, &FetchError{Kind: FailNotFound, Method: op.Method, Err: errNullResult}
	}
	return parsed.Result, nil
}
