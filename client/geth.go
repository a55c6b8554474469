package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"

	"github.com/exvulsec/permafrost/model"
)

// gethSource wraps the go-ethereum rpc client. This is the default backend.
type gethSource struct {
	client  *rpc.Client
	timeout time.Duration
}

func NewGethSource(providerURL string, timeout time.Duration) (Source, error) {
	c, err := rpc.Dial(providerURL)
	if err != nil {
		return nil, model.NewConfigError("failed to connect provider url %s: %v", providerURL, err)
	}
	logrus.Infof("connected to provider with rpc client")
	return &gethSource{client: c, timeout: timeout}, nil
}

func (s *gethSource) Name() string {
	return "geth"
}

func (s *gethSource) Call(ctx context.Context, op model.Operation) (json.RawMessage, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var raw json.RawMessage
	if err := s.client.CallContext(callCtx, &raw, op.Method, op.Params...); err != nil {
		return nil, classify(op.Method, err)
	}
	if isNullResult(raw) {
		return nil, &FetchError{Kind: FailNotFound, Method: op.Method, Err: errNullResult}
	}
	return raw, nil
}
