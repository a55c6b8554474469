package client

import (
	"context"
	"errors"
	"testing"

	"github.com/magiconair/properties/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want FailKind
	}{
		{"deadline", context.DeadlineExceeded, FailTimeout},
		{"rate limited code", &responseError{Code: -32005, Message: "capacity exceeded"}, FailRateLimited},
		{"rate limited text", errors.New("429 Too Many Requests"), FailRateLimited},
		{"invalid params", &responseError{Code: -32602, Message: "invalid params"}, FailMalformed},
		{"other rpc error", &responseError{Code: -32000, Message: "header not found"}, FailTransport},
		{"plain network error", errors.New("connection refused"), FailTransport},
	}
	for _, tc := range cases {
		got := classify("eth_getBlockByNumber", tc.err)
		assert.Equal(t, got.Kind, tc.want, tc.name)
	}
}

func TestRetryable(t *testing.T) {
	retryable := []*FetchError{
		{Kind: FailTimeout},
		{Kind: FailTransport},
		{Kind: FailRateLimited},
	}
	for _, fe := range retryable {
		if !Retryable(fe) {
			t.Fatalf("%s should be retryable", fe.Kind)
		}
	}
	terminal := []*FetchError{
		{Kind: FailMalformed},
		{Kind: FailNotFound},
	}
	for _, fe := range terminal {
		if Retryable(fe) {
			t.Fatalf("%s should be terminal", fe.Kind)
		}
	}
	if Retryable(errors.New("untyped")) {
		t.Fatalf("untyped errors should not be retried")
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, Kind(&FetchError{Kind: FailNotFound}), "not_found")
	assert.Equal(t, Kind(errors.New("untyped")), "unknown")
}
