// Package client talks to the remote node. A Source performs exactly one
// attempt per Call and reports the outcome honestly; the retry policy is
// owned by the executor.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/exvulsec/permafrost/model"
)

type FailKind int

const (
	FailTimeout FailKind = iota
	FailTransport
	FailRateLimited
	FailMalformed
	FailNotFound
)

func (k FailKind) String() string {
	switch k {
	case FailTimeout:
		return "timeout"
	case FailTransport:
		return "transport"
	case FailRateLimited:
		return "rate_limited"
	case FailMalformed:
		return "malformed"
	case FailNotFound:
		return "not_found"
	}
	return "unknown"
}

// FetchError is the typed failure of one round trip.
type FetchError struct {
	Kind   FailKind
	Method string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s failed with %s: %v", e.Method, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the executor may retry the round trip.
// Malformed and NotFound are terminal, everything the node might recover
// from is not.
func Retryable(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	switch fe.Kind {
	case FailTimeout, FailTransport, FailRateLimited:
		return true
	}
	return false
}

// Kind extracts the failure kind string for the run report.
func Kind(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind.String()
	}
	return "unknown"
}

// Source issues one raw fetch operation against the node. Implementations
// never retry and never batch on their own.
type Source interface {
	Name() string
	Call(ctx context.Context, op model.Operation) (json.RawMessage, error)
}

// rate limited responses come back with differing codes and messages
// depending on the provider, match the common ones.
func looksRateLimited(code int, msg string) bool {
	if code == -32005 || code == 429 {
		return true
	}
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests")
}

func classify(method string, err error) *FetchError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &FetchError{Kind: FailTimeout, Method: method, Err: err}
	case errors.Is(err, context.Canceled):
		return &FetchError{Kind: FailTransport, Method: method, Err: err}
	}
	type rpcError interface {
		Error() string
		ErrorCode() int
	}
	var re rpcError
	if errors.As(err, &re) {
		if looksRateLimited(re.ErrorCode(), re.Error()) {
			return &FetchError{Kind: FailRateLimited, Method: method, Err: err}
		}
		if re.ErrorCode() == -32602 || re.ErrorCode() == -32700 {
			return &FetchError{Kind: FailMalformed, Method: method, Err: err}
		}
		return &FetchError{Kind: FailTransport, Method: method, Err: err}
	}
	var je *json.SyntaxError
	if errors.As(err, &je) {
		return &FetchError{Kind: FailMalformed, Method: method, Err: err}
	}
	if looksRateLimited(0, err.Error()) {
		return &FetchError{Kind: FailRateLimited, Method: method, Err: err}
	}
	return &FetchError{Kind: FailTransport, Method: method, Err: err}
}

func isNullResult(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
