package dravya

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tags the way a backend call failed.
type Kind int

const (
	// KindClient means the request could not be built or the reply could not be read.
	KindClient Kind = iota
	// KindServer means the backend answered with a non-2xx status.
	KindServer
	// KindNetwork means the request went out but no response came back.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	default:
		return "client"
	}
}

// Error is the single error type returned by Client operations.
// Status and Detail are only set for KindServer.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindServer:
		if e.Detail != "" {
			return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.Status, e.Detail)
		}
		return fmt.Sprintf("%s: backend returned %d", e.Op, e.Status)
	default:
		if e.Err == nil {
			return e.Op + ": " + e.Kind.String() + " failure"
		}
		return e.Op + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func clientError(op string, err error) *Error {
	return &Error{Kind: KindClient, Op: op, Err: err}
}

func networkError(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

func serverError(op string, status int, body []byte) *Error {
	return &Error{Kind: KindServer, Op: op, Status: status, Detail: parseDetail(body)}
}

// parseDetail extracts the "detail" member FastAPI puts in error bodies.
// Non-string details (validation error lists) are returned as compact JSON.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}
	if bytes.Equal(envelope.Detail, []byte("null")) {
		return ""
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, envelope.Detail); err != nil {
		return string(envelope.Detail)
	}
	return buf.String()
}
