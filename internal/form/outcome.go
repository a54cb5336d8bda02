package form

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"dravyalabs/internal/dravya"
)

// Phase is the tag of an Outcome
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return "idle"
	}
}

// MarshalText encodes the phase by name
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Outcome is the single renderable state of the form.
// Only the constructors below can build one, so a result and an error
// message never coexist and Loading never carries either.
type Outcome struct {
	phase   Phase
	attempt uuid.UUID
	at      time.Time
	request *dravya.IdentifyRequest
	result  *dravya.IdentifyResult
	failure FailureKind
	message string
}

// Idle is the state before the first submission
func Idle() Outcome {
	return Outcome{phase: PhaseIdle}
}

func loading(attempt uuid.UUID) Outcome {
	return Outcome{phase: PhaseLoading, attempt: attempt, at: time.Now()}
}

func succeeded(attempt uuid.UUID, req dravya.IdentifyRequest, res *dravya.IdentifyResult) Outcome {
	return Outcome{phase: PhaseSuccess, attempt: attempt, at: time.Now(), request: &req, result: res}
}

func failed(attempt uuid.UUID, req *dravya.IdentifyRequest, kind FailureKind, message string) Outcome {
	return Outcome{phase: PhaseError, attempt: attempt, at: time.Now(), request: req, failure: kind, message: message}
}

func (o Outcome) Phase() Phase { return o.phase }

// Attempt identifies the submission that produced this outcome (zero for Idle).
func (o Outcome) Attempt() uuid.UUID { return o.attempt }

// At is when the outcome was entered
func (o Outcome) At() time.Time { return o.at }

func (o Outcome) IsLoading() bool { return o.phase == PhaseLoading }

// Result returns the identification for a Success outcome.
func (o Outcome) Result() (*dravya.IdentifyResult, bool) {
	if o.phase != PhaseSuccess {
		return nil, false
	}
	return o.result, true
}

// Message returns the user-facing message for an Error outcome.
func (o Outcome) Message() (string, bool) {
	if o.phase != PhaseError {
		return "", false
	}
	return o.message, true
}

// Failure returns why an Error outcome failed.
func (o Outcome) Failure() (FailureKind, bool) {
	if o.phase != PhaseError {
		return 0, false
	}
	return o.failure, true
}

// Request returns the validated readings the attempt was sent with.
// It is absent for Idle, Loading, and validation failures.
func (o Outcome) Request() (dravya.IdentifyRequest, bool) {
	if o.request == nil {
		return dravya.IdentifyRequest{}, false
	}
	return *o.request, true
}

type outcomeJSON struct {
	State   Phase                   `json:"state"`
	Attempt string                  `json:"attempt,omitempty"`
	At      *time.Time              `json:"at,omitempty"`
	Request *dravya.IdentifyRequest `json:"request,omitempty"`
	Result  *dravya.IdentifyResult  `json:"result,omitempty"`
	Failure *FailureKind            `json:"failure,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// MarshalJSON renders {"state": "...", ...} with only the fields of the active phase.
func (o Outcome) MarshalJSON() ([]byte, error) {
	out := outcomeJSON{State: o.phase}
	if o.phase != PhaseIdle {
		at := o.at
		out.Attempt = o.attempt.String()
		out.At = &at
	}
	out.Request = o.request
	out.Result = o.result
	if o.phase == PhaseError {
		kind := o.failure
		out.Failure = &kind
		out.Error = o.message
	}
	return json.Marshal(out)
}
