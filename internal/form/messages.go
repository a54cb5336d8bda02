package form

import (
	"errors"
	"fmt"

	"dravyalabs/internal/dravya"
)

const (
	MsgInvalidReading = "Please provide valid numeric values for all fields."
	MsgNetwork        = "Network error: backend unreachable. Check that the identification server is running."

	FallbackIdentify = "Failed to identify dravya"
	FallbackSearch   = "Failed to search dravya"
	FallbackResearch = "Failed to research dravya"
)

// FailureKind says why an attempt ended in Error
type FailureKind int

const (
	FailureValidation FailureKind = iota
	FailureServer
	FailureNetwork
	FailureClient
)

func (k FailureKind) String() string {
	switch k {
	case FailureServer:
		return "server"
	case FailureNetwork:
		return "network"
	case FailureClient:
		return "client"
	default:
		return "validation"
	}
}

// MarshalText encodes the kind by name
func (k FailureKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Classify maps a backend call error onto a FailureKind.
// Errors that did not come from the backend client count as client failures.
func Classify(err error) FailureKind {
	var derr *dravya.Error
	if !errors.As(err, &derr) {
		return FailureClient
	}
	switch derr.Kind {
	case dravya.KindServer:
		return FailureServer
	case dravya.KindNetwork:
		return FailureNetwork
	default:
		return FailureClient
	}
}

// FailureMessage turns a backend call error into the text shown to the user.
// fallback stands in for a missing server detail or an empty error message.
func FailureMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}

	switch Classify(err) {
	case FailureServer:
		var derr *dravya.Error
		errors.As(err, &derr)
		detail := derr.Detail
		if detail == "" {
			detail = fallback
		}
		return fmt.Sprintf("Server error (%d): %s", derr.Status, detail)
	case FailureNetwork:
		return MsgNetwork
	default:
		if msg := err.Error(); msg != "" {
			return msg
		}
		return fallback
	}
}
