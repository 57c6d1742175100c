package toncenter

import (
	"errors"
	"fmt"
)

// ErrConfirmationTimeout is returned when a transaction does not show up in time
var ErrConfirmationTimeout = errors.New("transaction confirmation timeout")

// ErrMalformedResponse is returned when a field of an API result cannot be parsed
var ErrMalformedResponse = errors.New("malformed toncenter response")

// NetworkError is a transport level failure talking to the API
type NetworkError struct {
	Method string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("toncenter %s: network error: %v", e.Method, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RemoteError is an error reported by the API itself
type RemoteError struct {
	Method  string
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("toncenter %s: remote error %d: %s", e.Method, e.Code, e.Message)
	}
	return fmt.Sprintf("toncenter %s: remote error: %s", e.Method, e.Message)
}

// IsGatewayError reports whether err came from talking to the ledger API
func IsGatewayError(err error) bool {
	var netErr *NetworkError
	var remoteErr *RemoteError
	return errors.As(err, &netErr) || errors.As(err, &remoteErr) || errors.Is(err, ErrConfirmationTimeout) ||
		errors.Is(err, ErrMalformedResponse)
}
