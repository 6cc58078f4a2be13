// qbclient/errors.go
package qbclient

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthError means no usable bearer credential exists for the call: the realm
// has no token, or a refresh attempt failed. It is never retryable without
// caller intervention (reauthorization).
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransportError covers failures below HTTP status semantics: DNS, dial,
// TLS, timeout, cancelled context. These are retryable by the caller.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a response QuickBooks actively produced: a non-2xx status, or
// a 2xx whose body could not be decoded. It carries enough context for
// operator diagnosis.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
	Fault      *Fault
}

func (e *APIError) Error() string {
	if e.Fault != nil && len(e.Fault.Errors) > 0 {
		f := e.Fault.Errors[0]
		return fmt.Sprintf("%s: QuickBooks API error %d (code %s): %s", e.Op, e.StatusCode, f.Code, f.Message)
	}
	return fmt.Sprintf("%s: QuickBooks API returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Retryable reports whether re-running the same call can reasonably succeed:
// 5xx classes and optimistic-concurrency conflicts qualify, 4xx input errors
// do not.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusConflict || e.StaleObject()
}

// staleObjectCode is the QuickBooks fault code for an update submitted with
// an outdated SyncToken.
const staleObjectCode = "5010"

// StaleObject reports whether the remote rejected an update because the
// supplied SyncToken no longer matches. Callers must re-read and retry.
func (e *APIError) StaleObject() bool {
	if e.StatusCode == http.StatusConflict {
		return true
	}
	if e.Fault == nil {
		return false
	}
	for _, f := range e.Fault.Errors {
		if f.Code == staleObjectCode {
			return true
		}
	}
	return false
}

// Fault is the structured error block QuickBooks returns on failed calls.
type Fault struct {
	Type   string       `json:"type"`
	Errors []FaultError `json:"Error"`
}

// FaultError is a single entry inside a Fault.
type FaultError struct {
	Message string `json:"Message"`
	Detail  string `json:"Detail"`
	Code    string `json:"code"`
	Element string `json:"element"`
}

// IsRetryable reports whether err is worth retrying as-is: transport
// failures always, API errors per their status class.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Retryable()
	}
	return false
}

// IsStaleObject reports whether err is a stale-SyncToken conflict.
func IsStaleObject(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StaleObject()
}
