package api

import (
	"errors"
	"fmt"
)

// StatusError is a non-2xx response whose body could not be read as an
// application reply.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// AppError is a reply that arrived fine but carried success=false.
type AppError struct {
	Message string
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return "request failed"
	}
	return e.Message
}

// TransportError wraps failures below HTTP: dial, TLS, timeouts, cut bodies.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusCode reports the HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// IsTransport reports whether err never reached the server.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Message returns the text a user should see for err.
func Message(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Error()
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Err.Error()
	}
	return err.Error()
}
