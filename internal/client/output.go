// Package client is an HTTP client for the Exempla API and the JSON envelope
// its CLI commands print.
package client

import (
	"encoding/json"
	"io"
	"time"
)

// Response is the JSON envelope for every client command. Data and Error are
// mutually exclusive.
type Response struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *Error    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Error is the machine-readable failure in a Response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteSuccess writes a success envelope around data.
func WriteSuccess(w io.Writer, data any) error {
	return json.NewEncoder(w).Encode(Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// WriteError writes a failure envelope.
func WriteError(w io.Writer, code, message string, details any) error {
	return json.NewEncoder(w).Encode(Response{
		Error:     &Error{Code: code, Message: message, Details: details},
		Timestamp: time.Now(),
	})
}
