// Package model defines shared types for the relay services.
package model

import (
	"context"
	"net/http"
)

// RelayRequest is a single inbound call to be forwarded upstream.
type RelayRequest struct {
	Ctx   context.Context
	Route Route
	Body  []byte // nil for GET routes
}

// RelayResponse is the upstream reply to be written back to the caller.
type RelayResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}
