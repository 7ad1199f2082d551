package http

import (
	"encoding/json"

	"ballotproxy/internal/shared/events"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CallRequest is a raw call. Args are passed to the implementation untouched.
type CallRequest struct {
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

type ReceiptResponse struct {
	Implementation string            `json:"implementation,omitempty"`
	Return         json.RawMessage   `json:"return,omitempty"`
	Events         []events.Envelope `json:"events,omitempty"`
}

type SetImplementationRequest struct {
	Address string `json:"address"`
}

type TransferOwnershipRequest struct {
	NewOwner string `json:"new_owner"`
}

type OwnerResponse struct {
	Owner string `json:"owner"`
}

type ImplementationResponse struct {
	Implementation string `json:"implementation"`
}

type LayoutVersionResponse struct {
	LayoutVersion int `json:"layout_version"`
}
