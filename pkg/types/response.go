// Package types holds the wire envelopes shared by every HTTP response.
package types

// SuccessEnvelope wraps a successful payload under a data key so clients
// can always unwrap the same shape.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public representation of a failed request. Details is
// populated only for codes that allow it.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError under an error key.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
