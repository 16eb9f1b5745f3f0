package types

// SuccessEnvelope wraps successful API payloads.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error body.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps failed API responses.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
