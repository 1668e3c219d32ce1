// Package dto holds request and response shapes of the HTTP API
package dto

// APIResponse is the envelope used for failures and auxiliary endpoints.
// Lead payloads are returned bare.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty" validate:"omitempty"`
	Error   any    `json:"error,omitempty" validate:"omitempty"`
}

// ErrorDetail represents error details in API responses
type ErrorDetail struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty" validate:"omitempty"`
}

// NewErrorResponse builds a failure envelope
func NewErrorResponse(message, code string, details any) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
		Error: ErrorDetail{
			Code:    code,
			Details: details,
		},
	}
}

// NewSuccessResponse builds a success envelope
func NewSuccessResponse(message string, data any) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}
