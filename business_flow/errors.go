// Package businessflow contains the core business logic and use cases for lead management
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Lead-related errors
	ErrLeadNotFound           = errors.New("lead does not exist")
	ErrLeadEmailAlreadyExists = errors.New("lead already exists")
	ErrCompanyNameRequired    = errors.New("company_name is required when type is company")
	ErrInvalidLeadType        = errors.New("invalid lead type")
	ErrLeadRequestRequired    = errors.New("lead request is required")

	// Export errors
	ErrExportFailed = errors.New("failed to export leads")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsLeadNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound)
}

func IsLeadEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrLeadEmailAlreadyExists)
}

func IsCompanyNameRequired(err error) bool {
	return errors.Is(err, ErrCompanyNameRequired)
}

func IsInvalidLeadType(err error) bool {
	return errors.Is(err, ErrInvalidLeadType)
}

func IsLeadRequestRequired(err error) bool {
	return errors.Is(err, ErrLeadRequestRequired)
}

// IsValidationError reports whether err is a client-side input problem
func IsValidationError(err error) bool {
	return IsCompanyNameRequired(err) || IsInvalidLeadType(err) || IsLeadRequestRequired(err)
}

// IsBusinessError reports whether err carries a BusinessError and returns it
func IsBusinessError(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
