package utils

import (
	"time"
)

// Request-scoped context keys
type contextKey string

// RequestIDKey carries the request id into the flows, which record it in the audit trail
const RequestIDKey contextKey = "request_id"

// Request handling constants
const (
	// DefaultRequestTimeout bounds every lead operation, including its store round-trips
	DefaultRequestTimeout = 30 * time.Second

	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Lead constants
const (
	LeadDeletedMessage = "Lead deleted successfully"

	// LeadExportFilename is the attachment name used by the workbook export
	LeadExportFilename = "leads.xlsx"
)

// SubjectLocalKey is the fiber locals key holding the authenticated token subject
const SubjectLocalKey = "subject"
