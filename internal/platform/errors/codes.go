// Package errors provides structured, coded errors shared by the core and
// its collaborators.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Grid errors
	CodeMalformedDate Code = "GRID_MALFORMED_DATE"
	CodeGridDimension Code = "GRID_DIMENSION_MISMATCH"
	CodeInvalidAnchor Code = "GRID_INVALID_ANCHOR"
	CodeInvalidWidth  Code = "GRID_INVALID_WIDTH"

	// Life errors
	CodeNegativeGenerations Code = "LIFE_NEGATIVE_GENERATIONS"

	// Hosting errors
	CodeRepositoryNotFound Code = "REPOSITORY_NOT_FOUND"
	CodePushRejected       Code = "REPOSITORY_PUSH_REJECTED"
	CodeHostingUnavailable Code = "HOSTING_UNAVAILABLE"
)

// Retryable reports whether the failure is transient. The job never retries
// on its own; retryable failures exit with config.ExitTempFail instead.
func (c Code) Retryable() bool {
	switch c {
	case CodeHostingUnavailable, CodePushRejected:
		return true
	default:
		return false
	}
}
