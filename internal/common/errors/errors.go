// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInputValidationFailed ErrorCode = "INPUT_VALIDATION_FAILED"
	ErrCodeInvalidMatchMode      ErrorCode = "INVALID_MATCH_MODE"
	ErrCodeNoEligibleMentors     ErrorCode = "NO_ELIGIBLE_MENTORS"
	ErrCodeCapacityExceeded      ErrorCode = "CAPACITY_EXCEEDED"

	ErrCodeProfileLoadFailed ErrorCode = "PROFILE_LOAD_FAILED"
	ErrCodeLedgerReadFailed  ErrorCode = "LEDGER_READ_FAILED"
	ErrCodeLedgerWriteFailed ErrorCode = "LEDGER_WRITE_FAILED"

	ErrCodeMentorSearchFailed ErrorCode = "MENTOR_SEARCH_FAILED"
	ErrCodeEventPublishFailed ErrorCode = "EVENT_PUBLISH_FAILED"

	ErrCodeSolverFailed ErrorCode = "SOLVER_FAILED"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key to the error metadata and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// AsStandardError unwraps err to a StandardError if one is in the chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewInputValidationError creates a non-retryable job input error.
func NewInputValidationError(details string) *StandardError {
	return newError(ErrCodeInputValidationFailed, "Job input validation failed", details, false)
}

// NewInvalidMatchModeError creates a non-retryable error for unknown modes or k.
func NewInvalidMatchModeError(err error) *StandardError {
	return newError(ErrCodeInvalidMatchMode, "Invalid matching request", err.Error(), false)
}

// NewNoEligibleMentorsError is thrown when a process requires at least one eligible mentor.
func NewNoEligibleMentorsError(details string) *StandardError {
	return newError(ErrCodeNoEligibleMentors, "No eligible mentors in pool", details, false)
}

// NewCapacityExceededError creates a non-retryable commit rejection.
func NewCapacityExceededError(mentorID string, requested, available int) *StandardError {
	return newError(
		ErrCodeCapacityExceeded,
		"Mentor capacity exceeded",
		fmt.Sprintf("mentorId: %s, requested: %d, available: %d", mentorID, requested, available),
		false,
	).WithMetadata("mentorId", mentorID)
}

// NewProfileLoadFailedError creates a retryable storage error for profile reads.
func NewProfileLoadFailedError(kind string, err error) *StandardError {
	return newError(ErrCodeProfileLoadFailed, "Failed to load profiles", fmt.Sprintf("kind: %s, error: %s", kind, err.Error()), true)
}

// NewLedgerReadFailedError creates a retryable storage error for ledger reads.
func NewLedgerReadFailedError(err error) *StandardError {
	return newError(ErrCodeLedgerReadFailed, "Failed to read capacity ledger", err.Error(), true)
}

// NewLedgerWriteFailedError creates a retryable storage error for ledger commits.
func NewLedgerWriteFailedError(err error) *StandardError {
	return newError(ErrCodeLedgerWriteFailed, "Failed to commit assignments", err.Error(), true)
}

// NewMentorSearchFailedError creates a retryable Elasticsearch error.
func NewMentorSearchFailedError(err error) *StandardError {
	return newError(ErrCodeMentorSearchFailed, "Mentor index query failed", err.Error(), true)
}

// NewEventPublishFailedError creates a retryable event delivery error.
func NewEventPublishFailedError(err error) *StandardError {
	return newError(ErrCodeEventPublishFailed, "Event publication failed", err.Error(), true)
}

// NewSolverFailedError wraps an invalid cost matrix. It is not retryable since
// the same input fails the same way.
func NewSolverFailedError(err error) *StandardError {
	return newError(ErrCodeSolverFailed, "Assignment solver failed", err.Error(), false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInputValidationFailed: "INPUT_VALIDATION_FAILED",
	ErrCodeInvalidMatchMode:      "INVALID_MATCH_MODE",
	ErrCodeNoEligibleMentors:     "NO_ELIGIBLE_MENTORS",
	ErrCodeCapacityExceeded:      "CAPACITY_EXCEEDED",
	ErrCodeProfileLoadFailed:     "PROFILE_LOAD_FAILED",
	ErrCodeLedgerReadFailed:      "LEDGER_READ_FAILED",
	ErrCodeLedgerWriteFailed:     "LEDGER_WRITE_FAILED",
	ErrCodeMentorSearchFailed:    "MENTOR_SEARCH_FAILED",
	ErrCodeEventPublishFailed:    "EVENT_PUBLISH_FAILED",
	ErrCodeSolverFailed:          "SOLVER_FAILED",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeProfileLoadFailed,
		ErrCodeLedgerReadFailed,
		ErrCodeLedgerWriteFailed,
		ErrCodeMentorSearchFailed:
		return 3

	case ErrCodeEventPublishFailed:
		return 2

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "LEDGER") || strings.Contains(codeStr, "PROFILE"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "EVENT"):
		return "EVENTS"
	case strings.Contains(codeStr, "MENTOR") || strings.Contains(codeStr, "CAPACITY") || strings.Contains(codeStr, "SOLVER"):
		return "MATCHING"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
