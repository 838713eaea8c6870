// Package apperror provides a structured way to handle the core's errors
// with specific codes, severity levels, and additional details, matching
// the four error kinds named in the system's error handling design:
// GraphError, PlanError, RulesError and InvariantViolation.
package apperror

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific application error code.
type ErrorCode string

const (
	// GraphError — malformed graph detected at ingest time.
	CodeInvalidGraph     ErrorCode = "INVALID_GRAPH"
	CodeDuplicateNode    ErrorCode = "DUPLICATE_NODE"
	CodeDanglingEdge     ErrorCode = "DANGLING_EDGE"
	CodeSelfLoop         ErrorCode = "SELF_LOOP"
	CodeUnknownMedium    ErrorCode = "UNKNOWN_MEDIUM"
	CodeSourceIsAsset    ErrorCode = "SOURCE_IS_ASSET"
	CodeInvalidComponent ErrorCode = "INVALID_COMPONENT_ID"

	// PlanError — min-cut solver failure.
	CodeSolverFailure  ErrorCode = "SOLVER_FAILURE"
	CodeNumericOverflow ErrorCode = "NUMERIC_OVERFLOW"
	CodeInfeasibleCut  ErrorCode = "INFEASIBLE_CUT"

	// RulesError — rule-pack parse/validation failure.
	CodeRulePackInvalid   ErrorCode = "RULE_PACK_INVALID"
	CodeRulePackMissing   ErrorCode = "RULE_PACK_MISSING_FIELD"
	CodeRulePackCondition ErrorCode = "RULE_PACK_BAD_CONDITION"

	// InvariantViolation — testable-only, not thrown at runtime (spec §7),
	// retained here so test code has a code to assert against.
	CodeOpenPathRemains ErrorCode = "OPEN_PATH_REMAINS"
	CodeNotIdempotent   ErrorCode = "APPLY_NOT_IDEMPOTENT"

	// General
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeNilInput        ErrorCode = "NIL_INPUT"
)

// Severity defines the criticality level of an error.
type Severity int

const (
	// SeverityWarning indicates a non-critical issue that can be ignored or automatically resolved.
	SeverityWarning Severity = iota
	// SeverityError indicates a standard error that requires attention.
	SeverityError
	// SeverityCritical indicates a severe error that might require immediate human intervention.
	SeverityCritical
)

// String returns the string representation of the Severity.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Error is the core's error type: a code, a human-readable message, an
// optional offending field, structured details, an optional cause and a
// severity level. Message text must never embed raw rule-pack content or
// asset identifiers beyond what's already stable/public (component ids,
// branch labels) — the audit layer is the only place redaction happens,
// but the core should not hand it anything to redact in the first place.
type Error struct {
	Code     ErrorCode
	Message  string
	Field    string
	Details  map[string]any
	Cause    error
	Severity Severity
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error, allowing error chain introspection.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new application error with the given code and message.
// The default severity is SeverityError.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// NewWithField creates a new application error with the given code, message, and field.
func NewWithField(code ErrorCode, message, field string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Field:    field,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// NewWarning creates a new application error with SeverityWarning.
func NewWarning(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityWarning,
	}
}

// NewCritical creates a new application error with SeverityCritical.
func NewCritical(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityCritical,
	}
}

// Wrap creates a new application error that wraps an existing error.
func Wrap(cause error, code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Cause:    cause,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// WithDetails adds a key-value pair to the error's details map.
func (e *Error) WithDetails(key string, value any) *Error {
	e.Details[key] = value
	return e
}

// WithField sets the field associated with the error.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithSeverity sets the severity level of the error.
func (e *Error) WithSeverity(s Severity) *Error {
	e.Severity = s
	return e
}

// Is checks if err is an application error with a matching ErrorCode.
func Is(err error, code ErrorCode) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Code extracts the ErrorCode from err, or CodeInternal if err is not an *Error.
func Code(err error) ErrorCode {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsWarning reports whether err is an application error with SeverityWarning.
func IsWarning(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Severity == SeverityWarning
	}
	return false
}

// IsCritical reports whether err is an application error with SeverityCritical.
func IsCritical(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Severity == SeverityCritical
	}
	return false
}

// Predefined errors for common scenarios.
var (
	ErrRulePackInvalid = New(CodeRulePackInvalid, "rule pack failed validation")
	ErrSolverFailure   = New(CodeSolverFailure, "min-cut solver failed")
	ErrNilInput        = New(CodeNilInput, "required input is nil")
)

// ValidationErrors is a collection of application errors and warnings,
// used for aggregating results of multiple validation checks (e.g.
// Graph.Validate, RulePack.Validate).
type ValidationErrors struct {
	Errors   []*Error
	Warnings []*Error
}

// NewValidationErrors creates an empty ValidationErrors collection.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors:   make([]*Error, 0),
		Warnings: make([]*Error, 0),
	}
}

// Add appends err to Errors or Warnings based on its Severity.
func (v *ValidationErrors) Add(err *Error) {
	if err.Severity == SeverityWarning {
		v.Warnings = append(v.Warnings, err)
	} else {
		v.Errors = append(v.Errors, err)
	}
}

// AddError creates and adds a new application error with SeverityError.
func (v *ValidationErrors) AddError(code ErrorCode, message string) {
	v.Errors = append(v.Errors, New(code, message))
}

// AddWarning creates and adds a new application error with SeverityWarning.
func (v *ValidationErrors) AddWarning(code ErrorCode, message string) {
	v.Warnings = append(v.Warnings, NewWarning(code, message))
}

// AddErrorWithField creates and adds a new application error with a specific field.
func (v *ValidationErrors) AddErrorWithField(code ErrorCode, message, field string) {
	v.Errors = append(v.Errors, NewWithField(code, message, field))
}

// HasErrors reports whether the collection contains any non-warning errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// HasWarnings reports whether the collection contains any warnings.
func (v *ValidationErrors) HasWarnings() bool {
	return len(v.Warnings) > 0
}

// IsValid reports whether the collection contains no errors.
func (v *ValidationErrors) IsValid() bool {
	return !v.HasErrors()
}

// Merge appends another collection's errors and warnings onto this one.
func (v *ValidationErrors) Merge(other *ValidationErrors) {
	if other == nil {
		return
	}
	v.Errors = append(v.Errors, other.Errors...)
	v.Warnings = append(v.Warnings, other.Warnings...)
}

// ErrorMessages returns string messages for all collected errors.
func (v *ValidationErrors) ErrorMessages() []string {
	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Error()
	}
	return messages
}

// WarningMessages returns string messages for all collected warnings.
func (v *ValidationErrors) WarningMessages() []string {
	messages := make([]string, len(v.Warnings))
	for i, warn := range v.Warnings {
		messages[i] = warn.Message
	}
	return messages
}
