package apperror

import (
	"errors"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without field",
			err:      New(CodeInvalidGraph, "graph is invalid"),
			expected: "[INVALID_GRAPH] graph is invalid",
		},
		{
			name:     "with field",
			err:      NewWithField(CodeRulePackMissing, "missing version", "metadata.version"),
			expected: "[RULE_PACK_MISSING_FIELD] missing version (field: metadata.version)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(cause, CodeSolverFailure, "solver crashed")

	if !errors.Is(err, cause) {
		t.Fatal("Unwrap should expose the original cause via errors.Is")
	}
}

func TestIsAndCode(t *testing.T) {
	err := New(CodeOpenPathRemains, "cut left a path open")
	if !Is(err, CodeOpenPathRemains) {
		t.Fatal("Is should match the error's own code")
	}
	if Code(err) != CodeOpenPathRemains {
		t.Fatalf("Code() = %v, want %v", Code(err), CodeOpenPathRemains)
	}
	if Code(errors.New("plain")) != CodeInternal {
		t.Fatal("Code() of a non-Error should default to CodeInternal")
	}
}

func TestSeverityHelpers(t *testing.T) {
	w := NewWarning(CodeUnknownMedium, "unrecognized medium")
	if !IsWarning(w) {
		t.Fatal("IsWarning should be true for a warning-severity error")
	}
	c := NewCritical(CodeNumericOverflow, "overflow in weighting")
	if !IsCritical(c) {
		t.Fatal("IsCritical should be true for a critical-severity error")
	}
}

func TestValidationErrors(t *testing.T) {
	ve := NewValidationErrors()
	ve.AddError(CodeDanglingEdge, "edge references missing node")
	ve.AddWarning(CodeUnknownMedium, "medium not in whitelist")

	if !ve.HasErrors() || !ve.HasWarnings() {
		t.Fatal("expected both an error and a warning")
	}
	if ve.IsValid() {
		t.Fatal("IsValid should be false when HasErrors is true")
	}
	if len(ve.ErrorMessages()) != 1 || len(ve.WarningMessages()) != 1 {
		t.Fatal("expected exactly one error message and one warning message")
	}
}

func TestValidationErrorsMerge(t *testing.T) {
	a := NewValidationErrors()
	a.AddError(CodeInvalidGraph, "a")
	b := NewValidationErrors()
	b.AddError(CodeInvalidGraph, "b")

	a.Merge(b)
	if len(a.Errors) != 2 {
		t.Fatalf("Merge: got %d errors, want 2", len(a.Errors))
	}
}
