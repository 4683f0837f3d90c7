package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain failure for callers and the HTTP layer.
type ErrorKind string

const (
	KindNotFound             ErrorKind = "not_found"
	KindInvalidState         ErrorKind = "invalid_state"
	KindValidation           ErrorKind = "validation_error"
	KindNoWorkflowConfigured ErrorKind = "no_workflow_configured"
	KindNoPendingApproval    ErrorKind = "no_pending_approval"
	KindConflict             ErrorKind = "conflict"
)

// DomainError is a typed failure surfaced to approval callers.
type DomainError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Err }

func domainErr(kind ErrorKind, format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the error kind, or "" for non-domain errors.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
