package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies caller-facing category failures.
type ErrorKind string

const (
	KindCategoryNotFound       ErrorKind = "CategoryNotFound"
	KindParentCategoryNotFound ErrorKind = "ParentCategoryNotFound"
	KindCircularReference      ErrorKind = "CircularReference"
	KindMaxDepthExceeded       ErrorKind = "MaxDepthExceeded"
	KindDuplicateName          ErrorKind = "DuplicateName"
	KindDuplicateExternalID    ErrorKind = "DuplicateExternalId"
	KindValidation             ErrorKind = "ValidationError"
	KindHasChildren            ErrorKind = "HasChildren"
	KindReferencedByProjects   ErrorKind = "ReferencedByProjects"
	KindReferencedByTemplates  ErrorKind = "ReferencedByTemplates"
	KindInternal               ErrorKind = "Internal"
)

// Sentinels for errors.Is. Only the kind is compared.
var (
	ErrCategoryNotFound       = &CategoryError{Kind: KindCategoryNotFound}
	ErrParentCategoryNotFound = &CategoryError{Kind: KindParentCategoryNotFound}
	ErrCircularReference      = &CategoryError{Kind: KindCircularReference}
	ErrMaxDepthExceeded       = &CategoryError{Kind: KindMaxDepthExceeded}
	ErrDuplicateName          = &CategoryError{Kind: KindDuplicateName}
	ErrDuplicateExternalID    = &CategoryError{Kind: KindDuplicateExternalID}
	ErrValidation             = &CategoryError{Kind: KindValidation}
	ErrHasChildren            = &CategoryError{Kind: KindHasChildren}
	ErrReferencedByProjects   = &CategoryError{Kind: KindReferencedByProjects}
	ErrReferencedByTemplates  = &CategoryError{Kind: KindReferencedByTemplates}
	ErrInternal               = &CategoryError{Kind: KindInternal}
)

type CategoryError struct {
	Kind    ErrorKind              `json:"kind"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

func (e *CategoryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CategoryError) Unwrap() error {
	return e.Cause
}

func (e *CategoryError) Is(target error) bool {
	var other *CategoryError
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// WithDetails attaches structured context returned to API callers.
func (e *CategoryError) WithDetails(details map[string]interface{}) *CategoryError {
	e.Details = details
	return e
}

func newError(kind ErrorKind, format string, args ...interface{}) *CategoryError {
	return &CategoryError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func newInternalError(message string, cause error) *CategoryError {
	return &CategoryError{Kind: KindInternal, Message: message, Cause: cause}
}

func NewValidationError(format string, args ...interface{}) *CategoryError {
	return newError(KindValidation, format, args...)
}

// KindOf reports the kind of err, or KindInternal for errors outside the taxonomy.
func KindOf(err error) ErrorKind {
	var categoryErr *CategoryError
	if errors.As(err, &categoryErr) {
		return categoryErr.Kind
	}
	return KindInternal
}
