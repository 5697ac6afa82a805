package services

import "fmt"

// ValidationError indicates that input failed validation.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, fields map[string]string) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// ConflictError indicates a uniqueness conflict (e.g. duplicate email).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

// NotFoundError indicates the requested resource does not exist.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

func NewNotFoundError(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// UnauthorizedError indicates missing or invalid credentials.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	return e.Message
}

func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}

// ForbiddenError indicates the caller is authenticated but not allowed.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

func NewForbiddenError(message string) *ForbiddenError {
	return &ForbiddenError{Message: message}
}

// QuotaExceededError indicates the user's monthly usage allowance is spent.
type QuotaExceededError struct {
	Used  int
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("monthly usage limit reached (%d/%d)", e.Used, e.Limit)
}

func NewQuotaExceededError(used, limit int) *QuotaExceededError {
	return &QuotaExceededError{Used: used, Limit: limit}
}

// RateLimitError indicates too many requests in a window.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	return e.Message
}

func NewRateLimitError(message string) *RateLimitError {
	return &RateLimitError{Message: message}
}

// ExtractionError indicates content could not be pulled from the source.
type ExtractionError struct {
	Source  string
	Message string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %s", e.Source, e.Message)
}

func NewExtractionError(source, message string) *ExtractionError {
	return &ExtractionError{Source: source, Message: message}
}

// VendorError indicates an upstream AI or payment provider failure.
type VendorError struct {
	Provider string
	Err      error
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *VendorError) Unwrap() error {
	return e.Err
}

func NewVendorError(provider string, err error) *VendorError {
	return &VendorError{Provider: provider, Err: err}
}
