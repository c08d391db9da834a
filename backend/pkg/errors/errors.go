package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeNote represents note lookup and validation errors
	ErrorTypeNote ErrorType = "note"
	// ErrorTypeCategory represents category registry errors
	ErrorTypeCategory ErrorType = "category"
	// ErrorTypeCategorizer represents categorization service errors
	ErrorTypeCategorizer ErrorType = "categorizer"
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeStore represents note store errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeExport represents export and import errors
	ErrorTypeExport ErrorType = "export"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// Kind returns the error category. Typed errors inherit it through embedding.
func (e *BaseError) Kind() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Note Errors

// ErrNoteNotFound is returned when a note id is unknown to the repository
type ErrNoteNotFound struct {
	*BaseError
	ID string
}

func NewNoteNotFound(id string) *ErrNoteNotFound {
	return &ErrNoteNotFound{
		BaseError: NewBaseError(ErrorTypeNote, fmt.Sprintf("note not found: %s", id), nil),
		ID:        id,
	}
}

// ErrInvalidNote is returned when a note fails validation
type ErrInvalidNote struct {
	*BaseError
	Reason string
}

func NewInvalidNote(reason string, err error) *ErrInvalidNote {
	return &ErrInvalidNote{
		BaseError: NewBaseError(ErrorTypeNote, fmt.Sprintf("invalid note: %s", reason), err),
		Reason:    reason,
	}
}

// Category Errors

// ErrCategoryExists is returned when a category name is already taken (case-insensitive)
type ErrCategoryExists struct {
	*BaseError
	Name string
}

func NewCategoryExists(name string) *ErrCategoryExists {
	return &ErrCategoryExists{
		BaseError: NewBaseError(ErrorTypeCategory, fmt.Sprintf("category already exists: %s", name), nil),
		Name:      name,
	}
}

// ErrCategoryNotFound is returned when a category index is out of range
type ErrCategoryNotFound struct {
	*BaseError
	Index int
}

func NewCategoryNotFound(index int) *ErrCategoryNotFound {
	return &ErrCategoryNotFound{
		BaseError: NewBaseError(ErrorTypeCategory, fmt.Sprintf("category not found at index %d", index), nil),
		Index:     index,
	}
}

// ErrInvalidCategory is returned when a category has no name
var ErrInvalidCategory = NewBaseError(ErrorTypeCategory, "category name is required", nil)

// Categorizer Errors

// ErrCategorizerFailed is returned when the categorization service answers badly
type ErrCategorizerFailed struct {
	*BaseError
	URL       string
	Status    int
	Retryable bool
}

func NewCategorizerFailed(url string, status int, err error) *ErrCategorizerFailed {
	msg := fmt.Sprintf("categorization service request failed: %s", url)
	if status > 0 {
		msg = fmt.Sprintf("categorization service returned %d: %s", status, url)
	}
	return &ErrCategorizerFailed{
		BaseError: NewBaseError(ErrorTypeCategorizer, msg, err),
		URL:       url,
		Status:    status,
		Retryable: status == 0 || status >= 500,
	}
}

// ErrCategorizerNoResponse is returned when the LLM produced no usable choice
var ErrCategorizerNoResponse = NewBaseError(ErrorTypeCategorizer, "no response from LLM", nil)

// Graph Errors

// ErrGraphConnectionFailed is returned when Neo4j connection fails
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// ErrGraphQueryFailed is returned when a graph query fails
type ErrGraphQueryFailed struct {
	*BaseError
	Query string
}

func NewGraphQueryFailed(query string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("query failed: %s", query), err),
		Query:     query,
	}
}

// ErrGraphUnavailable is returned when no graph database is configured
var ErrGraphUnavailable = NewBaseError(ErrorTypeGraph, "graph database not configured", nil)

// Store Errors

// ErrStoreFailed is returned when the note store cannot complete an operation
type ErrStoreFailed struct {
	*BaseError
	Op string
}

func NewStoreFailed(op string, err error) *ErrStoreFailed {
	return &ErrStoreFailed{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("store operation failed: %s", op), err),
		Op:        op,
	}
}

// Export Errors

// ErrNoNotesToExport is returned when an export is requested over an empty note set
var ErrNoNotesToExport = NewBaseError(ErrorTypeExport, "No notes to export", nil)

// ErrUnsupportedFormat is returned for unknown export formats
type ErrUnsupportedFormat struct {
	*BaseError
	Format string
}

func NewUnsupportedFormat(format string) *ErrUnsupportedFormat {
	return &ErrUnsupportedFormat{
		BaseError: NewBaseError(ErrorTypeExport, fmt.Sprintf("unsupported export format: %s", format), nil),
		Format:    format,
	}
}

// ErrMalformedImport is returned when an import payload cannot be decoded
type ErrMalformedImport struct {
	*BaseError
}

func NewMalformedImport(err error) *ErrMalformedImport {
	return &ErrMalformedImport{
		BaseError: NewBaseError(ErrorTypeExport, "malformed import payload", err),
	}
}

// Context Errors

// ErrContextCancelled is returned when context is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

// ErrContextTimeout is returned when context times out
type ErrContextTimeout struct {
	*BaseError
	Operation string
	Timeout   time.Duration
}

func NewContextTimeout(operation string, timeout time.Duration) *ErrContextTimeout {
	return &ErrContextTimeout{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context timeout: %s (timeout: %v)", operation, timeout), nil),
		Operation: operation,
		Timeout:   timeout,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

type kinded interface {
	Kind() ErrorType
}

// IsErrorType checks if an error (or anything it wraps) is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind() == errType
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Context errors are not retryable
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	var catErr *ErrCategorizerFailed
	if errors.As(err, &catErr) {
		return catErr.Retryable
	}
	var connErr *ErrGraphConnectionFailed
	if errors.As(err, &connErr) {
		return true
	}
	return IsErrorType(err, ErrorTypeStore)
}

func (e *BaseError) message() string {
	return e.Message
}

// Message returns the human-readable part of an application error, without
// the type prefix or wrapped cause. Other errors return Error().
func Message(err error) string {
	var m interface{ message() string }
	if errors.As(err, &m) {
		return m.message()
	}
	return err.Error()
}
