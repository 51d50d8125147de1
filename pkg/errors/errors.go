package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryParse         ErrorCategory = "parse"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryProcessing    ErrorCategory = "processing"
	CategoryNetwork       ErrorCategory = "network"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileCorrupted  ErrorCode = "file_corrupted"
	CodeUnsupportedExt ErrorCode = "unsupported_extension"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeMissingColumn ErrorCode = "missing_column"
	CodeEncodingError ErrorCode = "encoding_error"

	// Validation errors
	CodeMissingField ErrorCode = "missing_field"
	CodeInvalidValue ErrorCode = "invalid_value"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Processing errors
	CodeJoinFailed      ErrorCode = "join_failed"
	CodeProcessingError ErrorCode = "processing_error"

	// Network errors
	CodeListenFailed ErrorCode = "listen_failed"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// DashboardError is the base error type for all application errors
type DashboardError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *DashboardError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *DashboardError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *DashboardError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryProcessing, CategoryInternal:
		return 5
	case CategoryNetwork:
		return 6
	default:
		return 1
	}
}

// IsFatal reports whether the error must stop the pipeline before rendering.
// Everything except validation findings is fatal.
func (e *DashboardError) IsFatal() bool {
	return e.Category != CategoryValidation
}

// WithContext adds context information to the error
func (e *DashboardError) WithContext(key string, value interface{}) *DashboardError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *DashboardError) WithSuggestion(suggestion string) *DashboardError {
	e.Suggestion = suggestion
	return e
}

// New creates a new DashboardError
func New(category ErrorCategory, code ErrorCode, message string) *DashboardError {
	return &DashboardError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with DashboardError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *DashboardError {
	if err == nil {
		return nil
	}

	return &DashboardError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

func newOrWrap(err error, category ErrorCategory, code ErrorCode, message string) *DashboardError {
	if err != nil {
		return Wrap(err, category, code, message)
	}
	return New(category, code, message)
}

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *DashboardError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check that the source extract was exported into the data directory"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeFileCorrupted:
		message = fmt.Sprintf("file appears to be corrupted: %s", path)
		suggestion = "re-export the extract and try again"
	case CodeUnsupportedExt:
		message = fmt.Sprintf("unsupported source file type: %s", path)
		suggestion = "use a .csv, .xlsx or .xls extract"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	return newOrWrap(err, CategoryFile, code, message).
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// SourceFilesMissing reports every required source file that is absent.
// It is raised before any table is read.
func SourceFilesMissing(paths []string) *DashboardError {
	listed := make([]string, len(paths))
	copy(listed, paths)

	return New(CategoryFile, CodeFileNotFound,
		fmt.Sprintf("missing required source files: %s", strings.Join(listed, ", "))).
		WithSuggestion("place all four extracts in the data directory or point --data-dir at them").
		WithContext("missing_files", listed)
}

// ParseError creates a parsing-related error
func ParseError(code ErrorCode, file string, line int, column string, value string, err error) *DashboardError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidFormat:
		message = fmt.Sprintf("invalid format in file %s at line %d", file, line)
		suggestion = "check that the file is a well-formed delimited extract"
	case CodeMissingColumn:
		message = fmt.Sprintf("missing required column '%s' in file %s", column, file)
		suggestion = "verify the extract header row contains the required columns"
	case CodeEncodingError:
		message = fmt.Sprintf("encoding error in file %s at line %d", file, line)
		suggestion = "ensure the file is saved in UTF-8 encoding"
	default:
		message = fmt.Sprintf("parse error in file %s at line %d", file, line)
		suggestion = "check the file format and data integrity"
	}

	return newOrWrap(err, CategoryParse, code, message).
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("line", line).
		WithContext("column", column).
		WithContext("value", value)
}

// ValidationError creates a validation-related error
func ValidationError(code ErrorCode, field string, value interface{}, err error) *DashboardError {
	var message string
	var suggestion string

	switch code {
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	case CodeInvalidValue:
		message = fmt.Sprintf("invalid value in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	return newOrWrap(err, CategoryValidation, code, message).
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *DashboardError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	case CodeMissingColumn:
		message = fmt.Sprintf("%s must contain column: '%v'", setting, value)
		suggestion = "the dimension table is unusable without its unit identifier column"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	return newOrWrap(err, CategoryConfiguration, code, message).
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// ProcessingError creates an error raised while building the dataset
func ProcessingError(code ErrorCode, operation string, err error) *DashboardError {
	var message string
	var suggestion string

	switch code {
	case CodeJoinFailed:
		message = fmt.Sprintf("join failed during %s", operation)
		suggestion = "check identifier columns in the source extracts"
	case CodeProcessingError:
		message = fmt.Sprintf("processing error during %s", operation)
		suggestion = "check the source extracts and try again"
	default:
		message = fmt.Sprintf("processing error during %s", operation)
		suggestion = "review the data and configuration"
	}

	return newOrWrap(err, CategoryProcessing, code, message).
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// NetworkError creates a network-related error
func NetworkError(code ErrorCode, endpoint string, err error) *DashboardError {
	var message string
	var suggestion string

	switch code {
	case CodeListenFailed:
		message = fmt.Sprintf("cannot listen on %s", endpoint)
		suggestion = "choose a free address with --addr"
	default:
		message = fmt.Sprintf("network error: %s", endpoint)
		suggestion = "check network configuration and try again"
	}

	return newOrWrap(err, CategoryNetwork, code, message).
		WithSuggestion(suggestion).
		WithContext("endpoint", endpoint)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *DashboardError {
	message := fmt.Sprintf("unexpected error during %s", operation)

	return newOrWrap(err, CategoryInternal, code, message).
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// IsDashboardError checks if an error is a DashboardError
func IsDashboardError(err error) bool {
	_, ok := err.(*DashboardError)
	return ok
}

// AsDashboardError extracts a DashboardError from an error chain
func AsDashboardError(err error) (*DashboardError, bool) {
	var dashErr *DashboardError
	if errors.As(err, &dashErr) {
		return dashErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a DashboardError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *DashboardError {
	if err == nil {
		return nil
	}

	if dashErr, ok := AsDashboardError(err); ok {
		return dashErr
	}

	return Wrap(err, category, code, message)
}
