package errors

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

// DetectionError describes a problem met while analyzing a document, with
// enough context to log it and decide whether the run can continue
type DetectionError struct {
	Type        ErrorType `json:"type" yaml:"type"`
	Message     string    `json:"message" yaml:"message"`
	Context     string    `json:"context,omitempty" yaml:"context,omitempty"`
	Recoverable bool      `json:"recoverable" yaml:"recoverable"`
	StackTrace  string    `json:"stack_trace,omitempty" yaml:"-"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	FilePath    string    `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	PageNumber  int       `json:"page_number,omitempty" yaml:"page_number,omitempty"`
	cause       error
}

// ErrorType represents the categories of detection problems
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypePagePanic
	ErrorTypePageParseFailure
	ErrorTypeDocumentParseFailure
	ErrorTypeTimeout
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

// Error implements the error interface
func (e *DetectionError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type.String(), e.Message, e.Context)
	}
	return fmt.Sprintf("[%s] %s", e.Type.String(), e.Message)
}

// Unwrap returns the underlying cause, if any
func (e *DetectionError) Unwrap() error {
	return e.cause
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypePagePanic:
		return "PAGE_PANIC"
	case ErrorTypePageParseFailure:
		return "PAGE_PARSE_FAILURE"
	case ErrorTypeDocumentParseFailure:
		return "DOCUMENT_PARSE_FAILURE"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// GetSeverity returns the severity level for a given error type
func (et ErrorType) GetSeverity() ErrorSeverity {
	switch et {
	case ErrorTypePagePanic, ErrorTypePageParseFailure:
		return SeverityWarning
	case ErrorTypeDocumentParseFailure:
		return SeverityError
	case ErrorTypeTimeout:
		return SeverityFatal
	default:
		return SeverityError
	}
}

// IsRecoverable reports whether analysis of the document can go on after
// an error of this type
func (et ErrorType) IsRecoverable() bool {
	switch et {
	case ErrorTypePagePanic, ErrorTypePageParseFailure:
		return true // the page is dropped, siblings continue
	default:
		return false
	}
}

// New creates a DetectionError of the given type
func New(errorType ErrorType, message string) *DetectionError {
	return &DetectionError{
		Type:        errorType,
		Message:     message,
		Recoverable: errorType.IsRecoverable(),
		Timestamp:   time.Now(),
	}
}

// Wrap wraps err as a DetectionError, keeping it reachable via errors.Is/As
func Wrap(errorType ErrorType, err error) *DetectionError {
	return &DetectionError{
		Type:        errorType,
		Message:     err.Error(),
		Recoverable: errorType.IsRecoverable(),
		Timestamp:   time.Now(),
		cause:       err,
	}
}

// FromPanic converts a recovered panic value into a DetectionError
func FromPanic(r interface{}) *DetectionError {
	e := New(ErrorTypePagePanic, fmt.Sprintf("panic: %v", r))
	e.StackTrace = string(debug.Stack())
	if err, ok := r.(error); ok {
		e.cause = err
	}
	return e
}

// WithContext adds context to an existing DetectionError
func (e *DetectionError) WithContext(context string) *DetectionError {
	e.Context = context
	return e
}

// WithFile adds file path information
func (e *DetectionError) WithFile(filePath string) *DetectionError {
	e.FilePath = filePath
	return e
}

// WithPage adds page number information
func (e *DetectionError) WithPage(pageNumber int) *DetectionError {
	e.PageNumber = pageNumber
	return e
}

// GetSeverity returns the severity of this specific error
func (e *DetectionError) GetSeverity() ErrorSeverity {
	return e.Type.GetSeverity()
}

// ErrorCollection gathers errors from concurrent document workers
type ErrorCollection struct {
	mu       sync.Mutex
	Errors   []*DetectionError `json:"errors"`
	Warnings []*DetectionError `json:"warnings"`
}

// NewErrorCollection creates an empty collection
func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{
		Errors:   make([]*DetectionError, 0),
		Warnings: make([]*DetectionError, 0),
	}
}

// Add files err under errors or warnings based on its severity
func (ec *ErrorCollection) Add(err *DetectionError) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	switch err.GetSeverity() {
	case SeverityInfo, SeverityWarning:
		ec.Warnings = append(ec.Warnings, err)
	default:
		ec.Errors = append(ec.Errors, err)
	}
}

// Count returns the number of errors and warnings
func (ec *ErrorCollection) Count() (errors, warnings int) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return len(ec.Errors), len(ec.Warnings)
}

// Summary returns a one-line description of the collection
func (ec *ErrorCollection) Summary() string {
	errorCount, warningCount := ec.Count()
	if errorCount == 0 && warningCount == 0 {
		return "No errors or warnings"
	}
	return fmt.Sprintf("Found %d error(s) and %d warning(s)", errorCount, warningCount)
}
