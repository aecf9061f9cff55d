// Package errors provides the typed error taxonomy for XUS conversions.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per failure kind.
var (
	// ErrUnrecognizedMagic indicates the header tag is not a known dialect
	ErrUnrecognizedMagic = errors.New("unrecognized magic")
	// ErrTruncatedRecord indicates a record extends past the end of the file
	ErrTruncatedRecord = errors.New("truncated record")
	// ErrInvalidText indicates a record is not valid UTF-16
	ErrInvalidText = errors.New("invalid text")
	// ErrMissingOriginal indicates the reference binary could not be read
	ErrMissingOriginal = errors.New("missing original")
	// ErrMalformedDocument indicates the XML document cannot be encoded
	ErrMalformedDocument = errors.New("malformed document")
	// ErrIOFailure indicates a read, write or seek failure
	ErrIOFailure = errors.New("i/o failure")
)

// Kind classifies a FormatError.
type Kind int

const (
	// UnrecognizedMagic means the 6-byte tag matched no dialect.
	UnrecognizedMagic Kind = iota + 1
	// TruncatedRecord means fewer bytes remain than a field declares.
	TruncatedRecord
	// InvalidText means a record held malformed UTF-16.
	InvalidText
	// MissingOriginal means the sibling binary is absent or too short.
	MissingOriginal
	// MalformedDocument means the XML is not well formed or not encodable.
	MalformedDocument
	// IOFailure means the storage layer failed.
	IOFailure
)

var kindNames = map[Kind]string{
	UnrecognizedMagic: "UnrecognizedMagic",
	TruncatedRecord:   "TruncatedRecord",
	InvalidText:       "InvalidText",
	MissingOriginal:   "MissingOriginal",
	MalformedDocument: "MalformedDocument",
	IOFailure:         "IOFailure",
}

var kindSentinels = map[Kind]error{
	UnrecognizedMagic: ErrUnrecognizedMagic,
	TruncatedRecord:   ErrTruncatedRecord,
	InvalidText:       ErrInvalidText,
	MissingOriginal:   ErrMissingOriginal,
	MalformedDocument: ErrMalformedDocument,
	IOFailure:         ErrIOFailure,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Sentinel returns the sentinel error matching the kind.
func (k Kind) Sentinel() error {
	return kindSentinels[k]
}

// FormatError represents a failed conversion with context
type FormatError struct {
	Kind    Kind   // Failure classification
	Path    string // File involved, if known
	Message string // Human-readable details
	Err     error  // Underlying error, if any
}

func (e *FormatError) Error() string {
	msg := e.Kind.String()
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the underlying cause and the kind's sentinel.
func (e *FormatError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel := e.Kind.Sentinel(); sentinel != nil {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() []error {
	return []error{ErrIOFailure, e.Err}
}

// Helper functions for creating common errors

// New creates a FormatError of the given kind.
func New(kind Kind, message string) *FormatError {
	return &FormatError{Kind: kind, Message: message}
}

// Newf creates a FormatError with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *FormatError {
	return &FormatError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// WithPath attaches a path to a FormatError that does not carry one yet.
// Other errors are returned unchanged.
func WithPath(err error, path string) error {
	var fe *FormatError
	if errors.As(err, &fe) && fe.Path == "" {
		cp := *fe
		cp.Path = path
		return &cp
	}
	return err
}

// Annotate prefixes the message of a FormatError, keeping its kind and path
// reachable at the top of the chain. Other errors are wrapped.
func Annotate(err error, prefix string) error {
	if err == nil {
		return nil
	}
	var fe *FormatError
	if errors.As(err, &fe) {
		cp := *fe
		if cp.Message != "" {
			cp.Message = prefix + ": " + cp.Message
		} else {
			cp.Message = prefix
		}
		return &cp
	}
	return Wrap(err, prefix)
}

// KindOf reports the kind of err, or 0 if err carries none.
func KindOf(err error) Kind {
	var fe *FormatError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, ErrIOFailure) {
		return IOFailure
	}
	return 0
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
