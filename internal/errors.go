package internal

import (
	"errors"
	"fmt"
	"time"
)

// ParseError represents a payload that could not be decoded at all
type ParseError struct {
	Source string // "envelope", "claude-jsonl", "copilot"
	Key    string // file path or field name
	Err    error
}

func (e *ParseError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("parse error [%s]: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnknownFormatError is returned for a format tag with no normalizer
type UnknownFormatError struct {
	Format string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown transcript format %q", e.Format)
}

// EmptySessionError is returned when a payload has no user turn
type EmptySessionError struct {
	SessionID string
}

func (e *EmptySessionError) Error() string {
	if e.SessionID == "" {
		return "session has no user turns"
	}
	return fmt.Sprintf("session %s has no user turns", e.SessionID)
}

// StorageTimeoutError means the store stayed busy past the retry ceiling
type StorageTimeoutError struct {
	Op      string
	Elapsed time.Duration
	Err     error
}

func (e *StorageTimeoutError) Error() string {
	return fmt.Sprintf("storage busy: %s gave up after %s: %v", e.Op, e.Elapsed.Round(time.Millisecond), e.Err)
}

func (e *StorageTimeoutError) Unwrap() error {
	return e.Err
}

// SchemaInitError represents a failure creating or verifying the store schema
type SchemaInitError struct {
	Path string
	Err  error
}

func (e *SchemaInitError) Error() string {
	return fmt.Sprintf("schema init error %s: %v", e.Path, e.Err)
}

func (e *SchemaInitError) Unwrap() error {
	return e.Err
}

// ValidationError represents a caller-supplied argument that was rejected
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError is returned when a keyed lookup matches nothing
type NotFoundError struct {
	Kind string // "session", "note"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// ProtocolFramingError means the protocol transport itself failed
type ProtocolFramingError struct {
	Err error
}

func (e *ProtocolFramingError) Error() string {
	return fmt.Sprintf("protocol framing error: %v", e.Err)
}

func (e *ProtocolFramingError) Unwrap() error {
	return e.Err
}

// UnknownMethodError is returned for a method or tool name with no handler
type UnknownMethodError struct {
	Method string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("unknown method %q", e.Method)
}

// SchemaViolationError represents tool arguments that fail their schema
type SchemaViolationError struct {
	Tool string
	Err  error
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Tool, e.Err)
}

func (e *SchemaViolationError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// Validation is a shorthand for building a *ValidationError.
func Validation(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsStorageTimeout reports whether err is or wraps a *StorageTimeoutError.
func IsStorageTimeout(err error) bool {
	var st *StorageTimeoutError
	return errors.As(err, &st)
}
