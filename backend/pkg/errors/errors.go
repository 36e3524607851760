package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeGraph represents graph store errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypePersistence represents snapshot save/load errors
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypeLLM represents LLM collaborator errors
	ErrorTypeLLM ErrorType = "llm"
	// ErrorTypeImport represents batch import errors
	ErrorTypeImport ErrorType = "import"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
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

// Base exposes the embedded BaseError so category checks work on wrapper types
func (e *BaseError) Base() *BaseError {
	return e
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

// Graph Errors

// ErrAlreadyExists is returned when creating a node whose id is already taken
type ErrAlreadyExists struct {
	*BaseError
	ID string
}

func NewAlreadyExists(id string) *ErrAlreadyExists {
	return &ErrAlreadyExists{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("node already exists: %s", id), nil),
		ID:        id,
	}
}

// ErrNotFound is returned when a node, edge endpoint, or snapshot file is missing
type ErrNotFound struct {
	*BaseError
	ID string
}

func NewNotFound(id string) *ErrNotFound {
	return &ErrNotFound{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("not found: %s", id), nil),
		ID:        id,
	}
}

// NewSnapshotNotFound is the persistence flavor of NotFound, for a missing snapshot file
func NewSnapshotNotFound(path string) *ErrNotFound {
	return &ErrNotFound{
		BaseError: NewBaseError(ErrorTypePersistence, fmt.Sprintf("no saved graph at %s", path), nil),
		ID:        path,
	}
}

// ErrInvalidEdge is returned for self-loops and malformed relations
type ErrInvalidEdge struct {
	*BaseError
	Source string
	Target string
}

func NewInvalidEdge(source, target, reason string) *ErrInvalidEdge {
	return &ErrInvalidEdge{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("invalid edge %s -> %s: %s", source, target, reason), nil),
		Source:    source,
		Target:    target,
	}
}

// LLM Collaborator Errors

// ErrExtractionFailure is returned when the entity extraction call fails
type ErrExtractionFailure struct {
	*BaseError
	Model string
}

func NewExtractionFailure(model string, err error) *ErrExtractionFailure {
	return &ErrExtractionFailure{
		BaseError: NewBaseError(ErrorTypeLLM, "entity extraction failed", err),
		Model:     model,
	}
}

// ErrEmbeddingFailure is returned when the embedding call fails.
// Callers route it to the lexical fallback rather than surfacing it.
type ErrEmbeddingFailure struct {
	*BaseError
	Model string
}

func NewEmbeddingFailure(model string, err error) *ErrEmbeddingFailure {
	return &ErrEmbeddingFailure{
		BaseError: NewBaseError(ErrorTypeLLM, "embedding request failed", err),
		Model:     model,
	}
}

// ErrParseFailure is returned when a collaborator's structured output cannot be parsed
type ErrParseFailure struct {
	*BaseError
	Raw string
}

func NewParseFailure(raw string, err error) *ErrParseFailure {
	return &ErrParseFailure{
		BaseError: NewBaseError(ErrorTypeLLM, "failed to parse collaborator output", err),
		Raw:       raw,
	}
}

// Config Errors

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

// IsErrorType checks if an error is of a specific category
func IsErrorType(err error, errType ErrorType) bool {
	var base interface{ Base() *BaseError }
	if errors.As(err, &base) {
		return base.Base().Type == errType
	}
	return false
}

// IsAlreadyExists reports whether err is a duplicate-node error
func IsAlreadyExists(err error) bool {
	var e *ErrAlreadyExists
	return errors.As(err, &e)
}

// IsNotFound reports whether err is a missing node/endpoint/snapshot error
func IsNotFound(err error) bool {
	var e *ErrNotFound
	return errors.As(err, &e)
}

// IsInvalidEdge reports whether err is a rejected edge error
func IsInvalidEdge(err error) bool {
	var e *ErrInvalidEdge
	return errors.As(err, &e)
}

// IsParseFailure reports whether err is a malformed collaborator payload error
func IsParseFailure(err error) bool {
	var e *ErrParseFailure
	return errors.As(err, &e)
}
