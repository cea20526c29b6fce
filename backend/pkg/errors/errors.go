// Package errors defines the typed error taxonomy shared by every
// service. Each error carries a stable machine-readable code and the
// HTTP status it maps to; handlers never invent status codes themselves.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeNotFound covers every missing-entity lookup failure
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeValidation covers rejected input (bad position, bad counts)
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConsistency covers detected cross-store integrity violations
	ErrorTypeConsistency ErrorType = "consistency"
	// ErrorTypeExternal covers failures of external collaborators (OpenAI)
	ErrorTypeExternal ErrorType = "external"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Code      string
	Status    int
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// Base returns the error itself. Domain error structs embed *BaseError,
// so the promoted method lets AsBaseError find the taxonomy fields
// without each struct implementing errors.As support.
func (e *BaseError) Base() *BaseError {
	return e
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, code string, status int, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Code:      code,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// NotFound errors

// ErrCastingNotFound is returned when a relational casting record is missing or soft-deleted
type ErrCastingNotFound struct {
	*BaseError
	CastingID int64
}

func NewCastingNotFound(castingID int64) *ErrCastingNotFound {
	return &ErrCastingNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, "CASTING001", http.StatusNotFound,
			fmt.Sprintf("casting not found: %d", castingID), nil),
		CastingID: castingID,
	}
}

// ErrCastingNodeNotFound is returned when a casting record exists but its
// graph twin is missing. The twin is never created on the fly; a missing
// twin is a detected inconsistency.
type ErrCastingNodeNotFound struct {
	*BaseError
	CastingID int64
}

func NewCastingNodeNotFound(castingID int64) *ErrCastingNodeNotFound {
	return &ErrCastingNodeNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, "CASTING002", http.StatusNotFound,
			fmt.Sprintf("casting node not found: %d", castingID), nil),
		CastingID: castingID,
	}
}

// ErrBlockNotFound is returned when a story block cannot be found
type ErrBlockNotFound struct {
	*BaseError
	BlockID int64
}

func NewBlockNotFound(blockID int64) *ErrBlockNotFound {
	return &ErrBlockNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, "BLOCK001", http.StatusNotFound,
			fmt.Sprintf("story block not found: %d", blockID), nil),
		BlockID: blockID,
	}
}

// ErrPlotNotFound is returned when a story plot cannot be found
type ErrPlotNotFound struct {
	*BaseError
	PlotID int64
}

func NewPlotNotFound(plotID int64) *ErrPlotNotFound {
	return &ErrPlotNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, "PLOT001", http.StatusNotFound,
			fmt.Sprintf("story plot not found: %d", plotID), nil),
		PlotID: plotID,
	}
}

// ErrFolderNotFound is returned when a universe folder cannot be found
type ErrFolderNotFound struct {
	*BaseError
	FolderID int64
}

func NewFolderNotFound(folderID int64) *ErrFolderNotFound {
	return &ErrFolderNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, "FOLDER001", http.StatusNotFound,
			fmt.Sprintf("universe folder not found: %d", folderID), nil),
		FolderID: folderID,
	}
}

// ErrConnectionNotFound is returned when a casting connection cannot be
// found, either on edge lookup by uuid or on the post-create re-read.
type ErrConnectionNotFound struct {
	*BaseError
	UUID string
}

func NewConnectionNotFound(uuid string) *ErrConnectionNotFound {
	return &ErrConnectionNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, "CONN001", http.StatusNotFound,
			fmt.Sprintf("connection not found: %s", uuid), nil),
		UUID: uuid,
	}
}

// Validation errors

// ErrInvalidPosition is returned when a block move targets a slot outside
// [1, childCount+1]. The move performs no mutation.
type ErrInvalidPosition struct {
	*BaseError
	Position int
	Max      int
}

func NewInvalidPosition(position, max int) *ErrInvalidPosition {
	return &ErrInvalidPosition{
		BaseError: NewBaseError(ErrorTypeValidation, "BLOCK002", http.StatusBadRequest,
			fmt.Sprintf("invalid position %d, must be between 1 and %d", position, max), nil),
		Position: position,
		Max:      max,
	}
}

// ErrInvalidMove is returned when a block move would break the forest,
// such as moving a block under its own descendant.
type ErrInvalidMove struct {
	*BaseError
	BlockID int64
}

func NewInvalidMove(blockID int64, reason string) *ErrInvalidMove {
	return &ErrInvalidMove{
		BaseError: NewBaseError(ErrorTypeValidation, "BLOCK003", http.StatusBadRequest,
			fmt.Sprintf("invalid move for block %d: %s", blockID, reason), nil),
		BlockID: blockID,
	}
}

// ErrInvalidConnectionKind is returned when a request names an unknown
// connection kind
type ErrInvalidConnectionKind struct {
	*BaseError
	Kind string
}

func NewInvalidConnectionKind(kind string) *ErrInvalidConnectionKind {
	return &ErrInvalidConnectionKind{
		BaseError: NewBaseError(ErrorTypeValidation, "CONN004", http.StatusBadRequest,
			fmt.Sprintf("unknown connection kind: %q", kind), nil),
		Kind: kind,
	}
}

// Consistency errors

// ErrInvalidDeleteCount is returned when deleting a connection by uuid
// removed more than one edge. This is a data-integrity violation and is
// never silently repaired.
type ErrInvalidDeleteCount struct {
	*BaseError
	UUID  string
	Count int64
}

func NewInvalidDeleteCount(uuid string, count int64) *ErrInvalidDeleteCount {
	return &ErrInvalidDeleteCount{
		BaseError: NewBaseError(ErrorTypeConsistency, "CONN003", http.StatusConflict,
			fmt.Sprintf("deleting connection %s removed %d edges, expected 1", uuid, count), nil),
		UUID:  uuid,
		Count: count,
	}
}

// ErrConnectionNameUpdateFailed is returned when a rename matched no edge
type ErrConnectionNameUpdateFailed struct {
	*BaseError
	UUID string
}

func NewConnectionNameUpdateFailed(uuid string) *ErrConnectionNameUpdateFailed {
	return &ErrConnectionNameUpdateFailed{
		BaseError: NewBaseError(ErrorTypeConsistency, "CONN002", http.StatusConflict,
			fmt.Sprintf("connection name update matched no edge: %s", uuid), nil),
		UUID: uuid,
	}
}

// ErrPartialWriteFailure is returned when the graph write of a dual-write
// operation failed after the relational write committed. The stores are
// visibly inconsistent and the caller must know.
type ErrPartialWriteFailure struct {
	*BaseError
	Operation string
}

func NewPartialWriteFailure(operation string, err error) *ErrPartialWriteFailure {
	return &ErrPartialWriteFailure{
		BaseError: NewBaseError(ErrorTypeConsistency, "SYNC001", http.StatusInternalServerError,
			fmt.Sprintf("partial write: relational store committed but graph write failed during %s", operation), err),
		Operation: operation,
	}
}

// External service errors

// ErrGenerationFailed is returned when image generation fails
type ErrGenerationFailed struct {
	*BaseError
}

func NewGenerationFailed(err error) *ErrGenerationFailed {
	return &ErrGenerationFailed{
		BaseError: NewBaseError(ErrorTypeExternal, "OPENAI001", http.StatusBadGateway,
			"image generation failed", err),
	}
}

// ErrParseFailed is returned when the cast extraction response cannot be parsed
type ErrParseFailed struct {
	*BaseError
}

func NewParseFailed(err error) *ErrParseFailed {
	return &ErrParseFailed{
		BaseError: NewBaseError(ErrorTypeExternal, "OPENAI002", http.StatusBadGateway,
			"cast extraction response could not be parsed", err),
	}
}

// ErrStorageNotConfigured is returned when an upload is requested but no
// object storage backend is wired in
type ErrStorageNotConfigured struct {
	*BaseError
}

func NewStorageNotConfigured() *ErrStorageNotConfigured {
	return &ErrStorageNotConfigured{
		BaseError: NewBaseError(ErrorTypeExternal, "STORAGE001", http.StatusBadGateway,
			"no object storage configured", nil),
	}
}

// Helper functions

// AsBaseError extracts the embedded BaseError from any error in the chain
func AsBaseError(err error) (*BaseError, bool) {
	for err != nil {
		if b, ok := err.(interface{ Base() *BaseError }); ok {
			return b.Base(), true
		}
		err = errors.Unwrap(err)
	}
	return nil, false
}

// IsErrorType checks if an error belongs to a taxonomy category
func IsErrorType(err error, errType ErrorType) bool {
	if base, ok := AsBaseError(err); ok {
		return base.Type == errType
	}
	return false
}

// CodeOf returns the stable code of an error, or "" for untyped errors
func CodeOf(err error) string {
	if base, ok := AsBaseError(err); ok {
		return base.Code
	}
	return ""
}

// StatusOf returns the HTTP status an error maps to, defaulting to 500
func StatusOf(err error) int {
	if base, ok := AsBaseError(err); ok {
		return base.Status
	}
	return http.StatusInternalServerError
}
