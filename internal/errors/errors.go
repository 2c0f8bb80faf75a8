package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the categories of pipeline failures
type ErrorType string

const (
	ErrorTypeMissingFrameFile       ErrorType = "missing_frame_file"
	ErrorTypeDegenerateThreshold    ErrorType = "degenerate_threshold"
	ErrorTypeEmptyDataset           ErrorType = "empty_dataset"
	ErrorTypeMissingAggregatedTable ErrorType = "missing_aggregated_table"
	ErrorTypeInvalidConfig          ErrorType = "invalid_config"
	ErrorTypeDecode                 ErrorType = "decode"
	ErrorTypeDuplicateFrame         ErrorType = "duplicate_frame"
)

// Sentinels for errors.Is; any PipelineError of the same type matches.
var (
	ErrMissingFrameFile       = &PipelineError{Type: ErrorTypeMissingFrameFile, Message: "frame file not found"}
	ErrDegenerateThreshold    = &PipelineError{Type: ErrorTypeDegenerateThreshold, Message: "intensity histogram has no separable classes"}
	ErrEmptyDataset           = &PipelineError{Type: ErrorTypeEmptyDataset, Message: "no measurements available"}
	ErrMissingAggregatedTable = &PipelineError{Type: ErrorTypeMissingAggregatedTable, Message: "aggregated table not available"}
	ErrInvalidConfig          = &PipelineError{Type: ErrorTypeInvalidConfig, Message: "invalid configuration"}
	ErrDecode                 = &PipelineError{Type: ErrorTypeDecode, Message: "failed to decode frame"}
	ErrDuplicateFrame         = &PipelineError{Type: ErrorTypeDuplicateFrame, Message: "frame already aggregated"}
)

// PipelineError represents a structured pipeline error
type PipelineError struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a PipelineError of the same type
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// New creates a pipeline error of the given type
func New(errorType ErrorType, message string, cause error) *PipelineError {
	return &PipelineError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// NewMissingFrameFileError creates a missing frame error
func NewMissingFrameFileError(message string, cause error) *PipelineError {
	return New(ErrorTypeMissingFrameFile, message, cause)
}

// NewEmptyDatasetError creates an empty dataset error
func NewEmptyDatasetError(message string) *PipelineError {
	return New(ErrorTypeEmptyDataset, message, nil)
}

// NewMissingAggregatedTableError creates a missing table error
func NewMissingAggregatedTableError(message string, cause error) *PipelineError {
	return New(ErrorTypeMissingAggregatedTable, message, cause)
}

// NewInvalidConfigError creates a configuration error
func NewInvalidConfigError(message string) *PipelineError {
	return New(ErrorTypeInvalidConfig, message, nil)
}

// NewDecodeError creates a frame decode error
func NewDecodeError(message string, cause error) *PipelineError {
	return New(ErrorTypeDecode, message, cause)
}

// IsType checks if any error in the chain is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe.Type == errorType
	}
	return false
}
