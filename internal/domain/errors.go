package domain

import "fmt"

// DomainError carries a stable code alongside a human-readable message.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewDomainErrorWithCause creates a new DomainError wrapping an underlying error
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeUnsupported      = "UNSUPPORTED"
)

// Validation errors
var (
	ErrInvalidVectorBackend = NewDomainError(ErrCodeValidation, "invalid vector backend")
	ErrInvalidSourceType    = NewDomainError(ErrCodeValidation, "invalid document source type")
	ErrInvalidChunkConfig   = NewDomainError(ErrCodeValidation, "chunk overlap must be non-negative and smaller than chunk size")
	ErrInvalidTemperature   = NewDomainError(ErrCodeValidation, "temperature must be between 0.0 and 2.0")
	ErrInvalidMaxIterations = NewDomainError(ErrCodeValidation, "max iterations must be at least 1")
)

// Not found errors
var (
	ErrKnowledgeBaseNotFound = NewDomainError(ErrCodeNotFound, "knowledge base not found")
	ErrDocumentNotFound      = NewDomainError(ErrCodeNotFound, "document not found")
	ErrAgentNotFound         = NewDomainError(ErrCodeNotFound, "agent config not found")
	ErrTaskNotFound          = NewDomainError(ErrCodeNotFound, "agent task not found")
	ErrNoActiveKnowledgeBase = NewDomainError(ErrCodeNotFound, "no active knowledge base configured")
)

// Conflict errors
var (
	ErrActiveBackendConflict = NewDomainError(ErrCodeAlreadyExists, "an active knowledge base already exists for this vector backend")
	ErrDuplicateName         = NewDomainError(ErrCodeAlreadyExists, "name already in use")
)

// Operation errors
var (
	ErrTaskNotPending    = NewDomainError(ErrCodeInvalidOperation, "agent task is not pending")
	ErrTaskCancelled     = NewDomainError(ErrCodeInvalidOperation, "agent task was cancelled")
	ErrQueryFlagged      = NewDomainError(ErrCodeInvalidOperation, "query rejected by content moderation")
	ErrFilterUnsupported = NewDomainError(ErrCodeUnsupported, "metadata filter not supported by this vector backend")
)
