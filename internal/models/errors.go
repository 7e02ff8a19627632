package models

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes for the workflow engine's domain errors. These are business
// failures, distinguishable from each other and from infrastructure failures
// (INTERNAL_ERROR), and are never swallowed on the way to the caller.
const (
	CodeNotFound              = "NOT_FOUND"
	CodeValidation            = "VALIDATION_ERROR"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeInternal              = "INTERNAL_ERROR"
	CodeInvalidState          = "INVALID_STATE"
	CodeNoApproversConfigured = "NO_APPROVERS_CONFIGURED"
	CodeNoPendingStep         = "NO_PENDING_STEP"
	CodeNotCurrentStep        = "NOT_CURRENT_STEP"
	CodeNotAuthorized         = "NOT_AUTHORIZED"
	CodeApproverNotInChain    = "APPROVER_NOT_IN_CHAIN"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// NewInvalidStateError reports a lifecycle transition attempted from a status
// that does not permit it.
func NewInvalidStateError(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidState,
		Message: message,
	}
}

// NewNoApproversConfiguredError reports a submission with an empty active
// approver roster; the chain cannot be materialized.
func NewNoApproversConfiguredError() *AppError {
	return &AppError{
		Code:    CodeNoApproversConfigured,
		Message: "No active approvers configured",
	}
}

// NewNoPendingStepError reports an approval for which the approver holds no
// pending step in the request's chain.
func NewNoPendingStepError() *AppError {
	return &AppError{
		Code:    CodeNoPendingStep,
		Message: "No pending approval step found for this approver",
	}
}

// NewNotCurrentStepError reports an approval attempted ahead of the current
// step: a lower-order pending step always blocks a higher one.
func NewNotCurrentStepError() *AppError {
	return &AppError{
		Code:    CodeNotCurrentStep,
		Message: "This is not the current approval step",
	}
}

// NewNotAuthorizedError reports an acting identity that is neither the
// approver nor one of their active delegates.
func NewNotAuthorizedError() *AppError {
	return &AppError{
		Code:    CodeNotAuthorized,
		Message: "Not authorized to act on behalf of this approver",
	}
}

// NewApproverNotInChainError reports a kick-back from an approver with no
// step in the request's materialized chain.
func NewApproverNotInChainError() *AppError {
	return &AppError{
		Code:    CodeApproverNotInChain,
		Message: "Approver not found in this request's approval chain",
	}
}

// statusByCode maps domain error codes to client-facing HTTP statuses.
var statusByCode = map[string]int{
	CodeNotFound:              fiber.StatusNotFound,
	CodeValidation:            fiber.StatusBadRequest,
	CodeUnauthorized:          fiber.StatusUnauthorized,
	CodeInternal:              fiber.StatusInternalServerError,
	CodeInvalidState:          fiber.StatusConflict,
	CodeNoApproversConfigured: fiber.StatusConflict,
	CodeNoPendingStep:         fiber.StatusConflict,
	CodeNotCurrentStep:        fiber.StatusConflict,
	CodeNotAuthorized:         fiber.StatusForbidden,
	CodeApproverNotInChain:    fiber.StatusConflict,
}

// StatusForError returns the HTTP status for an error, defaulting to 500 for
// anything that is not a known AppError code.
func StatusForError(err error) int {
	if appErr, ok := err.(*AppError); ok {
		if status, ok := statusByCode[appErr.Code]; ok {
			return status
		}
	}
	return fiber.StatusInternalServerError
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	if appErr, ok := err.(*AppError); ok {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}

// RespondWithDomainError writes the error using its mapped HTTP status.
func RespondWithDomainError(c *fiber.Ctx, err error) error {
	return RespondWithError(c, StatusForError(err), err)
}
