package errors

// ErrorCode represents a machine-readable error identifier for frontend error handling.
type ErrorCode string

// Validation Errors (Request input validation)
const (
	ErrCodeMissingField    ErrorCode = "missing_field"
	ErrCodeInvalidField    ErrorCode = "invalid_field"
	ErrCodeInvalidForm     ErrorCode = "invalid_form"
	ErrCodePayloadTooLarge ErrorCode = "payload_too_large"
)

// Submission Errors
//
// Anti-spam rejections deliberately collapse into a single generic code so
// responses never reveal which check a submission failed. The detailed
// reason stays in logs and metrics only.
const (
	ErrCodeSubmissionRejected ErrorCode = "submission_rejected"
	ErrCodeRateLimited        ErrorCode = "rate_limited"
)

// Resource/State Errors
const (
	ErrCodeFormNotFound       ErrorCode = "form_not_found"
	ErrCodeSubmissionNotFound ErrorCode = "submission_not_found"
)

// Authorization Errors
const (
	ErrCodeUnauthorized ErrorCode = "unauthorized"
)

// External Service Errors (CAPTCHA provider, webhooks)
const (
	ErrCodeCaptchaProviderError ErrorCode = "captcha_provider_error"
	ErrCodeNetworkError         ErrorCode = "network_error"
)

// Internal/System Errors
const (
	ErrCodeInternalError ErrorCode = "internal_error"
	ErrCodeDatabaseError ErrorCode = "database_error"
	ErrCodeConfigError   ErrorCode = "config_error"
)

// IsRetryable returns whether an error code represents a retryable error.
// Retryable errors are typically transient network/service issues, not validation failures.
func (e ErrorCode) IsRetryable() bool {
	switch e {
	case ErrCodeRateLimited,
		ErrCodeCaptchaProviderError,
		ErrCodeNetworkError:
		return true

	// Validation, authorization, and permanent failures are NOT retryable
	default:
		return false
	}
}

// HTTPStatus returns the appropriate HTTP status code for this error.
func (e ErrorCode) HTTPStatus() int {
	switch e {
	// 400 Bad Request - Client validation errors and anti-spam rejections
	case ErrCodeMissingField,
		ErrCodeInvalidField,
		ErrCodeInvalidForm,
		ErrCodeSubmissionRejected:
		return 400

	// 401 Unauthorized - Missing or invalid admin credentials
	case ErrCodeUnauthorized:
		return 401

	// 404 Not Found - Resource not found
	case ErrCodeFormNotFound,
		ErrCodeSubmissionNotFound:
		return 404

	// 413 Payload Too Large
	case ErrCodePayloadTooLarge:
		return 413

	// 429 Too Many Requests
	case ErrCodeRateLimited:
		return 429

	// 502 Bad Gateway - External service errors
	case ErrCodeCaptchaProviderError,
		ErrCodeNetworkError:
		return 502

	// 500 Internal Server Error - System/internal errors
	default:
		return 500
	}
}
