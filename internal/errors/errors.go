package errors

import (
	"errors"
	"net/http"

	"evently/internal/model"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("User not found")
	// ErrEventNotFound is returned when an event is not found.
	ErrEventNotFound = errors.New("Requested event was not found")
	// ErrInvalidID is returned when a route id is not a well-formed identifier.
	ErrInvalidID = errors.New("Object id is not a valid id")
	// ErrEmailTaken is returned when an email is already registered.
	ErrEmailTaken = errors.New("Email already registered")
	// ErrUsernameTaken is returned when a username is already in use.
	ErrUsernameTaken = errors.New("Username already taken")
	// ErrCredentialMismatch is returned for every failed password login that
	// must not reveal which part was wrong.
	ErrCredentialMismatch = errors.New("Email or password mismatch")
	// ErrNotVerified is returned when a correct password belongs to an unverified account.
	ErrNotVerified = errors.New("Account is not verified. Please check your email for the verification link")
	// ErrMissingVerifyToken is returned when the verification query has no token.
	ErrMissingVerifyToken = errors.New("Missing token on request parameter")
	// ErrVerificationNotFound covers both a wrong secret and an already verified account.
	ErrVerificationNotFound = errors.New("Verification token not found")
	// ErrVerificationExpired is returned when a matching token is past its expiry.
	ErrVerificationExpired = errors.New("Verification mail was expired. Please resend the verification mail")
	// ErrResendNotEligible is returned when a verification resend is not allowed.
	ErrResendNotEligible = errors.New("Verification mail cannot be resent for this email")
	// ErrMissingBearer is returned when the Authorization header is absent or malformed.
	ErrMissingBearer = errors.New("Missing/malformed token")
	// ErrUnauthorized is returned when a bearer token fails verification.
	ErrUnauthorized = errors.New("Unauthorized")
	// ErrForbidden is returned when the requester may not mutate a resource.
	ErrForbidden = errors.New("Forbidden")
	// ErrFileTooLarge is returned when an uploaded banner exceeds the size limit.
	ErrFileTooLarge = errors.New("File too big for 2MB maximum size.")
	// ErrUnsupportedFile is returned when an uploaded banner is not an accepted image.
	ErrUnsupportedFile = errors.New("Only jpg, jpeg and png banners are allowed")
	// ErrUploadsDisabled is returned when no banner storage is configured.
	ErrUploadsDisabled = errors.New("Banner uploads are disabled")
	// ErrDelegatedAuthDisabled is returned when no identity provider is configured.
	ErrDelegatedAuthDisabled = errors.New("Google sign-in is not enabled")
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level input errors.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "Invalid request"
	}
	return e.Fields[0].Message
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Code    string       `json:"code"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Fields     []FieldError
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Success: false,
		Message: e.Message,
		Code:    e.Code,
		Errors:  e.Fields,
	}
}

var modelValidationErrors = []error{
	model.ErrUsernameRequired,
	model.ErrEmailRequired,
	model.ErrInvalidAuthType,
	model.ErrInvalidRole,
	model.ErrPasswordRequired,
	model.ErrEventNameRequired,
	model.ErrEventDescriptionRequired,
	model.ErrEventLocationRequired,
	model.ErrNegativeTicketPrice,
	model.ErrInvalidCategory,
	model.ErrEndBeforeStart,
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    validationErr.Error(),
			Code:       "VALIDATION_ERROR",
			Fields:     validationErr.Fields,
		}
	}
	for _, known := range modelValidationErrors {
		if errors.Is(err, known) {
			return NewHTTPError(http.StatusBadRequest, known.Error(), "VALIDATION_ERROR")
		}
	}

	switch {
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, ErrUserNotFound.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrEventNotFound):
		return NewHTTPError(http.StatusNotFound, ErrEventNotFound.Error(), "EVENT_NOT_FOUND")
	case errors.Is(err, ErrVerificationNotFound):
		return NewHTTPError(http.StatusNotFound, ErrVerificationNotFound.Error(), "TOKEN_NOT_FOUND")
	case errors.Is(err, ErrInvalidID):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidID.Error(), "INVALID_ID")
	case errors.Is(err, ErrEmailTaken):
		return NewHTTPError(http.StatusBadRequest, ErrEmailTaken.Error(), "EMAIL_TAKEN")
	case errors.Is(err, ErrUsernameTaken):
		return NewHTTPError(http.StatusBadRequest, ErrUsernameTaken.Error(), "USERNAME_TAKEN")
	case errors.Is(err, ErrCredentialMismatch):
		return NewHTTPError(http.StatusBadRequest, ErrCredentialMismatch.Error(), "CREDENTIAL_MISMATCH")
	case errors.Is(err, ErrNotVerified):
		return NewHTTPError(http.StatusBadRequest, ErrNotVerified.Error(), "NOT_VERIFIED")
	case errors.Is(err, ErrMissingVerifyToken):
		return NewHTTPError(http.StatusBadRequest, ErrMissingVerifyToken.Error(), "MISSING_TOKEN")
	case errors.Is(err, ErrVerificationExpired):
		return NewHTTPError(http.StatusBadRequest, ErrVerificationExpired.Error(), "TOKEN_EXPIRED")
	case errors.Is(err, ErrResendNotEligible):
		return NewHTTPError(http.StatusBadRequest, ErrResendNotEligible.Error(), "RESEND_NOT_ELIGIBLE")
	case errors.Is(err, ErrMissingBearer):
		return NewHTTPError(http.StatusUnauthorized, ErrMissingBearer.Error(), "MISSING_TOKEN")
	case errors.Is(err, ErrUnauthorized):
		return NewHTTPError(http.StatusUnauthorized, ErrUnauthorized.Error(), "UNAUTHORIZED")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, ErrForbidden.Error(), "FORBIDDEN")
	case errors.Is(err, ErrFileTooLarge):
		return NewHTTPError(http.StatusBadRequest, ErrFileTooLarge.Error(), "FILE_TOO_LARGE")
	case errors.Is(err, ErrUnsupportedFile):
		return NewHTTPError(http.StatusBadRequest, ErrUnsupportedFile.Error(), "UNSUPPORTED_FILE")
	case errors.Is(err, ErrUploadsDisabled):
		return NewHTTPError(http.StatusBadRequest, ErrUploadsDisabled.Error(), "UPLOADS_DISABLED")
	case errors.Is(err, ErrDelegatedAuthDisabled):
		return NewHTTPError(http.StatusNotFound, ErrDelegatedAuthDisabled.Error(), "OAUTH_DISABLED")
	default:
		return NewHTTPError(http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
	}
}
