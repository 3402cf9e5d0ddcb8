package apperror

import "net/http"

// Every handler-level failure is reported with 400; the code carries the cause.
var (
	ErrInvalidInput = New(
		CodeValidation,
		"The provided input is invalid",
		http.StatusBadRequest,
	)

	ErrStorage = New(
		CodeStorage,
		"The record store could not complete the request",
		http.StatusBadRequest,
	)
)

// Storage wraps a persistence fault; errors.Is matches any sentinel with the same message.
func Storage(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:       CodeStorage,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func RequiredField(field string) *AppError {
	return New(CodeValidation, field+" is required", http.StatusBadRequest)
}

func InvalidField(field string) *AppError {
	return New(CodeValidation, field+" is invalid", http.StatusBadRequest)
}
