package apperror

const (
	// Client errors
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeConflict        = "CONFLICT"
	CodeStudentNotFound = "STUDENT_NOT_FOUND"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodeProcessing      = "PROCESSING"

	// Persistence errors
	CodeStorage = "STORAGE_ERROR"
)
