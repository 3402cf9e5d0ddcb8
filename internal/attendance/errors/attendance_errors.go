package attendanceerrors

import (
	"go-attendance/internal/shared/apperror"
	"net/http"
)

var (
	ErrInvalidStatus = apperror.New(
		apperror.CodeValidation,
		"Status must be one of Present, Absent, Late",
		http.StatusBadRequest,
	)
	ErrInvalidDate = apperror.New(
		apperror.CodeValidation,
		"Date must be a calendar date in YYYY-MM-DD format",
		http.StatusBadRequest,
	)
	ErrStudentNotFound = apperror.New(
		apperror.CodeStudentNotFound,
		"Student not found",
		http.StatusBadRequest,
	)
	ErrAttendanceStorage = apperror.New(
		apperror.CodeStorage,
		"Failed to access attendance records",
		http.StatusBadRequest,
	)
)
