package studenterrors

import (
	"go-attendance/internal/shared/apperror"
	"net/http"
)

var (
	ErrStudentAlreadyExists = apperror.New(
		apperror.CodeConflict,
		"A student with this studentId already exists",
		http.StatusBadRequest,
	)
	ErrClassRequired = apperror.New(
		apperror.CodeValidation,
		"Class is required (or a section to combine with the grade)",
		http.StatusBadRequest,
	)
	ErrInvalidImportFile = apperror.New(
		apperror.CodeValidation,
		"The roster file must be an .xlsx workbook with at least one sheet",
		http.StatusBadRequest,
	)
	ErrStudentStorage = apperror.New(
		apperror.CodeStorage,
		"Failed to access student records",
		http.StatusBadRequest,
	)
)
