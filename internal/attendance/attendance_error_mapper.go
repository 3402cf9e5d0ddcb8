package attendance

import (
	"errors"

	attendanceerrors "go-attendance/internal/attendance/errors"
	"go-attendance/internal/shared/apperror"
)

// Every persistence fault surfaces as a storage error; the (student_id, date)
// key is upserted so a unique violation never reaches the caller.
func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	return apperror.Storage(err, attendanceerrors.ErrAttendanceStorage.Message)
}
