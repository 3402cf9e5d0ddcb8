package student

import (
	"errors"
	"strings"

	"go-attendance/internal/shared/apperror"
	studenterrors "go-attendance/internal/student/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
)

const uniqueStudentIDConstraint = "uq_students_student_id"

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == uniqueStudentIDConstraint {
		return studenterrors.ErrStudentAlreadyExists
	}

	if mongo.IsDuplicateKeyError(err) {
		return studenterrors.ErrStudentAlreadyExists
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "duplicate key value") && strings.Contains(errMsg, uniqueStudentIDConstraint) {
		return studenterrors.ErrStudentAlreadyExists
	}

	return apperror.Storage(err, studenterrors.ErrStudentStorage.Message)
}
