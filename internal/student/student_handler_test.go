package student_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-attendance/internal/shared/apperror"
	"go-attendance/internal/shared/response"
	"go-attendance/internal/student"
	studenterrors "go-attendance/internal/student/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeService struct {
	createFn func(ctx context.Context, req student.CreateStudentRequest) (student.StudentResponse, error)
	getAllFn func(ctx context.Context) ([]student.StudentResponse, error)
	importFn func(ctx context.Context, file io.Reader) (student.ImportResult, error)
}

func (f *fakeService) Create(ctx context.Context, req student.CreateStudentRequest) (student.StudentResponse, error) {
	return f.createFn(ctx, req)
}
func (f *fakeService) GetAll(ctx context.Context) ([]student.StudentResponse, error) {
	return f.getAllFn(ctx)
}
func (f *fakeService) Exists(ctx context.Context, studentID string) (bool, error) {
	return false, nil
}
func (f *fakeService) Import(ctx context.Context, file io.Reader) (student.ImportResult, error) {
	return f.importFn(ctx, file)
}

func newRouter(svc student.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	apperror.Init()
	r := gin.New()
	student.RegisterRoutes(r.Group("/api"), student.NewHandler(svc))
	return r
}

func TestHandler_Create(t *testing.T) {
	svc := &fakeService{
		createFn: func(ctx context.Context, req student.CreateStudentRequest) (student.StudentResponse, error) {
			if req.StudentID == "STU001" {
				return student.StudentResponse{}, studenterrors.ErrStudentAlreadyExists
			}
			return student.StudentResponse{ID: "s1", StudentID: req.StudentID, Name: req.Name, Grade: req.Grade, Class: req.Class}, nil
		},
	}
	r := newRouter(svc)

	t.Run("success", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/students",
			strings.NewReader(`{"studentId":"STU002","name":"Bob","grade":"11","class":"11-B"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var env response.ApiEnvelope
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.True(t, env.Success)
		assert.Equal(t, "11-B", env.Data.(map[string]any)["class"])
	})

	t.Run("duplicate is a 400 conflict", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/students",
			strings.NewReader(`{"studentId":"STU001","name":"Alice","grade":"10","class":"10-A"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var env response.ApiEnvelope
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.False(t, env.Success)
		assert.Equal(t, apperror.CodeConflict, env.Code)
		assert.Equal(t, studenterrors.ErrStudentAlreadyExists.Message, env.Error)
	})

	t.Run("missing name", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/students", strings.NewReader(`{"grade":"10","class":"10-A"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"error":"Name is required"`)
	})
}

func TestHandler_GetAll(t *testing.T) {
	r := newRouter(&fakeService{
		getAllFn: func(ctx context.Context) ([]student.StudentResponse, error) {
			return []student.StudentResponse{{StudentID: "STU002"}, {StudentID: "STU001"}}, nil
		},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/students", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var env response.ApiEnvelope
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Len(t, env.Data, 2)
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", filename)
	assert.NoError(t, err)
	_, err = part.Write(content)
	assert.NoError(t, err)
	assert.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestHandler_Import(t *testing.T) {
	var received []byte
	r := newRouter(&fakeService{
		importFn: func(ctx context.Context, file io.Reader) (student.ImportResult, error) {
			received, _ = io.ReadAll(file)
			return student.ImportResult{Imported: 3, Errors: []student.ImportRowError{}}, nil
		},
	})

	t.Run("xlsx upload", func(t *testing.T) {
		body, contentType := multipartBody(t, "roster.xlsx", []byte("workbook-bytes"))
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/students/import", body)
		req.Header.Set("Content-Type", contentType)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "workbook-bytes", string(received))
		assert.Contains(t, w.Body.String(), `"imported":3`)
	})

	t.Run("wrong extension", func(t *testing.T) {
		body, contentType := multipartBody(t, "roster.csv", []byte("a,b"))
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/students/import", body)
		req.Header.Set("Content-Type", contentType)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), apperror.CodeValidation)
	})

	t.Run("no file", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/students/import", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "File is required")
	})
}
