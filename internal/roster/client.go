package roster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a failure envelope returned by the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

// HTTPClient implements API against the service's /api routes.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
}

func NewHTTPClient(baseURL string, hc ...*http.Client) *HTTPClient {
	c := &http.Client{Timeout: 10 * time.Second}
	if len(hc) > 0 && hc[0] != nil {
		c = hc[0]
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), hc: c}
}

func (c *HTTPClient) ListStudents(ctx context.Context) ([]Student, error) {
	var out []Student
	err := c.do(ctx, http.MethodGet, "/api/students", nil, &out)
	return out, err
}

func (c *HTTPClient) CreateStudent(ctx context.Context, in NewStudent) (Student, error) {
	var out Student
	err := c.do(ctx, http.MethodPost, "/api/students", in, &out)
	return out, err
}

func (c *HTTPClient) ListAttendance(ctx context.Context, date string) ([]Record, error) {
	path := "/api/attendance"
	if date != "" {
		path += "?" + url.Values{"date": {date}}.Encode()
	}
	var out []Record
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *HTTPClient) UpsertAttendance(ctx context.Context, studentID, date, status string) (Record, error) {
	body := map[string]string{"studentId": studentID, "date": date, "status": status}
	var out Record
	err := c.do(ctx, http.MethodPost, "/api/attendance", body, &out)
	return out, err
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
	}
	if !env.Success {
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Error}
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}
