// Package testutil provides testing helpers for the build pipeline and the
// devtools HTTP handlers.
// This package is designed to be import-cycle safe and can be used from any package.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/automatique/autoapi/internal/fixture"
)

// RequestBuilder helps construct test HTTP requests with fluent API.
type RequestBuilder struct {
	method  string
	path    string
	body    []byte
	headers map[string]string
	query   url.Values
}

// NewRequest creates a new request builder.
func NewRequest() *RequestBuilder {
	return &RequestBuilder{
		method:  "GET",
		path:    "/",
		headers: make(map[string]string),
		query:   make(url.Values),
	}
}

// GET sets the HTTP method to GET.
func (b *RequestBuilder) GET(path string) *RequestBuilder {
	b.method = "GET"
	b.path = path
	return b
}

// POST sets the HTTP method to POST.
func (b *RequestBuilder) POST(path string) *RequestBuilder {
	b.method = "POST"
	b.path = path
	return b
}

// Method sets an arbitrary HTTP method.
func (b *RequestBuilder) Method(method, path string) *RequestBuilder {
	b.method = method
	b.path = path
	return b
}

// WithJSON sets the request body as JSON.
func (b *RequestBuilder) WithJSON(v any) *RequestBuilder {
	data, _ := json.Marshal(v)
	b.body = data
	b.headers["Content-Type"] = "application/json"
	return b
}

// WithHeader adds a header to the request.
func (b *RequestBuilder) WithHeader(key, value string) *RequestBuilder {
	b.headers[key] = value
	return b
}

// WithQuery adds a query parameter.
func (b *RequestBuilder) WithQuery(key, value string) *RequestBuilder {
	b.query.Add(key, value)
	return b
}

// Build creates the HTTP request and ResponseRecorder.
func (b *RequestBuilder) Build() (*http.Request, *httptest.ResponseRecorder) {
	target := b.path
	if len(b.query) > 0 {
		target += "?" + b.query.Encode()
	}
	req := httptest.NewRequest(b.method, target, bytes.NewReader(b.body))
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}
	return req, httptest.NewRecorder()
}

// AssertStatus checks that the response has the expected status code.
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int) {
	t.Helper()
	if w.Code != expectedStatus {
		t.Errorf("expected status %d, got %d\nBody: %s", expectedStatus, w.Code, w.Body.String())
	}
}

// AssertHeader checks that a response header has the expected value.
func AssertHeader(t *testing.T, w *httptest.ResponseRecorder, key, expectedValue string) {
	t.Helper()
	actual := w.Header().Get(key)
	if actual != expectedValue {
		t.Errorf("expected header %s=%s, got %s", key, expectedValue, actual)
	}
}

// ErrorResponse is the JSON form of an apierr.Error.
type ErrorResponse struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Function string         `json:"function,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// AssertJSONError checks that the response contains an error with the expected code.
func AssertJSONError(t *testing.T, w *httptest.ResponseRecorder, expectedCode string) *ErrorResponse {
	t.Helper()

	var errResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v\nBody: %s", err, w.Body.String())
	}
	if errResp.Code != expectedCode {
		t.Errorf("expected error code %s, got %s (message: %s)", expectedCode, errResp.Code, errResp.Message)
	}
	return &errResp
}

// DecodeJSON decodes the response body into the provided value.
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v\nBody: %s", err, w.Body.String())
	}
}

// WriteProject expands the named fixture into a fresh temporary directory and
// returns the directory and the fixture's entry file.
func WriteProject(t *testing.T, name string) (dir, entry string) {
	t.Helper()
	p, err := fixture.Load(name)
	if err != nil {
		t.Fatal(err)
	}
	return WriteArchive(t, p)
}

// WriteArchive expands p into a fresh temporary directory.
func WriteArchive(t *testing.T, p *fixture.Project) (dir, entry string) {
	t.Helper()
	dir = t.TempDir()
	if err := p.WriteTo(dir); err != nil {
		t.Fatalf("write fixture %s: %v", p.Name, err)
	}
	return dir, p.Entry()
}

// AssertContains checks that got contains every snippet, in order.
func AssertContains(t *testing.T, got string, snippets ...string) {
	t.Helper()
	rest := got
	for _, s := range snippets {
		i := strings.Index(rest, s)
		if i < 0 {
			t.Errorf("output missing %q (or out of order)\n--- output ---\n%s", s, got)
			return
		}
		rest = rest[i+len(s):]
	}
}

// AssertNotContains checks that got contains none of the snippets.
func AssertNotContains(t *testing.T, got string, snippets ...string) {
	t.Helper()
	for _, s := range snippets {
		if strings.Contains(got, s) {
			t.Errorf("output unexpectedly contains %q\n--- output ---\n%s", s, got)
		}
	}
}
