package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ResponseAssertion provides fluent assertions for HTTP responses
type ResponseAssertion struct {
	t        *testing.T
	resp     *http.Response
	body     string
	bodyRead bool
}

// AssertResponse creates a new ResponseAssertion for the given response
func AssertResponse(t *testing.T, resp *http.Response) *ResponseAssertion {
	t.Helper()
	return &ResponseAssertion{
		t:    t,
		resp: resp,
	}
}

func (ra *ResponseAssertion) readBody() string {
	if !ra.bodyRead {
		defer ra.resp.Body.Close()
		body, err := io.ReadAll(ra.resp.Body)
		if err != nil {
			ra.t.Fatalf("Failed to read response body: %v", err)
		}
		ra.body = string(body)
		ra.bodyRead = true
	}
	return ra.body
}

// Status asserts the response has the expected status code
func (ra *ResponseAssertion) Status(code int) *ResponseAssertion {
	ra.t.Helper()
	if ra.resp.StatusCode != code {
		ra.t.Errorf("Expected status %d, got %d.\nBody (first 500 chars): %s",
			code, ra.resp.StatusCode, truncate(ra.readBody(), 500))
	}
	return ra
}

// StatusOK asserts the response has status 200
func (ra *ResponseAssertion) StatusOK() *ResponseAssertion {
	ra.t.Helper()
	return ra.Status(http.StatusOK)
}

// ContentType asserts the response has the expected content type
func (ra *ResponseAssertion) ContentType(expected string) *ResponseAssertion {
	ra.t.Helper()
	ct := ra.resp.Header.Get("Content-Type")
	if !strings.Contains(ct, expected) {
		ra.t.Errorf("Expected Content-Type containing %q, got %q", expected, ct)
	}
	return ra
}

// ContentTypeJSON asserts the response is JSON
func (ra *ResponseAssertion) ContentTypeJSON() *ResponseAssertion {
	ra.t.Helper()
	return ra.ContentType("application/json")
}

// Contains asserts the response body contains the given string
func (ra *ResponseAssertion) Contains(substr string) *ResponseAssertion {
	ra.t.Helper()
	body := ra.readBody()
	if !strings.Contains(body, substr) {
		ra.t.Errorf("Expected body to contain %q, but it didn't.\nBody (first 500 chars): %s",
			substr, truncate(body, 500))
	}
	return ra
}

// ContainsAll asserts the response body contains all the given strings
func (ra *ResponseAssertion) ContainsAll(substrs ...string) *ResponseAssertion {
	ra.t.Helper()
	for _, substr := range substrs {
		ra.Contains(substr)
	}
	return ra
}

// NotContains asserts the response body does not contain the given string
func (ra *ResponseAssertion) NotContains(substr string) *ResponseAssertion {
	ra.t.Helper()
	if strings.Contains(ra.readBody(), substr) {
		ra.t.Errorf("Expected body NOT to contain %q, but it did", substr)
	}
	return ra
}

// JSONEq asserts the body is JSON equivalent to expected
func (ra *ResponseAssertion) JSONEq(expected string) *ResponseAssertion {
	ra.t.Helper()
	assert.JSONEq(ra.t, expected, ra.readBody())
	return ra
}

// HasKeys asserts the body is a JSON object with every given top-level key
func (ra *ResponseAssertion) HasKeys(keys ...string) *ResponseAssertion {
	ra.t.Helper()
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(ra.readBody()), &obj); err != nil {
		ra.t.Errorf("Expected a JSON object: %v", err)
		return ra
	}
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			ra.t.Errorf("Expected JSON key %q", k)
		}
	}
	return ra
}

// Decode unmarshals the body into v
func (ra *ResponseAssertion) Decode(v interface{}) *ResponseAssertion {
	ra.t.Helper()
	if err := json.Unmarshal([]byte(ra.readBody()), v); err != nil {
		ra.t.Fatalf("Failed to decode body: %v", err)
	}
	return ra
}

// Body returns the response body as a string
func (ra *ResponseAssertion) Body() string {
	return ra.readBody()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
