// Package testutil provides fixtures and HTTP helpers shared by the tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// TestServer wraps httptest.Server with convenience methods
type TestServer struct {
	Server  *httptest.Server
	BaseURL string
	t       *testing.T
}

// ProjectRoot returns the directory holding go.mod
func ProjectRoot() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("could not get caller info")
	}

	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			panic("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// TestDataDir returns the sample ledger directory
func TestDataDir() string {
	return filepath.Join(ProjectRoot(), "testdata")
}

// CopyTestData copies the sample ledger into a scratch directory that is
// removed when t ends
func CopyTestData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	entries, err := os.ReadDir(TestDataDir())
	if err != nil {
		t.Fatalf("read testdata: %v", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(TestDataDir(), e.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		if err := os.WriteFile(filepath.Join(dir, e.Name()), data, 0644); err != nil {
			t.Fatalf("write %s: %v", e.Name(), err)
		}
	}
	return dir
}

// SetTestEnv points configuration at the sample ledger for the duration of t
func SetTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BUDGET_DATA_DIRECTORY", TestDataDir())
	t.Setenv("BUDGET_LISTEN_ADDR", ":0")
	t.Setenv("BUDGET_DIGEST_SCHEDULE", "")
	t.Setenv("BUDGET_DEBUG", "true")
}

// NewTestServer serves router until the test ends or Close is called
func NewTestServer(t *testing.T, router http.Handler) *TestServer {
	t.Helper()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestServer{
		Server:  server,
		BaseURL: server.URL,
		t:       t,
	}
}

// GET performs a GET request to the given path
func (ts *TestServer) GET(path string) *http.Response {
	ts.t.Helper()

	resp, err := http.Get(ts.BaseURL + path)
	if err != nil {
		ts.t.Fatalf("GET %s failed: %v", path, err)
	}
	return resp
}

// GETWithQuery performs a GET request with encoded query parameters
func (ts *TestServer) GETWithQuery(path string, query map[string]string) *http.Response {
	ts.t.Helper()

	values := url.Values{}
	for k, v := range query {
		values.Set(k, v)
	}
	if len(values) > 0 {
		path += "?" + values.Encode()
	}
	return ts.GET(path)
}

// POST performs a POST request to the given path
func (ts *TestServer) POST(path string, contentType string, body io.Reader) *http.Response {
	ts.t.Helper()

	resp, err := http.Post(ts.BaseURL+path, contentType, body)
	if err != nil {
		ts.t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

// POSTJSON encodes v and posts it
func (ts *TestServer) POSTJSON(path string, v interface{}) *http.Response {
	ts.t.Helper()

	body, err := json.Marshal(v)
	if err != nil {
		ts.t.Fatalf("encode body for %s: %v", path, err)
	}
	return ts.POST(path, "application/json", bytes.NewReader(body))
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	ts.Server.Close()
}

// ReadBody reads and returns the response body as a string
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return string(body)
}
