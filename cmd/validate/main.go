// Command validate smoke-tests a running budget insights server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type endpoint struct {
	path     string
	method   string
	contains []string
}

var endpoints = []endpoint{
	{path: "/api/health", method: "GET", contains: []string{`"status":"ok"`}},
	{path: "/api/sources", method: "GET"},
	{path: "/api/transactions?per_page=5", method: "GET", contains: []string{`"total_count"`}},

	{path: "/insights", method: "GET", contains: []string{`"health"`, `"alerts"`}},
	{path: "/insights/recurring", method: "GET", contains: []string{`"recurring"`, `"upcoming"`}},
	{path: "/insights/runway", method: "GET", contains: []string{`"runway"`}},
	{path: "/insights/forecast", method: "GET", contains: []string{`"confidence_level"`}},
	{path: "/insights/health", method: "GET", contains: []string{`"grade"`}},
	{path: "/insights/alerts", method: "GET"},
	{path: "/insights/goals", method: "GET"},
	{path: "/insights/buckets?unit=month", method: "GET"},
}

type result struct {
	endpoint endpoint
	status   int
	duration time.Duration
	err      error
	body     string
}

func main() {
	url := flag.String("url", "http://localhost:8080", "Base URL of the server to validate")
	verbose := flag.Bool("v", false, "Verbose output")
	timeout := flag.Int("timeout", 10, "Request timeout in seconds")
	now := flag.String("now", "", "Reference date (YYYY-MM-DD) passed to insight endpoints")
	flag.Parse()

	client := &http.Client{
		Timeout: time.Duration(*timeout) * time.Second,
	}

	fmt.Printf("Validating server at %s\n", *url)
	fmt.Printf("Testing %d endpoints...\n\n", len(endpoints))

	var passed, failed int
	var results []result

	for _, ep := range endpoints {
		r := validateEndpoint(client, *url, withNow(ep, *now))
		results = append(results, r)

		if r.err != nil {
			failed++
			fmt.Printf("FAIL %s %s\n", ep.method, ep.path)
			fmt.Printf("     Error: %v\n", r.err)
		} else if r.status != http.StatusOK {
			failed++
			fmt.Printf("FAIL %s %s\n", ep.method, ep.path)
			fmt.Printf("     Status: %d (expected 200)\n", r.status)
		} else {
			passed++
			if *verbose {
				fmt.Printf("PASS %s %s (%v)\n", ep.method, ep.path, r.duration)
			}
		}
	}

	fmt.Printf("\n========================================\n")
	fmt.Printf("Results: %d passed, %d failed\n", passed, failed)

	if failed > 0 {
		os.Exit(1)
	}
}

// withNow appends ?now= to insight endpoints
func withNow(ep endpoint, now string) endpoint {
	if now == "" || !strings.HasPrefix(ep.path, "/insights") {
		return ep
	}
	sep := "?"
	if strings.Contains(ep.path, "?") {
		sep = "&"
	}
	ep.path += sep + "now=" + now
	return ep
}

func validateEndpoint(client *http.Client, baseURL string, ep endpoint) result {
	start := time.Now()

	req, err := http.NewRequest(ep.method, baseURL+ep.path, nil)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to read body: %w", err)}
	}

	duration := time.Since(start)

	r := result{
		endpoint: ep,
		status:   resp.StatusCode,
		duration: duration,
		body:     string(body),
	}

	if resp.StatusCode != http.StatusOK {
		return r
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, "application/json") {
		r.err = fmt.Errorf("wrong content type: got %q", ct)
		return r
	}

	var js interface{}
	if err := json.Unmarshal(body, &js); err != nil {
		r.err = fmt.Errorf("invalid JSON: %w", err)
		return r
	}

	for _, needle := range ep.contains {
		if !strings.Contains(string(body), needle) {
			r.err = fmt.Errorf("missing expected content: %q", needle)
			return r
		}
	}

	return r
}
