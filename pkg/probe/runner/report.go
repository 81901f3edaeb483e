package runner

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/thesyncim/vidprobe/pkg/probe/metrics"
)

// Status is the outcome of a single check.
type Status string

const (
	// StatusPass indicates the check's assertion held.
	StatusPass Status = "PASS"
	// StatusFail indicates the check's assertion failed or the check errored.
	StatusFail Status = "FAIL"
)

// TestResult records one check's outcome.
type TestResult struct {
	Name   string                 `json:"name"`
	Status Status                 `json:"status"`
	Detail map[string]interface{} `json:"detail,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// Report is the single durable artifact of a run: every metrics snapshot
// taken and every check outcome, in order.
type Report struct {
	RunID        string                  `json:"run_id"`
	SourceURL    string                  `json:"source_url"`
	RunTimestamp time.Time               `json:"run_timestamp"`
	Metrics      []metrics.StreamMetrics `json:"metrics"`
	Tests        []TestResult            `json:"tests"`
}

// Passed reports whether every check passed.
func (r *Report) Passed() bool {
	for _, t := range r.Tests {
		if t.Status != StatusPass {
			return false
		}
	}
	return true
}

// Write serializes the report as indented JSON to path, replacing any
// previous report.
func (r *Report) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// ReadReport loads a report previously written with Write.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &r, nil
}

// Summary writes the human-readable PASS/FAIL table.
func (r *Report) Summary(w io.Writer) {
	fmt.Fprintln(w, "\nTest Results:")
	fmt.Fprintln(w, strings.Repeat("-", 50))
	for _, t := range r.Tests {
		fmt.Fprintf(w, "%-12s %s\n", t.Name+":", t.Status)
		if t.Error != "" {
			fmt.Fprintf(w, "%-12s   %s\n", "", t.Error)
		}
	}
	fmt.Fprintln(w, strings.Repeat("-", 50))
	if r.Passed() {
		fmt.Fprintln(w, "Status: PASS")
	} else {
		fmt.Fprintln(w, "Status: FAIL")
	}
}
