// Package fixture generates the local HTML page the probe tests against
// and can serve it over HTTP for browsers that refuse file:// media.
package fixture

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultPath is the fixture filename used when the caller does not
// choose one. It is overwritten on every run.
const DefaultPath = "test_video.html"

// Build renders the fixture document for the given video source.
// An empty src falls back to DefaultSource.
func Build(src string) ([]byte, error) {
	if src == "" {
		src = DefaultSource
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, struct{ Source string }{Source: src}); err != nil {
		return nil, fmt.Errorf("failed to render fixture: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders the fixture and writes it to path, replacing any previous
// file. It returns the absolute path, suitable for a file:// URL.
func Write(path, src string) (string, error) {
	doc, err := Build(src)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return "", fmt.Errorf("failed to write fixture: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve fixture path: %w", err)
	}
	return abs, nil
}

// FileURL converts an absolute fixture path into a file:// URL.
func FileURL(absPath string) string {
	return "file://" + absPath
}
