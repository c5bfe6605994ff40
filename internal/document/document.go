// Package document reads resumes and job postings from files or URLs as plain text.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a URL fetch.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is sent with URL fetches.
	DefaultUserAgent = "Mozilla/5.0 (compatible; resume-fit/1.0)"

	maxFetchSize = 10 << 20
)

// ErrEmptyDocument is returned when a source yields no text.
var ErrEmptyDocument = errors.New("document is empty")

var httpClient = &http.Client{Timeout: DefaultTimeout}

// Load returns the text of source. Sources starting with http:// or https:// are
// fetched; anything else is a local file whose extension selects the reader.
func Load(ctx context.Context, source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", errors.New("document source is empty")
	}

	var (
		text string
		err  error
	)
	if isURL(source) {
		text, err = fetch(ctx, source)
	} else {
		text, err = readFile(source)
	}
	if err != nil {
		return "", err
	}

	text = Clean(text)
	if text == "" {
		return "", fmt.Errorf("%s: %w", source, ErrEmptyDocument)
	}
	return text, nil
}

func isURL(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return pdfText(data)
	case ".docx":
		return docxText(data)
	case ".html", ".htm":
		return htmlText(bytes.NewReader(data))
	default:
		return string(data), nil
	}
}

func fetch(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("invalid url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: HTTP status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rawURL, err)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	switch {
	case strings.Contains(contentType, "application/pdf"):
		return pdfText(body)
	case strings.Contains(contentType, "text/plain"):
		return string(body), nil
	default:
		return htmlText(bytes.NewReader(body))
	}
}

// Clean trims every line and drops runs of blank lines.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	cleaned := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if len(cleaned) > 0 && !blank {
				cleaned = append(cleaned, "")
			}
			blank = true
			continue
		}
		cleaned = append(cleaned, line)
		blank = false
	}

	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}
