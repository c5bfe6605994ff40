// Package cache persists workflow results as JSON documents.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spigell/resume-fit/internal/schema"
)

// TimeLayout formats query dates and object names.
const TimeLayout = "20060102-150405"

// DefaultDir is where FileStore writes when no directory is configured.
const DefaultDir = "./data"

// Entry is one cached run.
type Entry struct {
	QueryDate          string              `json:"query_date"`
	Job                *schema.JobRecord   `json:"job,omitempty"`
	Jobs               []*schema.JobRecord `json:"jobs,omitempty"`
	AreasOfImprovement string              `json:"areas_of_improvement"`
}

// NewEntry stamps an entry with the UTC query date.
func NewEntry(now time.Time, areasOfImprovement string) Entry {
	return Entry{
		QueryDate:          now.UTC().Format(TimeLayout),
		AreasOfImprovement: areasOfImprovement,
	}
}

// ObjectName is the file or object key name of the entry.
func (e Entry) ObjectName() string {
	return "jobs_" + e.QueryDate + ".json"
}

func (e Entry) encode() ([]byte, error) {
	if strings.TrimSpace(e.QueryDate) == "" {
		return nil, fmt.Errorf("cache entry has no query date")
	}

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	return append(data, '\n'), nil
}

// Store saves entries and returns where they were written.
type Store interface {
	Save(ctx context.Context, entry Entry) (string, error)
}

// FileStore writes entries to a local directory.
type FileStore struct {
	dir string
}

var _ Store = (*FileStore)(nil)

func NewFileStore(dir string) *FileStore {
	if dir = strings.TrimSpace(dir); dir == "" {
		dir = DefaultDir
	}
	return &FileStore{dir: dir}
}

func (s *FileStore) Save(_ context.Context, entry Entry) (string, error) {
	data, err := entry.encode()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir %q: %w", s.dir, err)
	}

	path := filepath.Join(s.dir, entry.ObjectName())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write cache entry: %w", err)
	}
	return path, nil
}
