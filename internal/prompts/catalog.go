// Package prompts loads the named system/user prompt templates used by the AI backends.
// A default catalog is embedded in the binary and may be replaced by a YAML file.
package prompts

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	CheckRequest     = "check_request"
	ExtractReqs      = "extract_reqs"
	ScoreResume      = "score_resume"
	SummarizeGaps    = "summarize_gaps"
	SuggestEdits     = "suggest_edits"
	ExtractTailoring = "extract_tailoring"
	ExtractSearch    = "extract_search"
)

// Required lists the prompts every catalog must define.
var Required = []string{
	CheckRequest,
	ExtractReqs,
	ScoreResume,
	SummarizeGaps,
	SuggestEdits,
	ExtractTailoring,
	ExtractSearch,
}

// ErrPromptNotFound is returned for lookups of names the catalog does not define.
var ErrPromptNotFound = errors.New("prompt not found")

//go:embed catalog.yaml
var defaultCatalog []byte

// Template is a system/user message pair.
type Template struct {
	System string `mapstructure:"system_message"`
	User   string `mapstructure:"user_message"`
}

type Catalog struct {
	templates map[string]Template
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(bytes.NewReader(defaultCatalog))
}

// Load reads a catalog from path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open prompt catalog: %w", err)
	}
	defer file.Close()

	catalog, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return catalog, nil
}

// Parse reads a YAML catalog with a top-level "prompts" mapping and checks that
// every required prompt is present.
func Parse(r io.Reader) (*Catalog, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("parse prompt catalog: %w", err)
	}

	raw := v.Get("prompts")
	if raw == nil {
		return nil, errors.New("prompt catalog has no top-level prompts mapping")
	}

	var templates map[string]Template
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &templates,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode prompt catalog: %w", err)
	}

	catalog := &Catalog{templates: templates}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// Validate checks that every required prompt has a system message.
func (c *Catalog) Validate() error {
	var missing []string
	for _, name := range Required {
		if _, err := c.Get(name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrPromptNotFound, strings.Join(missing, ", "))
	}
	return nil
}

// Get returns the template registered under name.
func (c *Catalog) Get(name string) (Template, error) {
	tmpl, ok := c.templates[name]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", ErrPromptNotFound, name)
	}
	if strings.TrimSpace(tmpl.System) == "" {
		return Template{}, fmt.Errorf("%w: %q has no system_message", ErrPromptNotFound, name)
	}
	tmpl.System = strings.TrimSpace(tmpl.System)
	tmpl.User = strings.TrimSpace(tmpl.User)
	return tmpl, nil
}

// Names returns the defined prompt names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.templates))
	for name := range c.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
