package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

// ErrEmptyResponse is returned when there is nothing to decode.
var ErrEmptyResponse = errors.New("empty model response")

// ErrTrailingData is returned when the response holds more than one JSON value.
var ErrTrailingData = errors.New("unexpected data after the JSON object")

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError lists every field that does not match the schema.
type ValidationError struct {
	Schema string
	Errors []FieldError
}

// FieldError is a single schema violation.
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "response does not match schema %s:", ve.Schema)
	for _, err := range ve.Errors {
		fmt.Fprintf(&sb, " %s: %s;", err.Field, err.Message)
	}
	return strings.TrimSuffix(sb.String(), ";")
}

type defaulter interface {
	applyDefaults()
}

func (q *SearchQuery) applyDefaults() {
	q.Limit = DefaultSearchLimit
	q.Hybrid = false
}

// Decode parses a raw model response into T. The response must match the schema of T
// exactly: missing required fields, unknown fields, wrong types and out-of-range
// numbers are errors.
func Decode[T Shape](raw string) (T, error) {
	var out T

	s, err := For[T]()
	if err != nil {
		return out, err
	}

	cleaned := CleanJSONBlock(raw)
	if cleaned == "" {
		return out, ErrEmptyResponse
	}

	compiled, err := s.compiled()
	if err != nil {
		return out, fmt.Errorf("load schema %s: %w", s.Name, err)
	}

	result, err := compiled.Validate(gojsonschema.NewStringLoader(cleaned))
	if err != nil {
		return out, fmt.Errorf("parse response as json: %w", err)
	}

	if !result.Valid() {
		verr := &ValidationError{Schema: s.Name}
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "" {
				field = "(root)"
			}
			verr.Errors = append(verr.Errors, FieldError{Field: field, Message: desc.Description()})
		}
		return out, verr
	}

	if d, ok := any(&out).(defaulter); ok {
		d.applyDefaults()
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("decode response into %s: %w", s.Name, err)
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return out, fmt.Errorf("decode response into %s: %w", s.Name, ErrTrailingData)
	}

	if err := validate.Struct(out); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return out, fmt.Errorf("validate %s: %w", s.Name, err)
		}
		verr := &ValidationError{Schema: s.Name}
		for _, fe := range fieldErrs {
			verr.Errors = append(verr.Errors, FieldError{
				Field:   fe.Field(),
				Message: fmt.Sprintf("failed on %s=%s (got %v)", fe.Tag(), fe.Param(), fe.Value()),
			})
		}
		return out, verr
	}

	return out, nil
}

// CleanJSONBlock removes markdown code fences and any prose around the JSON object.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
