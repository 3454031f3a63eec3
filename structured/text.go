package structured

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

var ErrMalformedOutput = errors.New("malformed structured output")

// DecodeError reports model output that could not be decoded into the expected shape.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	raw := e.Raw
	if len(raw) > 120 {
		raw = raw[:120] + "..."
	}
	return fmt.Sprintf("%s: %v (output %q)", ErrMalformedOutput, e.Err, raw)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrMalformedOutput, e.Err}
}

// StripFences removes markdown code fences around a payload and returns the
// fenced body. Text without fences is returned trimmed.
func StripFences(content string) string {
	content = strings.TrimSpace(content)
	start := strings.Index(content, "```")
	if start < 0 {
		return content
	}
	body := content[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		lang := strings.TrimSpace(body[:nl])
		if lang == "" || !strings.ContainsAny(lang, "{[\"") {
			body = body[nl+1:]
		}
	} else {
		body = strings.TrimPrefix(body, "json")
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// objectSpan returns the outermost {...} of s, or s unchanged.
func objectSpan(s string) string {
	open := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if open < 0 || end <= open {
		return s
	}
	return s[open : end+1]
}

// DecodeJSON decodes a JSON object out of free model text, tolerating code
// fences and surrounding prose.
func DecodeJSON[T any](content string) (*T, error) {
	payload := objectSpan(StripFences(content))
	if payload == "" {
		return nil, &DecodeError{Raw: content, Err: errors.New("empty output")}
	}
	var out T
	if err := sonic.UnmarshalString(payload, &out); err != nil {
		return nil, &DecodeError{Raw: content, Err: err}
	}
	return &out, nil
}
