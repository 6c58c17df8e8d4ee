package scenario

import (
	"encoding/json"
	"strings"
)

// Result is the outcome of one tool invocation. It is a tagged variant:
// either the response text decoded into Fields (Structured true), or the
// undecodable text preserved verbatim in Raw so a human can inspect it
// later. Decoding failure is deliberately not an error; the scenario
// keeps going.
type Result struct {
	Structured bool
	Fields     map[string]any
	Raw        string
}

// ParseResult decodes the response text of a tool call.
func ParseResult(text string) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed != "" {
		var fields map[string]any
		if err := json.Unmarshal([]byte(trimmed), &fields); err == nil {
			return Result{Structured: true, Fields: fields}
		}
	}
	return Result{Raw: text}
}

// String returns the named field if it is a string.
func (r Result) String(key string) (string, bool) {
	if !r.Structured {
		return "", false
	}
	v, ok := r.Fields[key].(string)
	return v, ok && v != ""
}

// DownloadRef returns the artifact reference carried by the result, if
// both the retrieval locator and the suggested file name are present.
func (r Result) DownloadRef() (url, filename string, ok bool) {
	url, hasURL := r.String("download_url")
	filename, hasName := r.String("filename")
	if !hasURL || !hasName {
		return "", "", false
	}
	return url, filename, true
}
