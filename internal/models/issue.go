package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// IssueType is the kind of finding. The set is open-ended: unknown values
// are kept verbatim and rendered with a generic label.
type IssueType string

const (
	IssueTypeBug         IssueType = "bug"
	IssueTypeSecurity    IssueType = "security"
	IssueTypePerformance IssueType = "performance"
	IssueTypeStyle       IssueType = "style"
)

// Known reports whether t is one of the four built-in types.
func (t IssueType) Known() bool {
	switch t {
	case IssueTypeBug, IssueTypeSecurity, IssueTypePerformance, IssueTypeStyle:
		return true
	}
	return false
}

// Label returns the upper-cased type, or "ISSUE" when the type is empty.
func (t IssueType) Label() string {
	if strings.TrimSpace(string(t)) == "" {
		return "ISSUE"
	}
	return strings.ToUpper(string(t))
}

// Issue is one finding within a review. It has no identity beyond its
// position in the parent review.
type Issue struct {
	Type        IssueType   `json:"type"`
	File        string      `json:"file"`
	Line        *int        `json:"line,omitempty"`
	Description string      `json:"description"`
	Suggestion  string      `json:"suggestion,omitempty"`
	CodeExample CodeExample `json:"code_example"`
}

// Location returns "file:line" or just the file when no line is known.
func (i Issue) Location() string {
	if i.Line == nil || *i.Line <= 0 {
		return i.File
	}
	return i.File + ":" + strconv.Itoa(*i.Line)
}

// CodeExampleKind tags the variant held by a CodeExample.
type CodeExampleKind int

const (
	CodeExampleNone CodeExampleKind = iota
	CodeExampleSnippet
	CodeExampleDiff
)

// CodeExample is either a single snippet or a before/after pair.
type CodeExample struct {
	Kind    CodeExampleKind
	Snippet string
	Before  string
	After   string
}

// Snippet builds a single-snippet example.
func Snippet(text string) CodeExample {
	return CodeExample{Kind: CodeExampleSnippet, Snippet: text}
}

// Diff builds a before/after example.
func Diff(before, after string) CodeExample {
	return CodeExample{Kind: CodeExampleDiff, Before: before, After: after}
}

// IsZero reports whether no example is present.
func (c CodeExample) IsZero() bool { return c.Kind == CodeExampleNone }

type codeDiff struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// CopyText is the text placed on the clipboard for this example.
func (c CodeExample) CopyText() string {
	switch c.Kind {
	case CodeExampleSnippet:
		return c.Snippet
	case CodeExampleDiff:
		data, _ := json.MarshalIndent(codeDiff{Before: c.Before, After: c.After}, "", "  ")
		return string(data)
	default:
		return ""
	}
}

func (c *CodeExample) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*c = CodeExample{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		if s == "" {
			*c = CodeExample{}
			return nil
		}
		*c = Snippet(s)
		return nil
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err == nil {
			before, okB := rawString(fields["before"])
			after, okA := rawString(fields["after"])
			if okB && okA && (before != "" || after != "") {
				*c = Diff(before, after)
				return nil
			}
		}
	}

	// Anything else degrades to an indented dump of the raw value.
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		*c = Snippet(string(trimmed))
		return nil
	}
	*c = Snippet(buf.String())
	return nil
}

func (c CodeExample) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CodeExampleSnippet:
		return json.Marshal(c.Snippet)
	case CodeExampleDiff:
		return json.Marshal(codeDiff{Before: c.Before, After: c.After})
	default:
		return []byte("null"), nil
	}
}

func rawString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
