package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Issue is one structural problem found in an input value. Path is the
// dotted/indexed location within the input; empty means the root.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationError is returned by the failing entry points.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	switch len(e.Issues) {
	case 0:
		return "funnel validation failed"
	case 1:
		return "funnel validation failed: " + e.Issues[0].String()
	}
	return fmt.Sprintf("funnel validation failed: %s (and %d more)", e.Issues[0], len(e.Issues)-1)
}

func join(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

func index(base string, i int) string {
	return base + "[" + strconv.Itoa(i) + "]"
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func typeIssue(path, want string, got any) Issue {
	return Issue{Path: path, Message: fmt.Sprintf("expected %s, received %s", want, kindOf(got))}
}

func tagList() string {
	names := make([]string, 0, len(knownTags))
	for _, t := range knownTags {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
