package schema

import (
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"
)

type fieldInfo struct {
	name     string
	required bool
	typ      reflect.Type
}

var fieldCache sync.Map // reflect.Type -> []fieldInfo

// fieldsOf lists the JSON-visible fields of a struct type. A field is required
// when it has a validate tag that does not start with omitempty.
func fieldsOf(t reflect.Type) []fieldInfo {
	if v, ok := fieldCache.Load(t); ok {
		return v.([]fieldInfo)
	}
	out := make([]fieldInfo, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := jsonName(f)
		if name == "" {
			continue
		}
		vt := f.Tag.Get("validate")
		out = append(out, fieldInfo{
			name:     name,
			required: vt != "" && !strings.HasPrefix(vt, "omitempty"),
			typ:      f.Type,
		})
	}
	fieldCache.Store(t, out)
	return out
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// checkShape compares a generic JSON value against the Go type it must decode
// into. It reports unknown keys, missing required keys and JSON kind mismatches;
// value constraints are left to the validator.
func checkShape(path string, raw any, t reflect.Type) []Issue {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct:
		obj, ok := raw.(map[string]any)
		if !ok {
			return []Issue{typeIssue(path, "object", raw)}
		}
		var issues []Issue
		fields := fieldsOf(t)
		known := make(map[string]bool, len(fields))
		for _, f := range fields {
			known[f.name] = true
			v, present := obj[f.name]
			if !present {
				if f.required {
					issues = append(issues, Issue{Path: join(path, f.name), Message: "required"})
				}
				continue
			}
			issues = append(issues, checkShape(join(path, f.name), v, f.typ)...)
		}
		return append(issues, unknownKeys(path, obj, known)...)
	case reflect.Slice:
		arr, ok := raw.([]any)
		if !ok {
			return []Issue{typeIssue(path, "array", raw)}
		}
		var issues []Issue
		for i, el := range arr {
			issues = append(issues, checkShape(index(path, i), el, t.Elem())...)
		}
		return issues
	case reflect.String:
		if _, ok := raw.(string); !ok {
			return []Issue{typeIssue(path, "string", raw)}
		}
	case reflect.Bool:
		if _, ok := raw.(bool); !ok {
			return []Issue{typeIssue(path, "boolean", raw)}
		}
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, ok := raw.(float64)
		if !ok || n != math.Trunc(n) {
			return []Issue{typeIssue(path, "integer", raw)}
		}
	case reflect.Float32, reflect.Float64:
		if _, ok := raw.(float64); !ok {
			return []Issue{typeIssue(path, "number", raw)}
		}
	}
	return nil
}

func unknownKeys(path string, obj map[string]any, known map[string]bool) []Issue {
	var extra []string
	for k := range obj {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	issues := make([]Issue, 0, len(extra))
	for _, k := range extra {
		issues = append(issues, Issue{Path: join(path, k), Message: "unrecognized field"})
	}
	return issues
}
