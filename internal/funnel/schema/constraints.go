package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return jsonName(f)
	})
	return v
}

// checkConstraints runs the field-level constraints declared in validate tags
// on an already decoded value and rebases the failures onto path.
func checkConstraints(path string, v any) []Issue {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Issue{{Path: path, Message: err.Error()}}
	}
	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, Issue{Path: rebase(path, fe.Namespace()), Message: constraintMessage(fe)})
	}
	return issues
}

// rebase drops the root struct name from a validator namespace
// ("ReviewsProps.items[0].stars") and prefixes path.
func rebase(path, ns string) string {
	_, rest, found := strings.Cut(ns, ".")
	if !found {
		return path
	}
	return join(path, rest)
}

func constraintMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Kind() == reflect.Slice {
			return "must contain at least 1 item"
		}
		return "must not be empty"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "url":
		return "must be a valid URL"
	}
	return fmt.Sprintf("failed %q constraint", fe.Tag())
}
