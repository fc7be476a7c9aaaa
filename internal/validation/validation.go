// Package validation runs validator/v10 struct tags and turns the first
// failure into an apperr validation error with a client-facing message.
package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/01moynul/bashrometer-golang/internal/apperr"
)

// Messages maps a failure to its client message. Keys are tried in order
// "field.tag", "field", then "tag", where field is the JSON name.
type Messages map[string]string

var std = New()

// New returns a validator reading `validate` tags and reporting fields by
// their JSON names.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(JSONName)
	return v
}

// JSONName is a validator tag name func returning the json key of f.
func JSONName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// Struct validates s and translates the first failure with msgs.
func Struct(s any, msgs Messages) error {
	return Translate(std.Struct(s), msgs)
}

// Var validates a single value against tag.
func Var(field any, tag, msg string) error {
	if err := std.Var(field, tag); err != nil {
		return apperr.Validation(msg).WithDetails(err.Error())
	}
	return nil
}

// Translate converts validator.ValidationErrors into an *apperr.Error.
// Other errors are returned unchanged.
func Translate(err error, msgs Messages) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	for _, key := range []string{fe.Field() + "." + fe.Tag(), fe.Field(), fe.Tag()} {
		if msg, ok := msgs[key]; ok {
			return apperr.Validation(msg).WithDetails(fe.Error())
		}
	}
	return apperr.Validationf("Invalid %s.", fe.Field()).WithDetails(fe.Error())
}
