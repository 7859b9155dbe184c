package routeutil

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var usernameChars = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	// Report fields by their wire name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"json", "form"} {
			name, _, _ := strings.Cut(f.Tag.Get(key), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameChars.MatchString(fl.Field().String())
	})
}

// BindError converts a gin binding failure into a *registrystore.ValidationError
// describing the first offending field. Malformed bodies are reported against "body".
func BindError(err error) error {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		return fieldError(fields[0])
	}
	return &registrystore.ValidationError{Field: "body", Message: "malformed request body"}
}

func fieldError(fe validator.FieldError) *registrystore.ValidationError {
	name := fe.Field()
	var msg string
	switch fe.Tag() {
	case "required":
		msg = name + " is required"
	case "email":
		msg = "a valid email is required"
	case "min":
		msg = fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case "max":
		msg = fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case "username":
		msg = "username may only contain letters, digits, '_' or '.'"
	default:
		msg = fmt.Sprintf("%s is invalid", name)
	}
	return &registrystore.ValidationError{Field: name, Message: msg}
}
