package servicemodel

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// topicUnsafe lists characters that would change the meaning of a topic
// if interpolated into it.
const topicUnsafe = "/+#"

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	_ = validate.RegisterValidation("topicsafe", validateTopicSafe)
	validate.RegisterTagNameFunc(propertyName)
}

func validateTopicSafe(fl validator.FieldLevel) bool {
	return !strings.ContainsAny(fl.Field().String(), topicUnsafe)
}

// propertyName reports fields by their wire name. Fields kept out of the
// payload (json:"-") fall back to the lower camel case Go name.
func propertyName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name != "" && name != "-" {
		return name
	}
	return lowerCamel(f.Name)
}

func lowerCamel(s string) string {
	if strings.HasSuffix(s, "ID") {
		s = s[:len(s)-2] + "Id"
	}
	runes := []rune(s)
	if len(runes) > 0 {
		runes[0] = unicode.ToLower(runes[0])
	}
	return string(runes)
}

// StructValidator validates values of type T (or *T) using their
// `validate` struct tags. Besides the stock tags it understands
// "topicsafe", which rejects '/', '+' and '#'.
func StructValidator[T any](shape string) ShapeValidator {
	return func(value any) error {
		var target any
		switch v := value.(type) {
		case T:
			target = &v
		case *T:
			if v == nil {
				return newError(kindValidation,
					fmt.Sprintf("validation failure - value of '%s' must not be nil", shape), nil, nil)
			}
			target = v
		default:
			return newError(kindValidation,
				fmt.Sprintf("validation failure - value must be a '%s', got %T", shape, value), nil, nil)
		}

		err := validate.Struct(target)
		if err == nil {
			return nil
		}

		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return newError(kindValidation, describeFieldError(shape, fieldErrs[0]), nil, nil)
		}
		return newError(kindValidation, "validation failure - "+err.Error(), nil, nil)
	}
}

func describeFieldError(shape string, fe validator.FieldError) string {
	property := fe.Namespace()
	if _, rest, ok := strings.Cut(property, "."); ok {
		property = rest
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("validation failure - missing required property '%s' of '%s'", property, shape)
	case "topicsafe":
		return fmt.Sprintf("validation failure - property '%s' of '%s' must not contain '/', '+', or '#'", property, shape)
	case "oneof":
		return fmt.Sprintf("validation failure - property '%s' of '%s' must be one of [%s]", property, shape, fe.Param())
	default:
		return fmt.Sprintf("validation failure - property '%s' of '%s' failed '%s' check", property, shape, fe.Tag())
	}
}
