// ABOUTME: Typed parameter structs for built-in rules, validated with go-playground/validator struct tags.
// ABOUTME: Parameters arrive as loose maps from JSON or YAML and are decoded before validation.
package lint

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is shared by all parameter structs; validator caches struct metadata.
var validate = newValidator()

// newValidator reports fields by their json names so messages match the config keys.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// FlowSizeParams configures the flowsize rule.
type FlowSizeParams struct {
	MaxSize int `json:"maxSize" validate:"required,gt=0"`
}

func flowSizeParamsFrom(sub Subrule) (FlowSizeParams, error) {
	var p FlowSizeParams
	if err := sub.DecodeParams(&p); err != nil {
		return p, err
	}
	if err := validate.Struct(p); err != nil {
		return p, formatValidationError(err)
	}
	return p, nil
}

// formatValidationError flattens validator field errors into one readable error.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
