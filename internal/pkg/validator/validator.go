package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func oneOf(values ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		for _, allowed := range values {
			if v == allowed {
				return true
			}
		}
		return false
	}
}

func registerCustomValidations() {
	validate.RegisterValidation("quest_type", oneOf("mcq", "text", "video", "checkin"))
	validate.RegisterValidation("decision", oneOf("accepted", "rejected"))
	validate.RegisterValidation("tier", oneOf("platform", "org", "user"))
	validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}

	errors := make(map[string]string)
	for _, fe := range validationErrors {
		field := fe.Field()
		switch fe.Tag() {
		case "required", "notblank":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is too small (min: " + fe.Param() + ")"
		case "max":
			errors[field] = "Value is too large (max: " + fe.Param() + ")"
		case "gte":
			errors[field] = "Value must be at least " + fe.Param()
		case "lte":
			errors[field] = "Value must be at most " + fe.Param()
		case "quest_type":
			errors[field] = "Invalid quest type. Must be: mcq, text, video, or checkin"
		case "decision":
			errors[field] = "Invalid decision. Must be: accepted or rejected"
		case "tier":
			errors[field] = "Invalid tier. Must be: platform, org, or user"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}
