package server

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"vacancy-vault/internal/parking"
)

// ValidationError maps request fields to what is wrong with them.
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

func (v *ValidationError) Error() string {
	fields := make([]string, 0, len(v.Errors))
	for field := range v.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	messages := make([]string, 0, len(fields))
	for _, field := range fields {
		messages = append(messages, v.Errors[field])
	}
	return strings.Join(messages, "; ")
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("vehicle_type", func(fl validator.FieldLevel) bool {
		return parking.ParseVehicleType(fl.Field().String()).Known()
	})
	return v
}

var validate = newValidator()

// validateRequest returns nil or a *ValidationError.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}
	out := &ValidationError{Errors: make(map[string]string, len(errs))}
	for _, fe := range errs {
		out.Errors[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must match the layout %s", field, fe.Param())
	case "vehicle_type":
		return fmt.Sprintf("%s must be one of: Bike, Car, Truck", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
