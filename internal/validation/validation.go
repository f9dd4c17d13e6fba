// Package validation builds the request validator shared by the HTTP layer
// and the CSV importer.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"fireproof/internal/apperrors"
	"fireproof/internal/models"

	"github.com/go-playground/validator/v10"
)

// New returns a validator that reports fields by their json name and knows
// the domain enum tags.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enums := map[string][]string{
		"inspection_type":    models.InspectionTypes,
		"severity":           models.Severities,
		"deficiency_type":    models.DeficiencyTypes,
		"checklist_response": {models.ResultPass, models.ResultFail, models.ResultNA},
		"photo_type":         models.PhotoTypes,
	}
	for tag, values := range enums {
		allowed := make(map[string]bool, len(values))
		for _, value := range values {
			allowed[value] = true
		}
		// Registration only fails for an empty tag name.
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return allowed[fl.Field().String()]
		})
	}
	return v
}

// ToAppError converts validator failures into a field keyed validation error.
// Other errors pass through unchanged.
func ToAppError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fieldPath(fe)] = Message(fe)
	}
	return apperrors.ValidationFields(details)
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// Message renders one validator failure.
func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_with":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "datetime":
		return "must be a date in " + fe.Param() + " format"
	case "latitude", "longitude":
		return "must be a valid " + fe.Tag()
	case "inspection_type":
		return "must be one of: " + strings.Join(models.InspectionTypes, " ")
	case "severity":
		return "must be one of: " + strings.Join(models.Severities, " ")
	case "deficiency_type":
		return "must be one of: " + strings.Join(models.DeficiencyTypes, " ")
	case "checklist_response":
		return "must be one of: Pass Fail NA"
	case "photo_type":
		return "must be one of: " + strings.Join(models.PhotoTypes, " ")
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
