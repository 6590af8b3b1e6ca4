package scrapers

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yair/merchpulse/pkg/domain"
)

// RecordValidator checks normalized records before they reach the resolver.
type RecordValidator struct {
	v *validator.Validate
}

func NewRecordValidator() *RecordValidator {
	v := validator.New()

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &RecordValidator{v: v}
}

// Validate returns a domain.ValidationError for the first failing field, by name.
func (r *RecordValidator) Validate(record any) error {
	err := r.v.Struct(record)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	sort.Slice(fieldErrs, func(i, j int) bool {
		return fieldErrs[i].Field() < fieldErrs[j].Field()
	})
	first := fieldErrs[0]
	return domain.ValidationError{Field: first.Field(), Message: friendlyMessage(first)}
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	default:
		return "is invalid"
	}
}
