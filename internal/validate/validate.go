// Package validate checks records against field rules and id patterns before they are stored.
package validate

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/staysync/staysync/internal/model"
)

// idPatterns maps an id kind to the pattern its values must match.
var idPatterns = map[string]*regexp.Regexp{
	"property": regexp.MustCompile(`^\d+$`),
	"catalog":  regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`),
}

var itemAreas = []string{
	model.AreaBedroom,
	model.AreaBathroom,
	model.AreaKitchen,
	model.AreaLiving,
	model.AreaGame,
}

// Validator wraps a configured validator.Validate.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator with the domain enum tags registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	enums := map[string][]string{
		"category":   model.Categories,
		"itemstatus": {model.StatusOK, model.StatusAttention, model.StatusProblem},
		"severity":   {model.SeverityLow, model.SeverityMedium, model.SeverityHigh},
		"areatype":   itemAreas,
	}
	for tag, values := range enums {
		allowed := values
		// RegisterValidation only fails on an empty tag or a reserved name.
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return slices.Contains(allowed, fl.Field().String())
		})
	}

	return &Validator{v: v}
}

// Struct validates s, converting failures into a *model.ValidationError.
func (val *Validator) Struct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating %T: %w", s, err)
	}

	out := &model.ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, model.FieldError{
			Field:   fieldPath(fe),
			Message: message(fe),
		})
	}
	return out
}

// ID checks id against the pattern registered for kind. Unknown kinds pass.
func (val *Validator) ID(kind, id string) error {
	pattern, ok := idPatterns[kind]
	if !ok {
		slog.Warn("no id pattern registered", "kind", kind)
		return nil
	}
	if !pattern.MatchString(id) {
		return model.Invalid(kind+" id", fmt.Sprintf("%q does not match %s", id, pattern))
	}
	return nil
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "gte":
		return "must be at least " + fe.Param()
	case "category":
		return "must be one of " + strings.Join(model.Categories, ", ")
	case "itemstatus":
		return "must be ok, attention or problem"
	case "severity":
		return "must be low, medium or high"
	case "areatype":
		return "must be one of " + strings.Join(itemAreas, ", ")
	default:
		return "failed " + fe.Tag() + " check"
	}
}
