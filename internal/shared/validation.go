package shared

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// EmailTag is the validator tag for the dashboard's email rule.
const EmailTag = "glemail"

// ValidEmail accepts a string iff it contains both "@" and ".".
func ValidEmail(s string) bool {
	return strings.Contains(s, "@") && strings.Contains(s, ".")
}

// NewValidator returns a validator keyed by `form` tags with the email rule registered.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation(EmailTag, func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == "" {
			return true
		}
		return ValidEmail(value)
	})
	return v
}

// FormErrors maps a validation failure to messages keyed by form field. Labels
// name the fields in messages; unknown fields fall back to their key.
func FormErrors(err error, labels map[string]string) map[string]string {
	out := make(map[string]string)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["general"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		key := fe.Field()
		label := labels[key]
		if label == "" {
			label = key
		}
		out[key] = fieldMessage(label, fe)
	}
	return out
}

// FieldCheck is one submitted value and the validator rules it must pass.
type FieldCheck struct {
	Key   string
	Label string
	Value string
	Rules string
}

// CheckFields validates loose form values, as used by descriptor-driven
// forms that have no backing struct. Only the first failure per field is kept.
func CheckFields(v *validator.Validate, checks []FieldCheck) map[string]string {
	out := make(map[string]string)
	for _, c := range checks {
		if c.Rules == "" {
			continue
		}
		err := v.Var(strings.TrimSpace(c.Value), c.Rules)
		if err == nil {
			continue
		}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			out[c.Key] = fieldMessage(c.Label, verrs[0])
			continue
		}
		out[c.Key] = c.Label + " is invalid"
	}
	return out
}

func fieldMessage(label string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case EmailTag:
		return label + " must contain '@' and '.'"
	case "numeric", "number":
		return label + " must be a number"
	case "gt", "gte", "min":
		return label + " must be at least " + fe.Param()
	default:
		return label + " is invalid"
	}
}
