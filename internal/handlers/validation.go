package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"taskboard/internal/models"

	"github.com/go-playground/validator/v10"
)

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// fieldMessages holds the client-facing message for a field failing any
// rule other than "required".
var fieldMessages = map[string]string{
	"name":        "Name must be between 2 and 50 characters",
	"email":       "Please provide a valid email",
	"password":    "Password must be at least 6 characters",
	"bio":         "Bio cannot exceed 200 characters",
	"title":       "Title must be between 1 and 100 characters",
	"description": "Description cannot exceed 500 characters",
	"status":      "Invalid status value",
	"priority":    "Invalid priority value",
	"tags":        fmt.Sprintf("A task can have at most %d tags", models.MaxTags),
	"sortBy":      "Invalid sort field",
	"order":       "Invalid sort order",
}

// tagMessages overrides fieldMessages for a specific field and rule.
var tagMessages = map[string]string{
	"password.passwordbytes": fmt.Sprintf("Password cannot exceed %d bytes", maxPasswordBytes),
}

// Validator wraps validator.Validate so that errors are reported under the
// JSON field names clients send.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	mustRegister(v, "taskstatus", func(fl validator.FieldLevel) bool {
		return models.TaskStatus(fl.Field().String()).Valid()
	})
	mustRegister(v, "taskpriority", func(fl validator.FieldLevel) bool {
		return models.TaskPriority(fl.Field().String()).Valid()
	})
	mustRegister(v, "maxtags", func(fl validator.FieldLevel) bool {
		return fl.Field().Len() <= models.MaxTags
	})
	// validator's max counts runes, bcrypt limits bytes
	mustRegister(v, "passwordbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxPasswordBytes
	})
	return &Validator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// Validate returns nil when s passes, or one FieldError per failing field.
func (v *Validator) Validate(s interface{}) []FieldError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	if fe.Tag() == "required" {
		return strings.ToUpper(field[:1]) + field[1:] + " is required"
	}
	if msg, ok := tagMessages[field+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := fieldMessages[field]; ok {
		return msg
	}
	return "Invalid value for " + field
}

// OptionalString distinguishes a JSON field that is absent, explicitly null
// or carries a string.
type OptionalString struct {
	Set   bool
	Null  bool
	Value string
}

// UnmarshalJSON is only called when the field is present in the body.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// Empty reports whether the field was sent as null or as a blank string.
func (o OptionalString) Empty() bool {
	return o.Null || strings.TrimSpace(o.Value) == ""
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
