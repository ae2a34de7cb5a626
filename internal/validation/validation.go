// Package validation turns struct tag checks into field-level error maps.
//
// Request payloads declare their rules with `validate` tags. Struct runs them
// and reports failures keyed by the JSON field name:
//
//	type bookInput struct {
//		Title string `json:"title" validate:"required,max=255"`
//		Year  *int   `json:"publication_year" validate:"required,year"`
//	}
//
//	if errs := validation.Struct(in); !errs.Valid() {
//		c.JSON(http.StatusBadRequest, errs)
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// NonFieldErrors is the key used for errors that are not tied to one field.
const NonFieldErrors = "non_field_errors"

const (
	MsgRequired        = "This field is required."
	MsgBlank           = "This field may not be blank."
	MsgYearInFuture    = "Publication year cannot be in the future."
	MsgYearNegative    = "Publication year must be a positive integer."
	MsgInvalidInteger  = "A valid integer is required."
	MsgInvalidString   = "Not a valid string."
	MsgInvalidList     = "Expected a list of items."
	MsgNull            = "This field may not be null."
	MsgNotANumber      = "Enter a number."
	MsgInvalidEmail    = "Enter a valid email address."
	MsgInvalidUsername = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	MsgInvalidCreds    = "Invalid credentials"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// Errors maps a field name to its messages.
type Errors map[string][]string

func New() Errors {
	return make(Errors)
}

// Add appends a message for field.
func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Check adds message for field when ok is false.
func (e Errors) Check(ok bool, field, message string) {
	if !ok {
		e.Add(field, message)
	}
}

func (e Errors) Valid() bool {
	return len(e) == 0
}

// Merge copies every message from other into e.
func (e Errors) Merge(other Errors) {
	for field, msgs := range other {
		e[field] = append(e[field], msgs...)
	}
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(e[field], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// DoesNotExist is the message for a reference to a missing row.
func DoesNotExist(pk int) string {
	return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", pk)
}

var (
	once     sync.Once
	instance *validator.Validate
)

func validate() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(fieldName)
		_ = v.RegisterValidation("year", validYear)
		_ = v.RegisterValidation("notblank", notBlank)
		_ = v.RegisterValidation("username", validUsername)
		instance = v
	})
	return instance
}

// Struct validates s against its `validate` tags. The result is empty when s is valid.
func Struct(s any) Errors {
	errs := New()
	err := validate().Struct(s)
	if err == nil {
		return errs
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.Add(NonFieldErrors, err.Error())
		return errs
	}
	for _, fe := range fieldErrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return MsgRequired
	case "notblank":
		return MsgBlank
	case "year":
		if v, ok := fe.Value().(int); ok && v < 0 {
			return MsgYearNegative
		}
		return MsgYearInFuture
	case "email":
		return MsgInvalidEmail
	case "username":
		return MsgInvalidUsername
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	default:
		return fmt.Sprintf("Failed %q validation.", fe.Tag())
	}
}

// validYear accepts years from 0 up to and including the current calendar year.
func validYear(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		year := fl.Field().Int()
		return year >= 0 && year <= int64(time.Now().Year())
	}
	return false
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validUsername(fl validator.FieldLevel) bool {
	return usernamePattern.MatchString(fl.Field().String())
}
