package validator

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Validator provides validation functionality
type Validator interface {
	Validate(obj interface{}) error
}

type structValidator struct {
	validate *validator.Validate
}

// New returns a Validator that reads `validate` struct tags.
func New() Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	configure(v)
	return &structValidator{validate: v}
}

func (v *structValidator) Validate(obj interface{}) error {
	if err := v.validate.Struct(obj); err != nil {
		return stderrors.New(Translate(err))
	}
	return nil
}

var registerOnce sync.Once

// RegisterGinRules installs the custom rules and JSON field naming on gin's
// binding engine, so `binding` tags behave like `validate` tags.
func RegisterGinRules() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			configure(v)
		}
	})
}

func configure(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	if err := v.RegisterValidation("notblank", notBlank); err != nil {
		panic(err)
	}
}

func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	switch field.Kind() {
	case reflect.String:
		return strings.TrimSpace(field.String()) != ""
	case reflect.Ptr, reflect.Interface:
		return !field.IsNil()
	default:
		return true
	}
}

// Translate turns validation errors into a single readable message. Other
// errors are returned verbatim.
func Translate(err error) string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fieldMessage(e))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", e.Field())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", e.Field(), e.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", e.Field(), e.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a valid id", e.Field())
	default:
		return fmt.Sprintf("%s is invalid", e.Field())
	}
}
