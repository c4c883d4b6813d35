// Package validation registers the request rules shared by the controllers.
package validation

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/threadline/configurator-backend/internal/app/model"
)

var (
	toolSlugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	registerOnce    sync.Once
	registerErr     error
)

// RegisterWithGin installs the custom rules on gin's default validator.
// It is safe to call more than once.
func RegisterWithGin() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		registerErr = Register(v)
	})
	return registerErr
}

// Register adds the toolslug and modelkind rules to v and makes field
// errors report json names.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonTagName)
	if err := v.RegisterValidation("toolslug", validToolSlug); err != nil {
		return err
	}
	return v.RegisterValidation("modelkind", validModelKind)
}

func jsonTagName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

func validToolSlug(fl validator.FieldLevel) bool {
	return toolSlugPattern.MatchString(fl.Field().String())
}

func validModelKind(fl validator.FieldLevel) bool {
	return model.ModelKind(fl.Field().String()).Valid()
}
