package json

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	once       sync.Once
	validate   *validator.Validate
	translator ut.Translator
)

func lazyinit() {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// report json names rather than Go field names
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		english := en.New()
		uni := ut.New(english, english)
		translator, _ = uni.GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(validate, translator)

		registerTranslation("required", "{0} is required", false)
		registerTranslation("max", "{0} must be at most {1}", true)
		registerTranslation("uuid", "{0} must be a valid UUID", false)
	})
}

func registerTranslation(tag, text string, withParam bool) {
	_ = validate.RegisterTranslation(tag, translator, func(t ut.Translator) error {
		return t.Add(tag, text, true)
	}, func(t ut.Translator, fe validator.FieldError) string {
		var msg string
		if withParam {
			msg, _ = t.T(tag, fe.Field(), fe.Param())
		} else {
			msg, _ = t.T(tag, fe.Field())
		}
		return msg
	})
}

// Validate checks the `validate` tags of a struct.
func Validate(v any) error {
	lazyinit()
	return validate.Struct(v)
}

// TranslateError returns the first validation failure as a sentence, or
// err's own text for any other error.
func TranslateError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		lazyinit()
		return verrs[0].Translate(translator)
	}
	return err.Error()
}
