// Package validate runs the console's local form checks. Input that fails
// here never becomes a request.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"academydesk/internal/derive"
)

var (
	requiredText = "this field is required"

	classTimeTag  = "classtime"
	classTimeText = "{0} entries must look like Monday-04:00 PM"
	weekdayTag    = "weekday"
	weekdayText   = "{0} must be a day of the week"
	clockTag      = "clock"
	clockText     = "{0} must be a time such as 04:00 PM or 16:00"
)

// FieldError names one offending field by its JSON name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Fields []FieldError `json:"fields"`
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Fields builds an *Error from hand-written checks.
func Fields(fields ...FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return &Error{Fields: fields}
}

// As unwraps err into a validation *Error.
func As(err error) (*Error, bool) {
	var verr *Error
	ok := errors.As(err, &verr)
	return verr, ok
}

type Validator struct {
	v  *validator.Validate
	tr ut.Translator
}

func New() *Validator {
	_en := en.New()
	uni := ut.New(_en, _en)
	tr, _ := uni.GetTranslator("en")
	v := validator.New()
	_ = en_translations.RegisterDefaultTranslations(v, tr)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(classTimeTag, func(fl validator.FieldLevel) bool {
		return derive.ValidClassTime(fl.Field().String())
	})
	_ = v.RegisterValidation(weekdayTag, func(fl validator.FieldLevel) bool {
		_, ok := derive.ParseWeekday(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation(clockTag, func(fl validator.FieldLevel) bool {
		_, _, ok := derive.ParseClock(fl.Field().String())
		return ok
	})
	registerTranslation(v, tr, classTimeTag, classTimeText)
	registerTranslation(v, tr, weekdayTag, weekdayText)
	registerTranslation(v, tr, clockTag, clockText)
	registerTranslation(v, tr, "required", requiredText, true)
	return &Validator{v: v, tr: tr}
}

func registerTranslation(v *validator.Validate, tr ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = v.RegisterTranslation(
		tag, tr,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct checks s against its validate tags and returns an *Error listing
// every failing field, or nil.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fieldPath(fe), Message: fe.Translate(v.tr)})
	}
	return out
}

// fieldPath drops the struct name from the namespace, keeping JSON names
// and indexes such as class_times[1].
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}
