package project

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	notBlankTag = "notblank"
)

func init() {
	validate = validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report JSON field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		if str, ok := fl.Field().Interface().(string); ok {
			return strings.TrimSpace(str) != ""
		}
		return false
	})
	_ = validate.RegisterTranslation(notBlankTag, translator,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string {
			return fe.Field() + " cannot be blank"
		})
}

// ValidationError lists the fields that failed validation, keyed by JSON
// field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, e.Fields[name])
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Credentials are the login form fields.
type Credentials struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

// Registration is the sign-up form. New accounts are always students.
type Registration struct {
	Username string `json:"username" validate:"notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// NewSubmission is the project proposal form.
type NewSubmission struct {
	Title        string `json:"title" validate:"notblank"`
	AbstractText string `json:"abstract_text" validate:"notblank"`
	AbstractFile string `json:"abstract_file,omitempty" validate:"omitempty,file"`
	AudioFile    string `json:"audio_file,omitempty" validate:"omitempty,file"`
}

// ProgressUpdate is the student progress form.
type ProgressUpdate struct {
	Progress int `json:"progress" validate:"gte=0,lte=100"`
}

// Validate checks form against its validation tags.
func Validate(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	verr := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		verr.Fields[fe.Field()] = fe.Translate(translator)
	}
	return verr
}

// ParseProgress converts raw progress input into a validated update.
// Fractional values within 0 to 100 are rounded to the nearest percent.
func ParseProgress(raw string) (ProgressUpdate, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ProgressUpdate{}, ErrInvalidInput
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return ProgressUpdate{}, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, raw)
	}
	if math.IsNaN(f) || f < 0 || f > 100 {
		return ProgressUpdate{}, fmt.Errorf("%w: %q is out of range", ErrInvalidInput, raw)
	}
	// The backend stores whole percentages.
	update := ProgressUpdate{Progress: int(math.Round(f))}
	if err := Validate(update); err != nil {
		return ProgressUpdate{}, err
	}
	return update, nil
}

// ParseID converts a route or action argument into a positive identifier.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return id, nil
}
