// Package validate runs declarative field rules against decoded request
// payloads.
//
// Rules live on the request struct as `validate:"..."` tags (go-playground
// syntax) and the message shown to the client lives next to them in a
// `msg:"..."` tag:
//
//	type registerRequest struct {
//	    Email string `json:"email" validate:"required,email" msg:"Please include a valid email"`
//	}
//
// A field with more than one rule can give a rule its own message with a
// `msg_<rule>:"..."` tag; `msg` stays the fallback for the others:
//
//	Password string `validate:"min=6,maxbytes=72" msg:"..." msg_maxbytes:"..."`
//
// Every violated rule is reported, not just the first one.
//
// CUSTOM RULES
//
//	notblank     string is not empty after trimming whitespace
//	maxbytes=N   string is at most N bytes long (max=N counts runes)
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/devconnect/internal/apperror"
)

// Validator wraps a configured *validator.Validate. It is safe for
// concurrent use and caches struct metadata, so build one and share it.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator that reports JSON field names.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	// notblank rejects strings that are only whitespace.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	// maxbytes bounds the encoded length, which is what bcrypt limits.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= n
	})

	return &Validator{v: v}
}

// Struct validates s and returns nil or an *apperror.AppError wrapping
// apperror.ErrValidation whose Fields list every violation in declaration order.
func (val *Validator) Struct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}

	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	fields := make([]apperror.FieldError, 0, len(verrs))
	seen := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		if seen[fe.Field()] {
			continue
		}
		seen[fe.Field()] = true
		fields = append(fields, apperror.FieldError{
			Field:   fe.Field(),
			Message: message(t, fe),
		})
	}

	return apperror.Invalid(fields)
}

func message(t reflect.Type, fe validator.FieldError) string {
	if t.Kind() == reflect.Struct {
		if sf, ok := t.FieldByName(fe.StructField()); ok {
			if msg := sf.Tag.Get("msg_" + fe.Tag()); msg != "" {
				return msg
			}
			if msg := sf.Tag.Get("msg"); msg != "" {
				return msg
			}
		}
	}

	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes", fe.Field(), fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
