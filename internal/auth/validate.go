// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package auth

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Credential constraints.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxEmailLength    = 254
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validator returns the shared validator instance so transport layers apply
// the same rules to their input structs.
func Validator() *validator.Validate {
	return validate
}

// ValidateEmail checks an email address.
func ValidateEmail(email string) *Failure {
	if err := validate.Var(email, "required,max=254,email"); err != nil {
		return ValidationFailure(map[string]string{"email": "must be a valid email address"})
	}
	return nil
}

// ValidatePassword checks a new password.
func ValidatePassword(password string) *Failure {
	if err := validate.Var(password, "required,min=8,max=128"); err != nil {
		return ValidationFailure(map[string]string{"password": "must be between 8 and 128 characters"})
	}
	return nil
}

// ValidationFailureFrom converts validator errors on a struct into a
// validation Failure keyed by JSON field name. Non-validator errors become
// a single "body" entry.
func ValidationFailureFrom(err error) *Failure {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ValidationFailure(map[string]string{"body": "malformed request body"})
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describeRule(fe)
	}
	return ValidationFailure(fields)
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "ulid":
		return "must be a valid id"
	default:
		return "is invalid"
	}
}
