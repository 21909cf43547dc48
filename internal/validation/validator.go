// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/proctorlens/internal/models"
)

const (
	MinTokenLength = 8
	MaxTokenLength = 128
)

// ErrorCodeValidation is the API error code for rejected input.
const ErrorCodeValidation = "VALIDATION_ERROR"

// ValidationError describes one failed constraint.
type ValidationError struct {
	field   string
	tag     string
	param   string
	value   any
	message string
}

func (e *ValidationError) Field() string { return e.field }
func (e *ValidationError) Tag() string { return e.tag }
func (e *ValidationError) Param() string { return e.param }
func (e *ValidationError) Value() any { return e.value }
func (e *ValidationError) Error() string { return e.message }

// RequestValidationError collects every failed constraint of one input.
type RequestValidationError struct {
	errors []ValidationError
}

func (ve *RequestValidationError) Errors() []ValidationError { return ve.errors }

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	return strings.Join(ve.messages(), "; ")
}

func (ve *RequestValidationError) messages() []string {
	out := make([]string, len(ve.errors))
	for i := range ve.errors {
		out[i] = ve.errors[i].message
	}
	return out
}

// ToAPIError renders the collection for the response envelope. A single
// failure puts field and tag directly in the details; several are listed
// under "fields".
func (ve *RequestValidationError) ToAPIError() *models.APIError {
	apiErr := &models.APIError{Code: ErrorCodeValidation, Message: "Validation failed"}

	switch len(ve.errors) {
	case 0:
	case 1:
		e := ve.errors[0]
		apiErr.Message = e.message
		apiErr.Details = map[string]interface{}{"field": e.field, "tag": e.tag}
	default:
		fields := make([]map[string]interface{}, 0, len(ve.errors))
		for _, e := range ve.errors {
			fields = append(fields, map[string]interface{}{
				"field":   e.field,
				"tag":     e.tag,
				"message": e.message,
			})
		}
		apiErr.Message = ve.Error()
		apiErr.Details = map[string]interface{}{"fields": fields}
	}
	return apiErr
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// GetValidator returns the shared validator with the custom tags registered.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("session_token", validateSessionToken)
	})
	return validate
}

// ValidateStruct returns nil when s satisfies its validate tags.
func ValidateStruct(s any) *RequestValidationError {
	return fromValidator(GetValidator().Struct(s))
}

// ValidateVar checks a single value and reports failures under field.
func ValidateVar(field string, value any, tag string) *RequestValidationError {
	verr := fromValidator(GetValidator().Var(value, tag))
	if verr == nil {
		return nil
	}
	for i := range verr.errors {
		e := &verr.errors[i]
		e.field = field
		e.message = describe(field, e.tag, e.param, e.value)
	}
	return verr
}

// ValidateSessionToken checks a session token taken from a URL path.
func ValidateSessionToken(token string) *RequestValidationError {
	return ValidateVar("token", token, "required,session_token")
}

func fromValidator(err error) *RequestValidationError {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestValidationError{errors: []ValidationError{{
			field: "unknown", tag: "unknown", message: err.Error(),
		}}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := fieldName(fe)
		out = append(out, ValidationError{
			field:   name,
			tag:     fe.Tag(),
			param:   fe.Param(),
			value:   fe.Value(),
			message: describe(name, fe.Tag(), fe.Param(), fe.Value()),
		})
	}
	return &RequestValidationError{errors: out}
}

// fieldName strips the root struct from the namespace, so nested config
// errors read "Inference.URL".
func fieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	if ns != "" {
		return ns
	}
	if fe.Field() != "" {
		return fe.Field()
	}
	return "value"
}

// session tokens are URL-path safe: RFC 3986 unreserved characters only.
func validateSessionToken(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) < MinTokenLength || len(s) > MaxTokenLength {
		return false
	}
	for _, c := range []byte(s) {
		if !isUnreserved(c) {
			return false
		}
	}
	return true
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return c == '-' || c == '_' || c == '.' || c == '~'
}

var messages = map[string]string{
	"required":      "%[1]s is required",
	"url":           "%[1]s must be a valid URL",
	"http_url":      "%[1]s must be a valid http or https URL",
	"hostname_port": "%[1]s must be host:port",
	"dir":           "%[1]s must be an existing directory",
	"session_token": "%[1]s must be 8-128 characters of letters, digits, '-', '_', '.' or '~'",
	"oneof":         "%[1]s must be one of: %[2]s",
	"gte":           "%[1]s must be greater than or equal to %[2]s",
	"lte":           "%[1]s must be less than or equal to %[2]s",
	"gt":            "%[1]s must be greater than %[2]s",
	"lt":            "%[1]s must be less than %[2]s",
	"gtefield":      "%[1]s must be greater than or equal to %[2]s",
	"required_if":   "%[1]s is required when %[2]s",
	"required_with": "%[1]s is required together with %[2]s",
	"excluded_with": "%[1]s cannot be combined with %[2]s",
}

func describe(field, tag, param string, value any) string {
	if msg, ok := messages[tag]; ok {
		return fmt.Sprintf(msg, field, param)
	}

	unit := ""
	if _, ok := value.(string); ok {
		unit = " characters"
	}
	switch tag {
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", field, param, unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", field, param, unit)
	}
	return fmt.Sprintf("%s failed %s validation", field, tag)
}
