package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "metrolog/internal/errors"
	"metrolog/internal/registry"
)

// Validator decodes and validates request DTOs using struct tags
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that reports JSON field names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("slot", isSlot)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// Struct validates v and returns an APIError listing every failing field.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	fields := make([]apierrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apierrors.FieldError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewFieldErrors(fields)
}

// DecodeJSON reads a JSON body into dst, rejecting unknown fields, and
// validates it.
func (v *Validator) DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return apierrors.ErrInvalidRequest
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apierrors.ErrPayloadTooLarge
		case errors.Is(err, io.EOF):
			return apierrors.New(http.StatusBadRequest, "INVALID_JSON", "Request body is empty")
		default:
			return apierrors.NewWithDetails(http.StatusBadRequest, "INVALID_JSON",
				"Request body contains invalid JSON", err.Error())
		}
	}
	return v.Struct(dst)
}

// IsJSON reports whether the request declares a JSON body.
func IsJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// ContentTypeValidator ensures requests have proper content type
func ContentTypeValidator(errorHandler *apierrors.ErrorHandler, contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete || r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil {
				errorHandler.HandleError(w, r, apierrors.New(http.StatusUnsupportedMediaType,
					"UNSUPPORTED_MEDIA_TYPE", "Content-Type header is required"))
				return
			}
			for _, allowed := range contentTypes {
				if mt == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}

			errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusUnsupportedMediaType,
				"UNSUPPORTED_MEDIA_TYPE",
				"Unsupported content type",
				map[string]interface{}{"content_type": mt, "allowed": contentTypes},
			))
		})
	}
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates", field)
	case "slot":
		return fmt.Sprintf("%s must look like ANG<k>", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

func isSlot(fl validator.FieldLevel) bool {
	_, _, err := registry.ParseSlot(fl.Field().String())
	return err == nil
}

// Query parameter helpers. They return validation errors the error handler
// maps to 400.

// QueryFloat parses an optional float query parameter within [min, max].
func QueryFloat(r *http.Request, param string, min, max, def float64) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(param))
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil {
		return 0, apierrors.ErrValidation(param, fmt.Sprintf("%s must be a number", param))
	}
	if f < min || f > max {
		return 0, apierrors.ErrValidation(param, fmt.Sprintf("%s must be between %g and %g", param, min, max))
	}
	return f, nil
}

// QueryBool parses an optional boolean query parameter.
func QueryBool(r *http.Request, param string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(param))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apierrors.ErrValidation(param, fmt.Sprintf("%s must be true or false", param))
	}
	return b, nil
}

// QueryOptional returns a pointer to a present query parameter, nil when absent.
// A present but empty value selects the empty string.
func QueryOptional(r *http.Request, param string) *string {
	values, ok := r.URL.Query()[param]
	if !ok || len(values) == 0 {
		return nil
	}
	v := strings.TrimSpace(values[0])
	return &v
}
