package validators

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	pkgerrors "github.com/JhnOkall/avenuefashion-backend/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds every JSON payload this API accepts. Checkout
// submissions are small; anything near this limit is garbage.
const maxBodyBytes = 1 << 20

var validate = func() *validator.Validate {
	v := validator.New()
	// Report field errors under their json names so the storefront can
	// attach them to form inputs directly.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}()

// DecodeJSONBody decodes a request body into dest, rejecting unknown
// fields, and runs the struct's validate tags. All failures come back as
// validation errors with per-field details.
func DecodeJSONBody(r *http.Request, dest any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer func() {
		io.Copy(io.Discard, body)
	}()

	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").
			WithDetails(map[string]any{"error": err.Error()})
	}
	if err := validate.Struct(dest); err != nil {
		return asValidationError(err)
	}
	return nil
}

func asValidationError(err error) *pkgerrors.Error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		details[fieldErr.Field()] = fieldMessage(fieldErr)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "uuid":
		return "must be a valid uuid"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	}
	return "is invalid"
}
