package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/dealercrm-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
	"github.com/angelmondragon/dealercrm-backend/pkg/visibility"
)

const maxBodyBytes = 1 << 20

// enumTags back the custom `role` and `lead_status` tags. Input is trimmed
// the same way the services trim it before parsing.
var enumTags = map[string]func(string) error{
	"role": func(v string) error {
		_, err := enums.ParseRole(v)
		return err
	},
	"lead_status": func(v string) error {
		_, err := enums.ParseLeadStatus(v)
		return err
	},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return visibility.ValidSlug(fl.Field().String())
	})
	for tag, parse := range enumTags {
		parse := parse
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return parse(strings.TrimSpace(fl.Field().String())) == nil
		})
	}
	return v
}

// DecodeJSONBody reads at most 1 MiB of a single JSON object into dest and
// validates it. Unknown fields and trailing data are rejected.
func DecodeJSONBody(r *http.Request, dest any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return decodeError(err)
	}
	if decoder.More() {
		return pkgerrors.New(pkgerrors.CodeValidation, "request body must contain a single JSON object")
	}
	if err := validate.Struct(dest); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func decodeError(err error) *pkgerrors.Error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").WithDetails(map[string]string{
			typeErr.Field: fmt.Sprintf("must be of type %s", typeErr.Type.Kind()),
		})
	}
	if errors.Is(err, io.EOF) {
		return pkgerrors.New(pkgerrors.CodeValidation, "request body is required")
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").WithDetails(map[string]any{"error": err.Error()})
}

func formatValidationErrors(err error) *pkgerrors.Error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		details[fieldPath(fieldErr)] = validationMessage(fieldErr)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

// fieldPath drops the root struct name: "body.resource.type" -> "resource.type".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
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
		return "must be a uuid"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "slug":
		return "must be lowercase letters, digits and hyphens"
	case "role":
		return "must be a known role"
	case "lead_status":
		return "must be one of [new set show close]"
	}
	return "is invalid"
}
