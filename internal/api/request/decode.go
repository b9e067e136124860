package request

import (
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mcoot/gamehub/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names rather than Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Op extracts the op name of a raw request
func Op(raw []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", err
	}
	return env.Op, nil
}

// Decode unmarshals raw into v and checks its validate tags. Problems are
// reported as *model.FieldError.
func Decode(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &model.FieldError{Field: typeErr.Field}
		}
		return &model.FieldError{}
	}

	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &model.FieldError{Field: verrs[0].Field()}
		}
		return err
	}
	return nil
}

// Int parses an optional integer field sent as a number or a numeric
// string. Absent and null fields yield ok == false.
func Int(raw json.RawMessage, field string) (n int, ok bool, err error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false, nil
	}

	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false, &model.FieldError{Field: field}
		}
	} else {
		s = string(raw)
	}

	n, err = strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false, &model.FieldError{Field: field}
	}
	return n, true, nil
}
