package user

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"user_api/internal/apperror"

	"github.com/go-playground/validator/v10"
)

// UserRequest is the body of POST and PUT /api/users.
// Optional fields are pointers so an absent key can be told apart from "".
type UserRequest struct {
	UserName      string  `json:"userName" validate:"required"`
	UserFirstName *string `json:"userFirstName" validate:"omitnil,min=1"`
	UserLastName  *string `json:"userLastName" validate:"omitnil,min=1"`
	UserPassword  *string `json:"userPassword" validate:"omitnil,min=1"`
}

type LoginRequest struct {
	UserName     string `json:"userName" validate:"required"`
	UserPassword string `json:"userPassword" validate:"required"`
}

const msgNotObject = `"value" must be an object`

var (
	validate = validator.New(validator.WithRequiredStructEnabled())

	errNotObject = errors.New("body is not a single JSON object")
)

// rawObject is a JSON object with its keys in body order.
type rawObject struct {
	keys   []string
	values map[string]json.RawMessage
}

// DecodeAndValidate decodes body into dst, a pointer to a request struct.
// Fields are checked one at a time in declaration order and unknown keys
// only after that, so the reported violation does not depend on key order
// in the body. Only the first violation is reported.
func DecodeAndValidate(body []byte, dst interface{}) error {
	obj, err := decodeObject(body)
	if err != nil {
		return apperror.Validation(msgNotObject)
	}

	rv := reflect.ValueOf(dst).Elem()
	rt := rv.Type()
	known := make(map[string]bool, rt.NumField())

	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		name := jsonName(sf)
		if name == "" {
			continue
		}
		known[name] = true

		raw, present := obj.values[name]
		if present {
			if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
				return apperror.Validation(fmt.Sprintf("%q must be a string", name))
			}
			if err := json.Unmarshal(raw, rv.Field(i).Addr().Interface()); err != nil {
				return apperror.Validation(fmt.Sprintf("%q must be a string", name))
			}
		}

		tag := sf.Tag.Get("validate")
		if tag == "" {
			continue
		}
		if err := validate.Var(rv.Field(i).Interface(), tag); err != nil {
			return apperror.Validation(ruleMessage(name, present, err))
		}
	}

	for _, key := range obj.keys {
		if !known[key] {
			return apperror.Validation(fmt.Sprintf("%q is not allowed", key))
		}
	}
	return nil
}

// decodeObject reads exactly one JSON object. A repeated key keeps its last value.
func decodeObject(body []byte) (*rawObject, error) {
	dec := json.NewDecoder(bytes.NewReader(body))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errNotObject
	}

	obj := &rawObject{values: map[string]json.RawMessage{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errNotObject
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		if _, seen := obj.values[key]; !seen {
			obj.keys = append(obj.keys, key)
		}
		obj.values[key] = raw
	}

	// closing brace, then nothing else
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errNotObject
	}
	return obj, nil
}

func jsonName(sf reflect.StructField) string {
	name := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return sf.Name
	}
	return name
}

func ruleMessage(name string, present bool, err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Sprintf("%q is invalid", name)
	}

	switch verrs[0].Tag() {
	case "required":
		if present {
			return fmt.Sprintf("%q is not allowed to be empty", name)
		}
		return fmt.Sprintf("%q is required", name)
	case "min":
		return fmt.Sprintf("%q is not allowed to be empty", name)
	default:
		return fmt.Sprintf("%q failed on the %q rule", name, verrs[0].Tag())
	}
}
