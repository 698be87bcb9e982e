package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator is shared by all handlers. Field names in errors use json tags.
var Validator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DetailItem is one entry of a validation error payload.
type DetailItem struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationResponse is the 422 body: {"detail":[{"loc":[...],"msg":..,"type":..}]}.
type ValidationResponse struct {
	Detail []DetailItem `json:"detail"`
}

// ErrTrailingData is returned when the body holds more than one JSON value.
var ErrTrailingData = errors.New("unexpected data after JSON body")

// DecodeJSON reads exactly one JSON value from the request body into dst and
// runs struct validation on it.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return ErrTrailingData
	}
	return Validator.Struct(dst)
}

// WriteDecodeError maps an error returned by DecodeJSON onto a response:
// oversized bodies get 413 and every other body failure 422.
func WriteDecodeError(log *slog.Logger, w http.ResponseWriter, err error) {
	var (
		maxBytes   *http.MaxBytesError
		syntaxErr  *json.SyntaxError
		typeErr    *json.UnmarshalTypeError
		validation validator.ValidationErrors
	)
	switch {
	case errors.As(err, &maxBytes):
		Fail(log, w, fmt.Sprintf("request body too large (max %d bytes)", maxBytes.Limit), err, http.StatusRequestEntityTooLarge)
	case errors.Is(err, io.EOF):
		writeValidation(log, w, err, DetailItem{Loc: []string{"body"}, Msg: "Field required", Type: "missing"})
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, ErrTrailingData):
		writeValidation(log, w, err, DetailItem{Loc: []string{"body"}, Msg: "JSON decode error", Type: "json_invalid"})
	case errors.As(err, &typeErr):
		writeValidation(log, w, err, typeErrorDetail(typeErr))
	case errors.As(err, &validation):
		ValidationError(log, w, validation)
	default:
		Fail(log, w, "invalid payload", err, http.StatusBadRequest)
	}
}

// ValidationError writes a 422 describing every failed field.
func ValidationError(log *slog.Logger, w http.ResponseWriter, errs validator.ValidationErrors) {
	items := make([]DetailItem, 0, len(errs))
	for _, fe := range errs {
		item := DetailItem{Loc: []string{"body", fe.Field()}, Type: fe.Tag()}
		switch fe.Tag() {
		case "required":
			item.Msg = "Field required"
			item.Type = "missing"
		case "max":
			item.Msg = fmt.Sprintf("Value should have at most %s items", fe.Param())
		default:
			item.Msg = fmt.Sprintf("Failed on the '%s' rule", fe.Tag())
		}
		items = append(items, item)
	}
	writeValidation(log, w, errs, items...)
}

func typeErrorDetail(err *json.UnmarshalTypeError) DetailItem {
	if err.Field == "" {
		return DetailItem{Loc: []string{"body"}, Msg: "Input should be a valid object", Type: "model_attributes_type"}
	}
	loc := append([]string{"body"}, strings.Split(err.Field, ".")...)
	typ := err.Type
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	want := typ.Kind().String()
	return DetailItem{
		Loc:  loc,
		Msg:  fmt.Sprintf("Input should be a valid %s", want),
		Type: want + "_type",
	}
}

func writeValidation(log *slog.Logger, w http.ResponseWriter, err error, items ...DetailItem) {
	log.Warn("validation failed", "err", err)
	WriteJSON(w, http.StatusUnprocessableEntity, ValidationResponse{Detail: items})
}
