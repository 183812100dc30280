package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

var validatorOnce sync.Once

// setupValidator makes validator report fields by their json tag, so the
// paths in error details match what the client sent, and registers the
// storefront-specific rules:
//
//	maxbytes=N   string is at most N bytes (bcrypt reads 72)
//	trimmin=N    string has at least N characters once trimmed
func setupValidator() {
	validatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(sf reflect.StructField) string {
			name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
			switch name {
			case "-":
				return ""
			case "":
				return sf.Name
			default:
				return name
			}
		})
		_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
			n, err := strconv.Atoi(fl.Param())
			return err == nil && len(fl.Field().String()) <= n
		})
		_ = v.RegisterValidation("trimmin", func(fl validator.FieldLevel) bool {
			n, err := strconv.Atoi(fl.Param())
			return err == nil && utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= n
		})
	})
}

// BindJSON decodes and validates the request body into out. On failure it
// writes the error response and returns false.
func BindJSON(ctx *gin.Context, out any) bool {
	setupValidator()

	err := ctx.ShouldBindJSON(out)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		RespondError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large", gin.H{"limit": tooLarge.Limit})
	case errors.Is(err, io.EOF):
		RespondBadRequest(ctx, "Request body is required", nil)
	default:
		RespondBadRequest(ctx, "Invalid request body", bindErrorDetails(err))
	}

	return false
}

func bindErrorDetails(err error) gin.H {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   fieldPath(fe),
				Rule:    fe.Tag(),
				Param:   fe.Param(),
				Message: validationMessage(fe.Tag(), fe.Param()),
			})
		}
		return gin.H{"fields": fields}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := strings.TrimSpace(typeErr.Field)
		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{{
				Field:   field,
				Rule:    "type",
				Message: "must be of type " + jsonKind(typeErr.Type),
			}},
		}
	}

	return gin.H{"reason": err.Error()}
}

// fieldPath drops the root struct name from the validator namespace,
// e.g. "CreateProductRequest.price" -> "price".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok && rest != "" {
		return rest
	}
	return fe.Field()
}

func jsonKind(t reflect.Type) string {
	if t == nil {
		return "unknown"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return t.String()
	}
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url", "http_url":
		return "must be a valid URL"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "maxbytes":
		return "must be at most " + param + " bytes"
	case "trimmin":
		return "must be at least " + param + " characters, ignoring surrounding spaces"
	case "len":
		return "must be exactly " + param
	case "gte":
		return "must be greater than or equal to " + param
	case "lte":
		return "must be less than or equal to " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	}

	if param != "" {
		return fmt.Sprintf("failed %s validation (%s)", rule, param)
	}
	return "failed " + rule + " validation"
}
