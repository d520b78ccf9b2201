package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"essay-tutor-backend/internal/apierr"
	"essay-tutor-backend/utilities"
)

const (
	invalidRequest = "Invalid request"
	internalError  = "Internal server error"
)

func init() {
	// Report validation failures under the JSON field names clients send.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

type validationIssues struct {
	FormErrors  []string            `json:"formErrors"`
	FieldErrors map[string][]string `json:"fieldErrors"`
}

type validationBody struct {
	Message string           `json:"message"`
	Issues  validationIssues `json:"issues"`
}

// respondError writes domain errors with their own status and message. Any
// other error is logged and hidden behind a generic 500.
func respondError(c *gin.Context, log *utilities.Logger, err error) {
	if apiErr, ok := apierr.As(err); ok {
		body := gin.H{"message": apiErr.Error()}
		if apiErr.Status == http.StatusServiceUnavailable {
			body["code"] = apiErr.Code
		}
		c.JSON(apiErr.Status, body)
		return
	}
	log.Error("request failed",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"error", err,
	)
	c.JSON(http.StatusInternalServerError, gin.H{"message": internalError})
}

// respondInvalid reports a request that failed binding or validation.
func respondInvalid(c *gin.Context, err error) {
	issues := validationIssues{FormErrors: []string{}, FieldErrors: map[string][]string{}}

	var verrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			issues.FieldErrors[fe.Field()] = append(issues.FieldErrors[fe.Field()], fieldMessage(fe))
		}
	} else if errors.As(err, &typeErr) && typeErr.Field != "" {
		issues.FieldErrors[typeErr.Field] = []string{typeMessage(typeErr)}
	} else {
		issues.FormErrors = append(issues.FormErrors, err.Error())
	}
	c.JSON(http.StatusBadRequest, validationBody{Message: invalidRequest, Issues: issues})
}

func respondInvalidField(c *gin.Context, field, msg string) {
	c.JSON(http.StatusBadRequest, validationBody{
		Message: invalidRequest,
		Issues: validationIssues{
			FormErrors:  []string{},
			FieldErrors: map[string][]string{field: {msg}},
		},
	})
}

// typeMessage describes a JSON value whose type does not fit the target field.
func typeMessage(e *json.UnmarshalTypeError) string {
	expected := e.Type.Kind().String()
	switch e.Type.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		expected = "integer"
	case reflect.Float32, reflect.Float64:
		expected = "number"
	case reflect.Bool:
		expected = "boolean"
	case reflect.Slice, reflect.Array:
		expected = "array"
	case reflect.Map, reflect.Struct:
		expected = "object"
	}
	received, _, _ := strings.Cut(e.Value, " ")
	return fmt.Sprintf("Expected %s, received %s", expected, received)
}

func fieldMessage(fe validator.FieldError) string {
	numeric := false
	switch fe.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Float32, reflect.Float64:
		numeric = true
	}

	switch fe.Tag() {
	case "required":
		return "Required"
	case "email":
		return "Invalid email"
	case "oneof":
		opts := strings.Fields(fe.Param())
		return fmt.Sprintf("Invalid enum value. Expected '%s'", strings.Join(opts, "' | '"))
	case "min":
		if numeric {
			return "Number must be greater than or equal to " + fe.Param()
		}
		return fmt.Sprintf("String must contain at least %s character(s)", fe.Param())
	case "max":
		if numeric {
			return "Number must be less than or equal to " + fe.Param()
		}
		return fmt.Sprintf("String must contain at most %s character(s)", fe.Param())
	default:
		return "Invalid value"
	}
}
