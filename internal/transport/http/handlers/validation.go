package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// fieldMessages carries the user-facing message per json field and rule.
var fieldMessages = map[string]map[string]string{
	"name": {
		"required": "Name is required",
		"min":      "Name must be at least 2 characters",
	},
	"email": {
		"required": "Email is required",
		"email":    "Invalid email address",
	},
	"password": {
		"required": "Password is required",
		"min":      "Password must be at least 8 characters",
	},
	"newPassword": {
		"required": "Password is required",
		"min":      "Password must be at least 8 characters",
	},
	"token": {
		"required": "Token is required",
	},
}

// bindJSON decodes the request body into dst and writes a field-level
// validation payload on failure. Returns false when the request was rejected.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			field := jsonFieldName(dst, fe.StructField())
			fields = append(fields, FieldError{
				Field:   field,
				Message: validationMessage(field, fe.Tag()),
			})
		}
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{Errors: fields})
		return false
	}

	c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Invalid request payload."))
	return false
}

func validationMessage(field, tag string) string {
	if byTag, ok := fieldMessages[field]; ok {
		if msg, ok := byTag[tag]; ok {
			return msg
		}
	}
	return "Invalid value"
}

func jsonFieldName(dst any, structField string) string {
	t := reflect.TypeOf(dst)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return strings.ToLower(structField)
	}

	if f, ok := t.FieldByName(structField); ok {
		tag := f.Tag.Get("json")
		if name, _, found := strings.Cut(tag, ","); found || tag != "" {
			if name != "" && name != "-" {
				return name
			}
		}
	}
	return strings.ToLower(structField)
}
