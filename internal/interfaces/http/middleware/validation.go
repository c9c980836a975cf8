package middleware

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/erpsync/backend/internal/domain/connector"
	"github.com/erpsync/backend/internal/domain/sync"
	"github.com/erpsync/backend/internal/interfaces/http/dto"
)

// SetupValidator registers the custom binding validators and JSON field
// naming. Call once before routes are registered.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	_ = v.RegisterValidation("erpsystem", func(fl validator.FieldLevel) bool {
		return connector.ERPSystem(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("entitytype", func(fl validator.FieldLevel) bool {
		return connector.EntityType(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("syncdirection", func(fl validator.FieldLevel) bool {
		return sync.Direction(fl.Field().String()).IsValid()
	})
}

// HandleValidationError renders a binding failure as a 400 envelope
func HandleValidationError(c *gin.Context, err error) {
	message := "Request validation failed"
	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		e := validationErrors[0]
		message = "Request validation failed: " + e.Field() + " " + validationMessage(e)
	}
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse("VALIDATION_ERROR", message))
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "erpsystem":
		return "must be a supported ERP system"
	case "entitytype":
		return "must be a syncable entity type"
	case "syncdirection":
		return "must be import, export or bidirectional"
	default:
		return "is invalid"
	}
}
