// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	businessflow "github.com/amirphl/lead-manager/business_flow"
	"github.com/amirphl/lead-manager/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

// phonePattern accepts numbers such as "(11) 9 9999-9999"
var phonePattern = regexp.MustCompile(`^\(\d{2}\)\s\d\s\d{4}-\d{4}$`)

// newValidator returns a validator that reports JSON field names and knows
// the custom lead tags
func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	// Register custom validation for phone format
	_ = v.RegisterValidation("phone_format", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	return v
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "required_if":
		return err.Field() + " is required when " + strings.Replace(strings.ToLower(err.Param()), " ", " is ", 1)
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "phone_format":
		return err.Field() + " must be in format (XX) X XXXX-XXXX"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// validationMessages flattens validator output into client-facing messages
func validationMessages(err error) []string {
	var messages []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			messages = append(messages, getValidationErrorMessage(fe))
		}
		return messages
	}
	return append(messages, err.Error())
}

// createRequestContext derives a bounded context carrying the request id.
// Callers must invoke the returned cancel func.
func createRequestContext(c fiber.Ctx) (context.Context, context.CancelFunc) {
	return createRequestContextWithTimeout(c, utils.DefaultRequestTimeout)
}

func createRequestContextWithTimeout(c fiber.Ctx, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.Context(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestid.FromContext(c))
	return ctx, cancel
}

// clientMetadata collects caller details used by the audit trail
func clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(requestid.FromContext(c))
	if subject, ok := c.Locals(utils.SubjectLocalKey).(string); ok {
		metadata.SetSubject(subject)
	}
	return metadata
}
