// handlers/common.go
package handlers

import (
	"errors"
	"strings"

	"raid-dashboard/apperrors"
	"raid-dashboard/logger"
	"raid-dashboard/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindNotFound:
		return fiber.StatusNotFound
	case apperrors.KindInvalid:
		return fiber.StatusBadRequest
	case apperrors.KindInsufficientPoints:
		return fiber.StatusUnprocessableEntity
	case apperrors.KindConflict:
		return fiber.StatusConflict
	case apperrors.KindUpstream:
		return fiber.StatusBadGateway
	case apperrors.KindUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError renders err as {"error", "code"[, "cause"]}. Internal causes
// are logged, not returned.
func respondError(c *fiber.Ctx, err error) error {
	kind := apperrors.KindOf(err)
	status := statusFor(kind)

	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}

	body := fiber.Map{"error": msg, "code": kind}
	if status >= fiber.StatusInternalServerError {
		logger.Errorf("[HTTP] %s %s: %v", c.Method(), c.Path(), err)
		if kind == apperrors.KindInternal {
			body["error"] = "internal error"
		}
	} else if appErr != nil && appErr.Err != nil && kind != apperrors.KindConflict {
		body["cause"] = appErr.Err.Error()
	}
	return c.Status(status).JSON(body)
}

// validationFailed returns 400 with a field -> failed tag map.
func validationFailed(c *fiber.Ctx, err error) error {
	fields := fiber.Map{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[strings.ToLower(fe.Field())] = fe.Tag()
		}
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  "validation failed",
		"fields": fields,
	})
}

// parseAndValidate decodes the JSON body into dst and runs struct validation.
// It writes the 400 response itself and reports whether the caller may go on.
func parseAndValidate(c *fiber.Ctx, dst interface{}) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(dst); err != nil {
		return false, validationFailed(c, err)
	}
	return true, nil
}

func currentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals(middleware.LocalUserID).(string)
	return id
}

func currentUserEmail(c *fiber.Ctx) string {
	email, _ := c.Locals(middleware.LocalUserEmail).(string)
	return email
}
