// Package apperr defines the error taxonomy shared by services and the HTTP
// layer. Services return *Error values (possibly wrapped); handlers turn them
// into status codes with Respond.
package apperr

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

type Code string

const (
	InvalidArgument Code = "INVALID_ARGUMENT"
	Unauthorized    Code = "UNAUTHORIZED"
	Forbidden       Code = "FORBIDDEN"
	NotFound        Code = "NOT_FOUND"
	Conflict        Code = "CONFLICT"
	RateLimited     Code = "RATE_LIMITED"
	Unavailable     Code = "UNAVAILABLE"
	Unknown         Code = "UNKNOWN"
)

const genericMessage = "Internal server error"

type Error struct {
	Code    Code
	Message string
	Origin  error
}

func (e *Error) Error() string {
	if e.Origin != nil {
		return e.Message + ": " + e.Origin.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Origin
}

// Is matches another *Error by code, so errors.Is(err, apperr.E(NotFound, ""))
// style checks work.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, message string, origin error) *Error {
	return &Error{Code: code, Message: message, Origin: origin}
}

func Invalid(message string) *Error { return New(InvalidArgument, message) }

func NotFoundf(format string, args ...interface{}) *Error { return Newf(NotFound, format, args...) }

// CodeOf returns the code of the first *Error in err's chain, or Unknown.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Unknown
}

// IsCode reports whether err carries code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// HTTPStatus maps a code to its HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case InvalidArgument:
		return fiber.StatusBadRequest
	case Unauthorized:
		return fiber.StatusUnauthorized
	case Forbidden:
		return fiber.StatusForbidden
	case NotFound:
		return fiber.StatusNotFound
	case Conflict:
		return fiber.StatusConflict
	case RateLimited:
		return fiber.StatusTooManyRequests
	case Unavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// Respond writes the {"error": true, "message": ...} envelope for err.
// Server-side failures are logged with action and user_id and answered with
// a generic message.
func Respond(c *fiber.Ctx, err error, action string) error {
	status := HTTPStatus(CodeOf(err))
	message := genericMessage

	var e *Error
	if errors.As(err, &e) && status < fiber.StatusInternalServerError {
		message = e.Message
	}
	if status >= fiber.StatusInternalServerError {
		slog.ErrorContext(c.UserContext(), "request failed",
			"action", action,
			"user_id", c.Locals("user_id"),
			"path", c.Path(),
			"error", err,
		)
		if status == fiber.StatusServiceUnavailable && e != nil {
			message = e.Message
		}
	}

	return c.Status(status).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
