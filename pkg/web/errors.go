package web

import (
	"github.com/gofiber/fiber/v3"

	"github.com/runcept/runcept/pkg/services"
)

// Error codes carried in the response envelope. Script SDKs switch on
// these, so they are part of the wire contract.
const (
	CodeUnauthenticated = "unauthenticated"
	CodeUnauthorized    = "unauthorized"
	CodeInvalidRequest  = "invalid_request"
	CodeNotFound        = "not_found"
	CodeRateLimited     = "rate_limited"
	CodeUnavailable     = "unavailable"
	CodeInternal        = "internal_error"
)

func success(c fiber.Ctx, data any) error {
	return c.JSON(Response{Success: true, Data: data})
}

func failure(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(Response{Success: false, Error: code, Message: message})
}

func unauthenticated(c fiber.Ctx, message string) error {
	return failure(c, fiber.StatusUnauthorized, CodeUnauthenticated, message)
}

func unauthorized(c fiber.Ctx, message string) error {
	return failure(c, fiber.StatusForbidden, CodeUnauthorized, message)
}

func badRequest(c fiber.Ctx, message string) error {
	return failure(c, fiber.StatusBadRequest, CodeInvalidRequest, message)
}

func notFound(c fiber.Ctx, message string) error {
	return failure(c, fiber.StatusNotFound, CodeNotFound, message)
}

// handleServiceError maps service layer errors onto the envelope. Internal
// detail never leaks to the sandbox.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsNotFound(err):
		return notFound(c, "No value stored for this execution")
	case services.IsInvalidAction(err):
		return badRequest(c, err.Error())
	case services.IsUnavailable(err):
		return failure(c, fiber.StatusServiceUnavailable, CodeUnavailable, "A backing service is unavailable")
	default:
		return failure(c, fiber.StatusInternalServerError, CodeInternal, "Internal error")
	}
}
