package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/runcept/runcept/pkg/models"
	"github.com/runcept/runcept/pkg/services"
)

type RuntimeHandlers struct {
	runtime   *services.Runtime
	validator *validator.Validate
}

func NewRuntimeHandlers(runtime *services.Runtime, validator *validator.Validate) *RuntimeHandlers {
	return &RuntimeHandlers{
		runtime:   runtime,
		validator: validator,
	}
}

// authorize cross-checks the path execution ID against the token claims.
// A mismatch is always Unauthorized, never NotFound: the caller must not
// learn whether the other execution exists.
func (h *RuntimeHandlers) authorize(c fiber.Ctx) (*models.Claims, error) {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return nil, unauthenticated(c, "Missing execution token")
	}

	if id := c.Params("id"); id != claims.ExecutionID {
		return nil, unauthorized(c, "Token is not valid for this execution")
	}

	return claims, nil
}

func (h *RuntimeHandlers) GetInput(c fiber.Ctx) error {
	claims, err := h.authorize(c)
	if err != nil {
		return err
	}

	input, err := h.runtime.GetInput(c.Context(), claims)
	if err != nil {
		return handleServiceError(c, err)
	}

	return success(c, input.Data)
}

func (h *RuntimeHandlers) SetOutput(c fiber.Ctx) error {
	claims, err := h.authorize(c)
	if err != nil {
		return err
	}

	var req SetOutputRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.runtime.SetOutput(c.Context(), claims, req.Data); err != nil {
		return handleServiceError(c, err)
	}

	return success(c, nil)
}

func (h *RuntimeHandlers) GetContext(c fiber.Ctx) error {
	claims, err := h.authorize(c)
	if err != nil {
		return err
	}

	execContext, err := h.runtime.GetContext(c.Context(), claims)
	if err != nil {
		return handleServiceError(c, err)
	}

	return success(c, execContext)
}

func (h *RuntimeHandlers) SetCondition(c fiber.Ctx) error {
	claims, err := h.authorize(c)
	if err != nil {
		return err
	}

	var req SetConditionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Field 'condition' is required and must be a boolean")
	}

	if err := h.runtime.SetCondition(c.Context(), claims, *req.Condition); err != nil {
		return handleServiceError(c, err)
	}

	return success(c, nil)
}

func (h *RuntimeHandlers) GetVariable(c fiber.Ctx) error {
	claims, err := h.authorize(c)
	if err != nil {
		return err
	}

	key := c.Params("key")
	if key == "" {
		return badRequest(c, "Variable key is required")
	}

	variable, err := h.runtime.GetVariable(c.Context(), claims, key)
	if err != nil {
		return handleServiceError(c, err)
	}

	return success(c, fiber.Map{"key": key, "value": variable.Value})
}

func (h *RuntimeHandlers) SetVariable(c fiber.Ctx) error {
	claims, err := h.authorize(c)
	if err != nil {
		return err
	}

	key := c.Params("key")
	if key == "" {
		return badRequest(c, "Variable key is required")
	}

	var req SetVariableRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.runtime.SetVariable(c.Context(), claims, key, req.Value); err != nil {
		return handleServiceError(c, err)
	}

	return success(c, nil)
}

func (h *RuntimeHandlers) ExecuteToolAction(c fiber.Ctx) error {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return unauthenticated(c, "Missing execution token")
	}

	var req ExecuteToolActionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Fields 'tool' and 'action' are required")
	}

	result, err := h.runtime.ExecuteToolAction(c.Context(), claims, models.ToolActionConfig{
		Tool:   req.Tool,
		Action: req.Action,
		Params: req.Params,
	})
	if err != nil {
		toolActionsTotal.WithLabelValues(req.Tool, "error").Inc()

		return handleServiceError(c, err)
	}

	outcome := "failure"
	if result.Success {
		outcome = "success"
	}

	toolActionsTotal.WithLabelValues(req.Tool, outcome).Inc()

	return success(c, result)
}

func (h *RuntimeHandlers) HealthCheck(c fiber.Ctx) error {
	storeCheck, ok := h.runtime.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Runcept runtime is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Runcept runtime is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"store": storeCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
