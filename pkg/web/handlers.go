package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/flowrift/flowrift/pkg/breaker"
	"github.com/flowrift/flowrift/pkg/models"
	"github.com/flowrift/flowrift/pkg/persistence"
	"github.com/flowrift/flowrift/pkg/versioning"
)

type APIHandlers struct {
	versioningService *versioning.Service
	breakerManager    *breaker.Manager
	persistence       persistence.Persistence
	validator         *validator.Validate
}

func NewAPIHandlers(
	versioningService *versioning.Service,
	breakerManager *breaker.Manager,
	persistence persistence.Persistence,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		versioningService: versioningService,
		breakerManager:    breakerManager,
		persistence:       persistence,
		validator:         validator,
	}
}

func (h *APIHandlers) PublishWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req PublishRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	activate := true
	if req.Activate != nil {
		activate = *req.Activate
	}

	version, err := h.versioningService.Publish(c.Context(), id, req.UserID, req.Changelog, activate)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(version)
}

func (h *APIHandlers) RollbackWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req RollbackRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	err := h.versioningService.RollbackToVersion(c.Context(), id, req.VersionID, req.UserID, req.Reason)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflow_id": id,
		"version_id":  req.VersionID,
		"action":      "rollback",
	})
}

func (h *APIHandlers) RestoreDraft(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req RestoreDraftRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	err := h.versioningService.RestoreDraft(c.Context(), id, req.VersionID, req.UserID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflow_id": id,
		"version_id":  req.VersionID,
		"action":      "restore-draft",
	})
}

func (h *APIHandlers) UpdateLiveStatus(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	err := h.versioningService.UpdateLiveStatus(c.Context(), id, models.LiveStatus(req.Status), req.UserID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflow_id": id,
		"status":      req.Status,
	})
}

func (h *APIHandlers) GetVersionHistory(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	history, err := h.versioningService.GetVersionHistory(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflow_id": id,
		"versions":    history,
	})
}

func (h *APIHandlers) GetUnpublishedChanges(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	changed, err := h.versioningService.HasUnpublishedChanges(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflow_id":             id,
		"has_unpublished_changes": changed,
	})
}

func (h *APIHandlers) GetExecutableGraph(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	mode := models.ExecutionMode(c.Query("mode", string(models.ExecutionModeTrigger)))
	if mode != models.ExecutionModeTest && mode != models.ExecutionModeTrigger {
		return badRequest(c, "mode must be 'test' or 'trigger'")
	}

	graph, err := h.versioningService.GetExecutableGraph(c.Context(), id, mode)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(graph)
}

func (h *APIHandlers) GetBreakerStatus(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"circuits": h.breakerManager.Snapshot(),
	})
}

func (h *APIHandlers) ResetBreaker(c fiber.Ctx) error {
	var req BreakerResetRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	h.breakerManager.Reset(req.Provider, req.Model)

	return c.JSON(fiber.Map{
		"provider": req.Provider,
		"model":    req.Model,
		"state":    h.breakerManager.State(req.Provider, req.Model).String(),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}
