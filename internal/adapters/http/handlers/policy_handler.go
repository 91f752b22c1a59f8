package handlers

import (
	"errors"
	"strconv"

	"rumbia-backend/internal/core/domain"
	"rumbia-backend/internal/core/services"
	"rumbia-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// PolicyHandler handles policy issuance endpoints
type PolicyHandler struct {
	policyService *services.PolicyService
}

// NewPolicyHandler creates a new policy handler
func NewPolicyHandler(policyService *services.PolicyService) *PolicyHandler {
	return &PolicyHandler{
		policyService: policyService,
	}
}

// EmisionRequest represents a policy issuance request
type EmisionRequest struct {
	Cliente    domain.Cliente    `json:"cliente"`
	Cotizacion domain.Cotizacion `json:"cotizacion"`
}

// EmisionPoliza issues a new policy
// @Summary Emit policy
// @Description Issues a new policy: allocates the id, persists the record, generates the contract document and dispatches welcome messages
// @Tags Polizas
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body EmisionRequest true "Client and quotation data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /polizas/emision [post]
func (h *PolicyHandler) EmisionPoliza(c *fiber.Ctx) error {
	var req EmisionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	input := &services.IssuePolicyInput{
		Cliente:    req.Cliente,
		Cotizacion: req.Cotizacion,
	}

	result, err := h.policyService.Issue(c.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to issue policy")
		}
	}

	return response.Created(c, "Póliza emitida correctamente", result)
}

// List lists all issued policies
// @Summary List policies
// @Description Lists every stored policy ordered by id
// @Tags Polizas
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /polizas [get]
func (h *PolicyHandler) List(c *fiber.Ctx) error {
	policies, err := h.policyService.List()
	if err != nil {
		return response.InternalServerError(c, "Failed to list policies")
	}

	return response.Success(c, "Policies retrieved successfully", fiber.Map{
		"total":   len(policies),
		"polizas": policies,
	})
}

// GetByID gets a policy by id
// @Summary Get policy
// @Description Gets one stored policy by its numeric id
// @Tags Polizas
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Policy ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /polizas/{id} [get]
func (h *PolicyHandler) GetByID(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid policy ID")
	}

	policy, err := h.policyService.Get(id)
	if err != nil {
		if errors.Is(err, domain.ErrPolicyNotFound) {
			return response.NotFound(c, "Policy not found")
		}
		return response.InternalServerError(c, "Failed to get policy")
	}

	return response.Success(c, "Policy retrieved successfully", fiber.Map{
		"poliza": policy,
	})
}

// RegenerateDocument re-runs the document pipeline for a policy
// @Summary Regenerate policy document
// @Description Re-renders and re-converts the contract document for a stored policy
// @Tags Polizas
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Policy ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /polizas/{id}/documento [post]
func (h *PolicyHandler) RegenerateDocument(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid policy ID")
	}

	gen, err := h.policyService.RegenerateDocument(c.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPolicyNotFound):
			return response.NotFound(c, "Policy not found")
		case errors.Is(err, domain.ErrTemplateNotFound):
			return response.InternalServerError(c, "Contract template not found")
		default:
			return response.InternalServerError(c, "Failed to regenerate document")
		}
	}

	return response.Success(c, "Documento regenerado correctamente", fiber.Map{
		"ruta_documento_word":     gen.WordPath,
		"ruta_documento_pdf":      gen.PDFPath,
		"marcadores_sin_resolver": gen.Unresolved,
	})
}
