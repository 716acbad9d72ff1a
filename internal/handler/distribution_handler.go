package handler

import (
	"github.com/gin-gonic/gin"

	"ledger-core/internal/event"
	"ledger-core/internal/handler/request"
	"ledger-core/internal/handler/response"
	"ledger-core/internal/service"
	"ledger-core/pkg/errno"
	"ledger-core/pkg/validator"
)

// DistributionHandler exposes distribution creation, approval and execution
type DistributionHandler struct {
	distribution *service.DistributionService
	templates    *service.TemplateService
}

func NewDistributionHandler(distribution *service.DistributionService, templates *service.TemplateService) *DistributionHandler {
	return &DistributionHandler{distribution: distribution, templates: templates}
}

// Create builds a distribution for a completed service request. The same
// path the MQ consumer takes, exposed for manual and backfill use.
// @Summary Create distribution
// @Description Compute and persist the split for a completed service request
// @Tags Distribution
// @Accept json
// @Produce json
// @Param request body request.CreateDistributionRequest true "Distribution"
// @Success 200 {object} response.Response
// @Router /api/v1/distributions [post]
func (h *DistributionHandler) Create(c *gin.Context) {
	var req request.CreateDistributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	evt := event.ServiceRequestCompletedEvent{
		ServiceRequestID:     req.ServiceRequestID,
		FirmID:               req.FirmID,
		EarlyCompletionBonus: req.EarlyCompletionBonus,
		QualityBonus:         req.QualityBonus,
		ReferralBonus:        req.ReferralBonus,
	}
	for _, contrib := range req.Contributors {
		evt.Contributors = append(evt.Contributors, event.Contributor{
			ProfessionalID: contrib.ProfessionalID,
			Role:           contrib.Role,
			Percentage:     contrib.Percentage,
			Hours:          contrib.Hours,
		})
	}

	dist, err := h.distribution.CreateFromCompletion(c.Request.Context(), evt)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dist)
}

// Get returns a distribution with its shares
// @Summary Get distribution
// @Tags Distribution
// @Produce json
// @Param id path int true "Distribution ID"
// @Success 200 {object} response.Response
// @Router /api/v1/distributions/{id} [get]
func (h *DistributionHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	dist, err := h.distribution.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dist)
}

// ApproveShare records one contributor's sign-off
// @Summary Approve share
// @Description Record a contributing professional's approval of their cut
// @Tags Distribution
// @Accept json
// @Produce json
// @Param id path int true "Distribution ID"
// @Param request body request.ApproveShareRequest true "Approval"
// @Success 200 {object} response.Response
// @Router /api/v1/distributions/{id}/approve [post]
func (h *DistributionHandler) ApproveShare(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	var req request.ApproveShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	if err := h.distribution.ApproveShare(c.Request.Context(), id, req.ProfessionalID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"distribution_id": id, "professional_id": req.ProfessionalID})
}

// Execute writes the ledger entries for an approved distribution
// @Summary Execute distribution
// @Description Credit the firm and contributors per the approved split
// @Tags Distribution
// @Produce json
// @Param id path int true "Distribution ID"
// @Success 200 {object} response.Response
// @Router /api/v1/distributions/{id}/execute [post]
func (h *DistributionHandler) Execute(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	if err := h.distribution.Execute(c.Request.Context(), id, actorFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"distribution_id": id, "status": "distributed"})
}

// OverrideApproval approves a distribution on behalf of all contributors
// @Summary Override approval
// @Description Firm-admin approval bypassing per-contributor sign-off
// @Tags Admin
// @Produce json
// @Param id path int true "Distribution ID"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/distributions/{id}/approve [post]
func (h *DistributionHandler) OverrideApproval(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	if err := h.distribution.OverrideApproval(c.Request.Context(), id, actorFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"distribution_id": id, "is_approved": true})
}

// PendingApprovals lists a firm's distributions awaiting sign-off
// @Summary List pending approvals
// @Tags Distribution
// @Produce json
// @Param firm_id path int true "Firm ID"
// @Success 200 {object} response.Response
// @Router /api/v1/firms/{firm_id}/distributions/pending [get]
func (h *DistributionHandler) PendingApprovals(c *gin.Context) {
	firmID, err := pathID(c, "firm_id")
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	dists, err := h.distribution.PendingApprovals(c.Request.Context(), firmID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dists)
}

// CreateTemplate adds a firm role band
// @Summary Create template
// @Tags Template
// @Accept json
// @Produce json
// @Param request body request.TemplateRequest true "Template"
// @Success 200 {object} response.Response
// @Router /api/v1/templates [post]
func (h *DistributionHandler) CreateTemplate(c *gin.Context) {
	var req request.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	tpl, err := h.templates.Create(c.Request.Context(), service.TemplateInput{
		FirmID:            req.FirmID,
		Role:              req.Role,
		DefaultPercentage: req.DefaultPercentage,
		MinPercentage:     req.MinPercentage,
		MaxPercentage:     req.MaxPercentage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tpl)
}

// UpdateTemplate changes a band
// @Summary Update template
// @Tags Template
// @Accept json
// @Produce json
// @Param id path int true "Template ID"
// @Param request body request.TemplateRequest true "Template"
// @Success 200 {object} response.Response
// @Router /api/v1/templates/{id} [put]
func (h *DistributionHandler) UpdateTemplate(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	var req request.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	err = h.templates.Update(c.Request.Context(), id, service.TemplateInput{
		FirmID:            req.FirmID,
		Role:              req.Role,
		DefaultPercentage: req.DefaultPercentage,
		MinPercentage:     req.MinPercentage,
		MaxPercentage:     req.MaxPercentage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"template_id": id})
}

// DeactivateTemplate retires a band
// @Summary Deactivate template
// @Tags Template
// @Produce json
// @Param id path int true "Template ID"
// @Success 200 {object} response.Response
// @Router /api/v1/templates/{id} [delete]
func (h *DistributionHandler) DeactivateTemplate(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	if err := h.templates.Deactivate(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"template_id": id, "is_active": false})
}

// ListTemplates returns a firm's templates
// @Summary List templates
// @Tags Template
// @Produce json
// @Param firm_id path int true "Firm ID"
// @Success 200 {object} response.Response
// @Router /api/v1/firms/{firm_id}/templates [get]
func (h *DistributionHandler) ListTemplates(c *gin.Context) {
	firmID, err := pathID(c, "firm_id")
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	tpls, err := h.templates.ListByFirm(c.Request.Context(), firmID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tpls)
}
