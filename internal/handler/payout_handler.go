package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"ledger-core/internal/handler/request"
	"ledger-core/internal/handler/response"
	"ledger-core/internal/model"
	"ledger-core/internal/service"
	"ledger-core/pkg/errno"
	"ledger-core/pkg/validator"
)

// PayoutHandler exposes withdrawal requests and the admin review flow
type PayoutHandler struct {
	payout *service.PayoutService
}

func NewPayoutHandler(payout *service.PayoutService) *PayoutHandler {
	return &PayoutHandler{payout: payout}
}

// Create opens a withdrawal request
// @Summary Request payout
// @Description Request a withdrawal; tax is computed up front, funds lock on processing
// @Tags Payout
// @Accept json
// @Produce json
// @Param request body request.CreatePayoutRequest true "Payout"
// @Success 200 {object} response.Response
// @Router /api/v1/payouts [post]
func (h *PayoutHandler) Create(c *gin.Context) {
	var req request.CreatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	payout, err := h.payout.Request(c.Request.Context(), service.RequestInput{
		OwnerType:   model.OwnerType(req.OwnerType),
		OwnerID:     req.OwnerID,
		Amount:      req.Amount,
		Method:      req.Method,
		PayeeName:   req.PayeeName,
		BankAccount: req.BankAccount,
		IFSCCode:    req.IFSCCode,
		UPIHandle:   req.UPIHandle,
		TaxExempt:   req.TaxExempt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, payout)
}

// Get returns one payout
// @Summary Get payout
// @Tags Payout
// @Produce json
// @Param id path int true "Payout ID"
// @Success 200 {object} response.Response
// @Router /api/v1/payouts/{id} [get]
func (h *PayoutHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	payout, err := h.payout.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, payout)
}

// ListByOwner returns an owner's payout history
// @Summary List payouts
// @Tags Payout
// @Produce json
// @Param owner_type path string true "firm or professional"
// @Param owner_id path int true "Owner ID"
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Response
// @Router /api/v1/wallets/{owner_type}/{owner_id}/payouts [get]
func (h *PayoutHandler) ListByOwner(c *gin.Context) {
	ownerType, ownerID, err := ownerFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	payouts, err := h.payout.ListByOwner(c.Request.Context(), ownerType, ownerID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, payouts)
}

// ListPending returns payouts awaiting admin action
// @Summary List pending payouts
// @Tags Admin
// @Produce json
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/payouts/pending [get]
func (h *PayoutHandler) ListPending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	payouts, err := h.payout.ListPending(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, payouts)
}

// Approve moves a payout to approved
// @Summary Approve payout
// @Tags Admin
// @Produce json
// @Param id path int true "Payout ID"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/payouts/{id}/approve [post]
func (h *PayoutHandler) Approve(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	if err := h.payout.Approve(c.Request.Context(), id, actorFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"payout_id": id, "status": model.PayoutApproved})
}

// Reject declines a requested or approved payout
// @Summary Reject payout
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path int true "Payout ID"
// @Param request body request.RejectPayoutRequest true "Rejection"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/payouts/{id}/reject [post]
func (h *PayoutHandler) Reject(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	var req request.RejectPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	if err := h.payout.Reject(c.Request.Context(), id, actorFrom(c), req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"payout_id": id, "status": model.PayoutRejected})
}

// Process locks funds and submits to the settlement rail
// @Summary Process payout
// @Description Debit the ledger and submit the transfer instruction
// @Tags Admin
// @Produce json
// @Param id path int true "Payout ID"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/payouts/{id}/process [post]
func (h *PayoutHandler) Process(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	if err := h.payout.Process(c.Request.Context(), id, actorFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"payout_id": id, "status": model.PayoutProcessing})
}

// Complete confirms settlement; called by the provider webhook or ops
// @Summary Complete payout
// @Tags Admin
// @Produce json
// @Param id path int true "Payout ID"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/payouts/{id}/complete [post]
func (h *PayoutHandler) Complete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	if err := h.payout.Complete(c.Request.Context(), id, actorFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"payout_id": id, "status": model.PayoutCompleted})
}

// Fail fails a processing payout and reverses the locked funds
// @Summary Fail payout
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path int true "Payout ID"
// @Param request body request.RejectPayoutRequest true "Failure reason"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/payouts/{id}/fail [post]
func (h *PayoutHandler) Fail(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	var req request.RejectPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	if err := h.payout.Fail(c.Request.Context(), id, req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"payout_id": id, "status": model.PayoutFailed})
}
