package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ledger-core/internal/handler/request"
	"ledger-core/internal/handler/response"
	"ledger-core/internal/service"
	"ledger-core/pkg/errno"
	"ledger-core/pkg/validator"
)

// EscrowHandler exposes the payment escrow lifecycle
type EscrowHandler struct {
	escrow           *service.EscrowService
	autoReleaseAfter time.Duration
}

func NewEscrowHandler(escrow *service.EscrowService, autoReleaseAfter time.Duration) *EscrowHandler {
	return &EscrowHandler{escrow: escrow, autoReleaseAfter: autoReleaseAfter}
}

// CreatePayment opens a pending payment
// @Summary Create payment
// @Description Open a pending escrow payment for a service request
// @Tags Escrow
// @Accept json
// @Produce json
// @Param request body request.CreatePaymentRequest true "Payment"
// @Success 200 {object} response.Response
// @Router /api/v1/payments [post]
func (h *EscrowHandler) CreatePayment(c *gin.Context) {
	var req request.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	p, err := h.escrow.Create(c.Request.Context(), req.ServiceRequestID, req.FirmID, req.ProfessionalID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

// Capture moves a pending payment into escrow
// @Summary Capture payment
// @Description Confirm gateway capture and place funds in escrow
// @Tags Escrow
// @Produce json
// @Param id path int true "Payment ID"
// @Success 200 {object} response.Response
// @Router /api/v1/payments/{id}/capture [post]
func (h *EscrowHandler) Capture(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	p, err := h.escrow.Capture(c.Request.Context(), id, h.autoReleaseAfter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

// Release releases escrow to the payee side
// @Summary Release escrow
// @Description Release a held payment; idempotent under concurrent calls
// @Tags Escrow
// @Produce json
// @Param id path int true "Payment ID"
// @Success 200 {object} response.Response
// @Router /api/v1/payments/{id}/release [post]
func (h *EscrowHandler) Release(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	released, err := h.escrow.Release(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"payment_id": id, "released": released})
}

// Refund returns a held payment to the client
// @Summary Refund escrow
// @Description Refund a held payment back to the client
// @Tags Escrow
// @Accept json
// @Produce json
// @Param id path int true "Payment ID"
// @Param request body request.RefundRequest true "Refund"
// @Success 200 {object} response.Response
// @Router /api/v1/payments/{id}/refund [post]
func (h *EscrowHandler) Refund(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	var req request.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	if err := h.escrow.Refund(c.Request.Context(), id, actorFrom(c), req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"payment_id": id, "status": "refunded"})
}

// MarkFailed records a gateway capture failure
// @Summary Mark payment failed
// @Tags Escrow
// @Accept json
// @Produce json
// @Param id path int true "Payment ID"
// @Param request body request.MarkFailedRequest true "Failure"
// @Success 200 {object} response.Response
// @Router /api/v1/payments/{id}/fail [post]
func (h *EscrowHandler) MarkFailed(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	var req request.MarkFailedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	if err := h.escrow.MarkFailed(c.Request.Context(), id, req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"payment_id": id, "status": "failed"})
}

// GetPayment returns one payment
// @Summary Get payment
// @Tags Escrow
// @Produce json
// @Param id path int true "Payment ID"
// @Success 200 {object} response.Response
// @Router /api/v1/payments/{id} [get]
func (h *EscrowHandler) GetPayment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	p, err := h.escrow.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

func pathID(c *gin.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// actorFrom extracts the acting identity set by the auth middleware,
// falling back to "api" until auth is wired in
func actorFrom(c *gin.Context) string {
	if actor := c.GetString("actor"); actor != "" {
		return actor
	}
	return "api"
}
