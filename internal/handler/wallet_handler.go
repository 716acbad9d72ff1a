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

// WalletHandler exposes balances, statements and tax rollups
type WalletHandler struct {
	wallet     *service.WalletService
	taxRecords *service.TaxRecordService
}

func NewWalletHandler(wallet *service.WalletService, taxRecords *service.TaxRecordService) *WalletHandler {
	return &WalletHandler{wallet: wallet, taxRecords: taxRecords}
}

// ownerFrom parses the owner_type/owner_id path pair
func ownerFrom(c *gin.Context) (model.OwnerType, uint64, error) {
	ownerType := model.OwnerType(c.Param("owner_type"))
	if ownerType != model.OwnerFirm && ownerType != model.OwnerProfessional {
		return "", 0, errno.ErrBind
	}
	ownerID, err := pathID(c, "owner_id")
	if err != nil {
		return "", 0, errno.ErrBind
	}
	return ownerType, ownerID, nil
}

// GetBalance returns the wallet row plus the available balance
// @Summary Get balance
// @Description Wallet balance and the spendable amount net of pending payouts
// @Tags Wallet
// @Produce json
// @Param owner_type path string true "firm or professional"
// @Param owner_id path int true "Owner ID"
// @Success 200 {object} response.Response
// @Router /api/v1/wallets/{owner_type}/{owner_id} [get]
func (h *WalletHandler) GetBalance(c *gin.Context) {
	ownerType, ownerID, err := ownerFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	w, err := h.wallet.Balance(c.Request.Context(), ownerType, ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	available, err := h.wallet.AvailableBalance(c.Request.Context(), ownerType, ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"wallet":            w,
		"available_balance": available,
	})
}

// GetStatement returns the owner's ledger entries in order
// @Summary Get statement
// @Tags Wallet
// @Produce json
// @Param owner_type path string true "firm or professional"
// @Param owner_id path int true "Owner ID"
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Response
// @Router /api/v1/wallets/{owner_type}/{owner_id}/statement [get]
func (h *WalletHandler) GetStatement(c *gin.Context) {
	ownerType, ownerID, err := ownerFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	entries, err := h.wallet.Entries(c.Request.Context(), ownerType, ownerID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, entries)
}

// GetTaxRecords returns the owner's TDS/GST rollups
// @Summary Get tax records
// @Tags Wallet
// @Produce json
// @Param owner_type path string true "firm or professional"
// @Param owner_id path int true "Owner ID"
// @Param financial_year query string false "e.g. 2025-26"
// @Success 200 {object} response.Response
// @Router /api/v1/wallets/{owner_type}/{owner_id}/tax [get]
func (h *WalletHandler) GetTaxRecords(c *gin.Context) {
	ownerType, ownerID, err := ownerFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	records, err := h.taxRecords.List(c.Request.Context(), ownerType, ownerID, c.Query("financial_year"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, records)
}

// Reconcile folds the ledger and compares it to the cached balance
// @Summary Reconcile wallet
// @Description Replay the full ledger; a mismatch freezes the wallet
// @Tags Admin
// @Produce json
// @Param owner_type path string true "firm or professional"
// @Param owner_id path int true "Owner ID"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/wallets/{owner_type}/{owner_id}/reconcile [post]
func (h *WalletHandler) Reconcile(c *gin.Context) {
	ownerType, ownerID, err := ownerFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	folded, err := h.wallet.Reconcile(c.Request.Context(), ownerType, ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"folded_balance": folded, "consistent": true})
}

// Unfreeze clears a frozen wallet after manual review
// @Summary Unfreeze wallet
// @Tags Admin
// @Produce json
// @Param owner_type path string true "firm or professional"
// @Param owner_id path int true "Owner ID"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/wallets/{owner_type}/{owner_id}/unfreeze [post]
func (h *WalletHandler) Unfreeze(c *gin.Context) {
	ownerType, ownerID, err := ownerFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.wallet.Unfreeze(c.Request.Context(), ownerType, ownerID, actorFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"owner_type": ownerType, "owner_id": ownerID, "is_frozen": false})
}

// Adjust writes an administrative correction entry
// @Summary Adjust balance
// @Description Signed administrative correction; may overdraw, always logged
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body request.AdjustmentRequest true "Adjustment"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/wallets/adjust [post]
func (h *WalletHandler) Adjust(c *gin.Context) {
	var req request.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	entry, err := h.wallet.Append(c.Request.Context(), service.AppendInput{
		OwnerType:   model.OwnerType(req.OwnerType),
		OwnerID:     req.OwnerID,
		Type:        model.TxAdjustment,
		Amount:      req.Amount,
		Description: req.Description,
		ProcessedBy: actorFrom(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, entry)
}

// SetFiling stamps a tax bucket with its certificate or challan number
// @Summary Record tax filing
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path int true "Tax record ID"
// @Param request body request.FilingRequest true "Filing"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/tax-records/{id}/filing [post]
func (h *WalletHandler) SetFiling(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	var req request.FilingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	if err := h.taxRecords.SetFiling(c.Request.Context(), id, req.CertificateNumber, req.ChallanNumber); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"tax_record_id": id})
}
