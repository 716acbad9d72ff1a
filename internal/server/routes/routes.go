package routes

import (
	"github.com/gin-gonic/gin"

	"ledger-core/internal/handler"
)

func RegisterEscrowRoutes(rg *gin.RouterGroup, h *handler.EscrowHandler) {
	payments := rg.Group("/payments")
	{
		payments.POST("", h.CreatePayment)
		payments.GET("/:id", h.GetPayment)
		payments.POST("/:id/capture", h.Capture)
		payments.POST("/:id/release", h.Release)
		payments.POST("/:id/refund", h.Refund)
		payments.POST("/:id/fail", h.MarkFailed)
	}
}

func RegisterDistributionRoutes(rg *gin.RouterGroup, h *handler.DistributionHandler) {
	dists := rg.Group("/distributions")
	{
		dists.POST("", h.Create)
		dists.GET("/:id", h.Get)
		dists.POST("/:id/approve", h.ApproveShare)
		dists.POST("/:id/execute", h.Execute)
	}

	rg.POST("/templates", h.CreateTemplate)
	rg.PUT("/templates/:id", h.UpdateTemplate)
	rg.DELETE("/templates/:id", h.DeactivateTemplate)

	firms := rg.Group("/firms/:firm_id")
	{
		firms.GET("/distributions/pending", h.PendingApprovals)
		firms.GET("/templates", h.ListTemplates)
	}
}

func RegisterWalletRoutes(rg *gin.RouterGroup, h *handler.WalletHandler, p *handler.PayoutHandler) {
	wallets := rg.Group("/wallets/:owner_type/:owner_id")
	{
		wallets.GET("", h.GetBalance)
		wallets.GET("/statement", h.GetStatement)
		wallets.GET("/tax", h.GetTaxRecords)
		wallets.GET("/payouts", p.ListByOwner)
	}

	rg.POST("/payouts", p.Create)
	rg.GET("/payouts/:id", p.Get)
}

func RegisterAdminRoutes(rg *gin.RouterGroup, d *handler.DistributionHandler, w *handler.WalletHandler, p *handler.PayoutHandler) {
	admin := rg.Group("/admin")
	// Admin auth middleware goes here
	{
		admin.POST("/distributions/:id/approve", d.OverrideApproval)

		admin.GET("/payouts/pending", p.ListPending)
		admin.POST("/payouts/:id/approve", p.Approve)
		admin.POST("/payouts/:id/reject", p.Reject)
		admin.POST("/payouts/:id/process", p.Process)
		admin.POST("/payouts/:id/complete", p.Complete)
		admin.POST("/payouts/:id/fail", p.Fail)

		admin.POST("/wallets/adjust", w.Adjust)
		admin.POST("/wallets/:owner_type/:owner_id/reconcile", w.Reconcile)
		admin.POST("/wallets/:owner_type/:owner_id/unfreeze", w.Unfreeze)
		admin.POST("/tax-records/:id/filing", w.SetFiling)
	}
}
