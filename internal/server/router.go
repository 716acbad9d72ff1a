package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"ledger-core/internal/handler"
	"ledger-core/internal/server/routes"
	"ledger-core/pkg/monitor"
)

// Handlers bundles everything the router mounts
type Handlers struct {
	Escrow       *handler.EscrowHandler
	Distribution *handler.DistributionHandler
	Wallet       *handler.WalletHandler
	Payout       *handler.PayoutHandler
}

// NewHTTPRouter builds the gin engine with all routes and middleware
func NewHTTPRouter(h Handlers) *gin.Engine {
	r := gin.Default()
	r.Use(monitor.PrometheusMiddleware())

	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	{
		routes.RegisterEscrowRoutes(api, h.Escrow)
		routes.RegisterDistributionRoutes(api, h.Distribution)
		routes.RegisterWalletRoutes(api, h.Wallet, h.Payout)
		routes.RegisterAdminRoutes(api, h.Distribution, h.Wallet, h.Payout)
	}

	return r
}
