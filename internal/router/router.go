package router

import (
	"github.com/gin-gonic/gin"

	"github.com/starfund/mes/internal/handler"
	"github.com/starfund/mes/internal/ledger"
)

func Setup(l *ledger.EscrowLedger) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "milestone-escrow-service",
		})
	})

	ledgerHandler := handler.NewLedgerHandler(l)
	queryHandler := handler.NewQueryHandler(l)

	// API版本组
	v1 := r.Group("/api/v1")
	{
		v1.POST("/ledger/initialize", ledgerHandler.Initialize)

		projects := v1.Group("/projects")
		{
			projects.POST("", ledgerHandler.CreateProject)
			projects.GET("", queryHandler.GetProjects)
			projects.GET("/count", queryHandler.GetProjectCount)
			projects.GET("/:id", queryHandler.GetProject)
			projects.POST("/:id/invest", ledgerHandler.Invest)
			projects.POST("/:id/milestones/:idx/evidence", ledgerHandler.SubmitEvidence)
			projects.POST("/:id/milestones/:idx/verify", ledgerHandler.VerifyMilestone)
			projects.POST("/:id/milestones/:idx/refund", ledgerHandler.TriggerRefund)
			projects.GET("/:id/refunds", queryHandler.GetProjectRefunds)
			projects.GET("/:id/events", queryHandler.GetProjectEvents)
			projects.GET("/:id/investors/:address", queryHandler.GetInvestorAmount)
		}
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-Caller-Address")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
