package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/visitorlog/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, sessionSecret string) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件，SSE 订阅依赖会话中的客户端标识
	store := cookie.NewStore([]byte(sessionSecret))
	r.Use(sessions.Sessions("visitorlog_session", store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	r.GET("/qr", api.MobileQRCode)

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/visitors", api.CheckInVisitor)
		apiGroup.POST("/visitors/check-duplicate", api.CheckDuplicateVisitor)
		apiGroup.POST("/visitors/:id/checkout", api.CheckOutVisitor)
		apiGroup.POST("/visitors/:id/missed-checkout", api.MarkMissedCheckout)
		apiGroup.GET("/current-visitors", api.GetCurrentVisitors)
		apiGroup.GET("/visitors/month/:year/:month", api.GetVisitorsByMonth)
		apiGroup.GET("/visitors/:date", api.GetVisitorsByDate)
		apiGroup.GET("/missed-checkouts", api.GetMissedCheckouts)
		apiGroup.GET("/visitor-history", api.GetVisitorHistory)

		apiGroup.GET("/analytics/companies", api.GetCompanyAnalytics)
		apiGroup.GET("/analytics/purposes", api.GetPurposeRanking)

		apiGroup.GET("/options/companies", api.GetCompanyOptions)
		apiGroup.POST("/options/companies", api.AddCompany)
		apiGroup.GET("/options/positions", api.GetPositionOptions)
		apiGroup.GET("/options/locations", api.GetLocationOptions)
		apiGroup.GET("/options/purposes", api.GetPurposeOptions)
		apiGroup.GET("/options/departments", api.GetDepartments)

		apiGroup.GET("/managers/search", api.SearchManagers)
		apiGroup.GET("/managers/department/:id", api.GetManagersByDepartment)

		apiGroup.GET("/export/:year/:month", api.ExportMonth)

		apiGroup.GET("/sse", api.StreamVisitors)
	}

	return r
}
