package handler

import (
	"lotterymarket/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(db, rdb, cfg)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 公开接口：登录和浏览不需要会话
		api.POST("/auth/login", h.Login)
		api.GET("/lottery/list", h.ListLotteries)
		api.GET("/lottery/detail", h.GetLottery)
		api.GET("/listing/list", h.ListListings)

		// 需要会话认证的接口
		authed := api.Group("")
		authed.Use(AuthMiddleware(rdb))
		{
			// 会话
			authed.POST("/auth/logout", h.Logout)

			// 账户相关
			authed.GET("/account/balance", h.GetBalance)
			authed.POST("/account/recharge", h.Recharge)
			authed.GET("/account/transactions", h.ListTransactions)

			// 购票相关
			authed.POST("/ticket/purchase", h.PurchaseTicket)
			authed.GET("/ticket/my", h.MyTickets)
			authed.GET("/ticket/detail", h.TicketDetail)

			// 活动管理
			authed.POST("/lottery/create", h.CreateLottery)
			authed.POST("/lottery/close", h.CloseLottery)
			authed.GET("/lottery/mine", h.MyLotteries)
			authed.GET("/lottery/tickets", h.ListLotteryTickets)

			// 商品管理
			authed.POST("/listing/create", h.CreateListing)
			authed.GET("/listing/archived", h.ListArchivedListings)
			authed.POST("/listing/archive", h.ArchiveListing)
			authed.POST("/listing/restore", h.RestoreListing)
			authed.POST("/listing/delete", h.DeleteListing)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
