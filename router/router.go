package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/handler"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/service"
	"go.uber.org/zap"
)

type Handlers struct {
	Premium  *handler.PremiumHandler
	Admin    *handler.AdminHandler
	Campaign *handler.CampaignHandler
	Chat     *handler.ChatHandler
	Chain    *handler.ChainHandler
	Health   *handler.HealthHandler
}

type Options struct {
	CORSOrigins []string
	PublicDir   string
}

func SetupRouter(h Handlers, auth *service.AdminAuth, opts Options, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(handler.Recovery(log), handler.RequestLogger(log))

	corsCfg := cors.DefaultConfig()
	if len(opts.CORSOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = opts.CORSOrigins
	}
	corsCfg.AddAllowHeaders("Authorization", "X-Wallet-Address")
	corsCfg.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", h.Health.Healthz)
	r.GET("/readyz", h.Health.Readyz)
	if opts.PublicDir != "" {
		r.Static("/uploads", opts.PublicDir)
	}

	api := r.Group("/api")
	{
		premium := api.Group("/premium")
		premium.GET("/mode", h.Premium.Mode)
		premium.GET("/status", h.Premium.Status)
		premium.POST("/register", h.Premium.Register)
		premium.POST("/use", h.Premium.Use)
		premium.POST("/purchase", h.Premium.Purchase)
		premium.GET("/balance", h.Premium.Balance)
		premium.POST("/spend", h.Premium.Spend)
		premium.GET("/plans", h.Premium.Plans)

		api.GET("/badges", h.Premium.Badges)
		api.GET("/settings", h.Admin.GetSettings)
		api.POST("/bsc-balance", h.Chain.StableBalance)

		api.GET("/campaign", h.Campaign.Current)
		api.POST("/participate", h.Campaign.Participate)

		chats := api.Group("/tordai/chats")
		chats.GET("", h.Chat.List)
		chats.POST("", h.Chat.Create)
		chats.GET("/:id", h.Chat.Get)
		chats.PUT("/:id", h.Chat.Update)
		chats.DELETE("/:id", h.Chat.Delete)

		api.POST("/admin/login", h.Admin.Login)
		api.POST("/admin/logout", h.Admin.Logout)
		api.GET("/admin/verify", h.Admin.Verify)

		admin := api.Group("/admin", handler.RequireAdmin(auth))
		admin.GET("/settings", h.Admin.GetSettings)
		admin.PUT("/settings", h.Admin.UpdateSettings)
		admin.GET("/premium/stats", h.Admin.Stats)
		admin.GET("/premium/members", h.Admin.Members)
		admin.POST("/premium/members", h.Admin.AddMember)
		admin.PUT("/premium/members/:wallet/ban", h.Admin.Ban)
		admin.PUT("/premium/members/:wallet/unban", h.Admin.Unban)
		admin.PUT("/premium/members/:wallet/badge", h.Admin.SetBadge)
		admin.PUT("/premium/members/:wallet/adjust", h.Admin.Adjust)
		admin.DELETE("/premium/members/:wallet", h.Admin.RemoveMember)
		admin.GET("/premium/purchases", h.Admin.Purchases)
		admin.GET("/premium/badges", h.Premium.Badges)

		airdrop := api.Group("/admin", handler.RequireAirdropAdmin(auth))
		airdrop.GET("/campaign", h.Campaign.List)
		airdrop.POST("/campaign/new", h.Campaign.Create)
		airdrop.POST("/campaign/:id/restore", h.Campaign.Restore)
		airdrop.PUT("/campaign/:id", h.Campaign.Update)
		airdrop.GET("/tasks/:campaignId", h.Campaign.Tasks)
		airdrop.POST("/task", h.Campaign.CreateTask)
		airdrop.PUT("/task/:id", h.Campaign.UpdateTask)
		airdrop.DELETE("/task/:id", h.Campaign.DeleteTask)
		airdrop.GET("/participants/:campaignId", h.Campaign.Participants)
		airdrop.GET("/participants/:campaignId/export", h.Campaign.Export)
		airdrop.DELETE("/participants/:campaignId/clear", h.Campaign.Clear)
		airdrop.POST("/banner-upload", h.Campaign.UploadBanner)
	}

	return r
}
