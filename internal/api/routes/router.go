package routes

import (
	"github.com/gin-gonic/gin"

	"pricematcher/internal/container"
	"pricematcher/server/middleware"
)

// NewRouter собирает gin-движок со всеми маршрутами приложения
func NewRouter(c *container.Container) *gin.Engine {
	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.GinRequestIDMiddleware(),
		middleware.GinLoggerMiddleware(),
		middleware.GinCORSMiddleware(),
		middleware.GinGzipMiddleware(),
	)

	api := engine.Group("/api")

	// Прогоны сопоставления
	matching := api.Group("/matching")
	matching.POST("/run", c.MatchingHandler.HandleRunMatching)
	matching.GET("/tasks", c.MatchingHandler.HandleListTasks)
	matching.GET("/tasks/:id", c.MatchingHandler.HandleGetTask)
	matching.POST("/tasks/:id/stop", c.MatchingHandler.HandleStopTask)

	// Группы сопоставления и валидация
	groups := api.Group("/groups")
	groups.GET("", c.GroupsHandler.HandleListGroups)
	groups.GET("/:id", c.GroupsHandler.HandleGetGroup)
	groups.POST("/:id/confirm", c.GroupsHandler.HandleConfirmGroup)
	groups.POST("/:id/reject", c.GroupsHandler.HandleRejectGroup)
	groups.GET("/:id/price-comparison", c.GroupsHandler.HandlePriceComparison)

	// Импорт прайс-листов
	api.POST("/import", c.ImportHandler.HandleImportPriceList)

	// Листинги
	listings := api.Group("/listings")
	listings.GET("", c.ListingsHandler.HandleListListings)
	listings.GET("/:id/scores", c.ListingsHandler.HandleListingScores)
	listings.GET("/:id/price-history", c.ListingsHandler.HandlePriceHistory)

	// Служебные
	api.GET("/stats", c.GroupsHandler.HandleStats)
	api.GET("/health", c.SystemHandler.HandleHealth)

	return engine
}
