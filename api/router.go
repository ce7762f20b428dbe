package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"substore/api/handler"
	"substore/api/middleware"
	"substore/config"
	"substore/internal/client"
	"substore/internal/eventbus"
	"substore/internal/scheduler"
	"substore/internal/service"
)

// SetupRouter 设置API路由
func SetupRouter(
	cfg *config.Config,
	services *service.Services,
	api *client.Client,
	bus eventbus.EventBus,
	sched *scheduler.Scheduler,
	log *zap.SugaredLogger,
) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	stream := handler.NewEventStream(bus, log)

	webGroup := router.Group("/web/api")
	webGroup.Use(middleware.Auth(cfg.Token))
	{
		// 订阅
		subs := webGroup.Group("/subscriptions")
		{
			subs.GET("", handler.GetSubscriptions(services.Subscription))
			subs.POST("", handler.CreateSubscription(services.Subscription))
			subs.POST("/reload", handler.ReloadSubscriptions(services.Subscription))
			subs.POST("/search", handler.SearchSubscriptions(services.Subscription))
			subs.POST("/filter", handler.FilterSubscriptions(services.Subscription))
			subs.POST("/filter/clear", handler.ClearSubscriptionFilters(services.Subscription))
			subs.POST("/select", handler.ToggleSubscriptionSelect(services.Subscription))
			subs.POST("/select_all", handler.SelectAllSubscriptions(services.Subscription))
			subs.POST("/batch", handler.BatchSubscriptions(services.Subscription))
			subs.POST("/sync", handler.SyncSubscriptions(services.Subscription))
			subs.GET("/sync_configs", handler.GetSubscriptionSyncConfigs(services.Subscription))
			subs.PUT("/sync_configs", handler.SaveSubscriptionSyncConfigs(services.Subscription))
			subs.POST("/flows/refresh", handler.RefreshSubscriptionFlows(services.Subscription))
			subs.GET("/:id", handler.GetSubscription(services.Subscription))
			subs.PUT("/:id", handler.UpdateSubscription(services.Subscription))
			subs.DELETE("/:id", handler.DeleteSubscription(services.Subscription))
		}

		// 组合订阅
		collections := webGroup.Group("/collections")
		{
			collections.GET("", handler.GetCollections(services.Collection))
			collections.POST("", handler.CreateCollection(services.Collection))
			collections.POST("/reload", handler.ReloadCollections(services.Collection))
			collections.POST("/search", handler.SearchCollections(services.Collection))
			collections.POST("/filter", handler.FilterCollections(services.Collection))
			collections.POST("/filter/clear", handler.ClearCollectionFilters(services.Collection))
			collections.POST("/select", handler.ToggleCollectionSelect(services.Collection))
			collections.POST("/select_all", handler.SelectAllCollections(services.Collection))
			collections.POST("/batch", handler.BatchCollections(services.Collection))
			collections.GET("/:id", handler.GetCollection(services.Collection))
			collections.PUT("/:id", handler.UpdateCollection(services.Collection))
			collections.DELETE("/:id", handler.DeleteCollection(services.Collection))
			collections.POST("/:id/members", handler.AddCollectionMember(services.Collection))
			collections.DELETE("/:id/members", handler.RemoveCollectionMember(services.Collection))
		}

		// 产物
		artifacts := webGroup.Group("/artifacts")
		{
			artifacts.GET("", handler.GetArtifacts(services.Artifact))
			artifacts.POST("", handler.CreateArtifact(services.Artifact))
			artifacts.POST("/reload", handler.ReloadArtifacts(services.Artifact))
			artifacts.POST("/search", handler.SearchArtifacts(services.Artifact))
			artifacts.POST("/filter", handler.FilterArtifacts(services.Artifact))
			artifacts.POST("/filter/clear", handler.ClearArtifactFilters(services.Artifact))
			artifacts.POST("/select", handler.ToggleArtifactSelect(services.Artifact))
			artifacts.POST("/select_all", handler.SelectAllArtifacts(services.Artifact))
			artifacts.POST("/batch", handler.BatchArtifacts(services.Artifact))
			artifacts.POST("/sync", handler.SyncArtifacts(services.Artifact))
			artifacts.GET("/sync_configs", handler.GetArtifactSyncConfigs(services.Artifact))
			artifacts.PUT("/sync_configs", handler.SaveArtifactSyncConfigs(services.Artifact))
			artifacts.POST("/validate", handler.ValidateArtifactContent(services.Artifact))
			artifacts.GET("/:id", handler.GetArtifact(services.Artifact))
			artifacts.PUT("/:id", handler.UpdateArtifact(services.Artifact))
			artifacts.DELETE("/:id", handler.DeleteArtifact(services.Artifact))
			artifacts.POST("/:id/test", handler.TestArtifact(services.Artifact))
		}

		// 文件
		files := webGroup.Group("/files")
		{
			files.GET("", handler.GetFiles(services.File))
			files.POST("", handler.CreateFile(services.File))
			files.POST("/reload", handler.ReloadFiles(services.File))
			files.POST("/search", handler.SearchFiles(services.File))
			files.POST("/filter", handler.FilterFiles(services.File))
			files.POST("/filter/clear", handler.ClearFileFilters(services.File))
			files.POST("/select", handler.ToggleFileSelect(services.File))
			files.POST("/select_all", handler.SelectAllFiles(services.File))
			files.POST("/batch", handler.BatchFiles(services.File))
			files.POST("/sync", handler.SyncFiles(services.File))
			files.GET("/sync_configs", handler.GetFileSyncConfigs(services.File))
			files.PUT("/sync_configs", handler.SaveFileSyncConfigs(services.File))
			files.GET("/:id", handler.GetFile(services.File))
			files.PUT("/:id", handler.UpdateFile(services.File))
			files.DELETE("/:id", handler.DeleteFile(services.File))
		}

		// 分享
		shares := webGroup.Group("/shares")
		{
			shares.GET("", handler.GetShares(services.Share))
			shares.POST("", handler.CreateShare(services.Share))
			shares.POST("/reload", handler.ReloadShares(services.Share))
			shares.POST("/search", handler.SearchShares(services.Share))
			shares.POST("/filter", handler.FilterShares(services.Share))
			shares.POST("/filter/clear", handler.ClearShareFilters(services.Share))
			shares.POST("/select", handler.ToggleShareSelect(services.Share))
			shares.POST("/select_all", handler.SelectAllShares(services.Share))
			shares.POST("/batch", handler.BatchShares(services.Share))
			shares.GET("/:id", handler.GetShare(services.Share))
			shares.PUT("/:id", handler.UpdateShare(services.Share))
			shares.DELETE("/:id", handler.DeleteShare(services.Share))
			shares.POST("/:id/token", handler.RegenerateShareToken(services.Share))
		}

		// 下载订阅产出的配置
		webGroup.GET("/download/:name", handler.DownloadSubscription(services.Subscription))

		// 后端设置
		webGroup.GET("/settings", handler.GetSettings(api))
		webGroup.PUT("/settings", handler.UpdateSettings(api))

		// 通知历史
		webGroup.GET("/notifications", handler.GetNotifications(services.Notifications))

		// 任务
		webGroup.GET("/task_all_status", handler.GetTaskStatus(services.Tasks))
		webGroup.POST("/stop_task", handler.StopTask(services.Tasks))

		// 调度器
		webGroup.GET("/scheduler_status", handler.GetSchedulerStatus(sched))
		webGroup.PUT("/scheduler_job", handler.UpdateSchedulerJob(sched))

		// 事件推送
		webGroup.GET("/events", stream.Serve())
	}

	return router
}
