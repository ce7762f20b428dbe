package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"substore/internal/model"
	"substore/internal/service"
)

// GetSubscriptions 获取订阅过滤视图
func GetSubscriptions(svc service.SubscriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok(c, gin.H{
			"subscriptions": svc.Filtered(),
			"total":         len(svc.Subscriptions()),
			"stale":         svc.IsStale(),
			"selected":      svc.SelectedIDs(),
		})
	}
}

// ReloadSubscriptions 重新加载订阅集合
func ReloadSubscriptions(svc service.SubscriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Load(c.Request.Context()); err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"stale": svc.IsStale()})
	}
}

// GetSubscription 获取单个订阅
func GetSubscription(svc service.SubscriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, err := svc.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"subscription": sub})
	}
}

// CreateSubscription 创建订阅
func CreateSubscription(svc service.SubscriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sub model.Subscription
		if err := c.ShouldBindJSON(&sub); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数")
			return
		}
		created, err := svc.Create(c.Request.Context(), sub)
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"subscription": created})
	}
}

// UpdateSubscription 更新订阅
func UpdateSubscription(svc service.SubscriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sub model.Subscription
		if err := c.ShouldBindJSON(&sub); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数")
			return
		}
		sub.ID = c.Param("id")
		updated, err := svc.Update(c.Request.Context(), sub)
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"subscription": updated})
	}
}

// DeleteSubscription 删除订阅
func DeleteSubscription(svc service.SubscriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{})
	}
}

// SearchRequest 搜索请求
type SearchRequest struct {
	Query string `json:"query"`
}

// SearchSubscriptions 设置订阅搜索词
func SearchSubscriptions(svc service.SubscriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数")
			return
		}
		svc.SetSearchText(req.Query)
		ok(c, gin.H{})
	}
}

// FilterSubscriptions 设置订阅过滤条件
func FilterSubscriptions(svc service.SubscriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter service.SubscriptionFilter
		if err := c.ShouldBindJSON(&filter); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数")
			return
		}
		svc.SetFilter(filter)
		ok(c, gin.H{})
	}
}

// ClearSubscriptionFilters 清空订阅过滤条件
func ClearSubscriptionFilters(svc service.SubscriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		svc.ClearFilters()
		ok(c, gin.H{})
	}
}

// SelectRequest 选择请求
type SelectRequest struct {
	ID string `json:"id" binding:"required"`
}

// ToggleSubscriptionSelect 切换单个订阅选中状态
func ToggleSubscriptionSelect(svc service.SubscriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SelectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数，必须指定id")
			return
		}
		svc.ToggleSelect(req.ID)
		ok(c, gin.H{"selected": svc.SelectedIDs()})
	}
}

// SelectAllSubscriptions 订阅全选切换
func SelectAllSubscriptions(svc service.SubscriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		svc.SelectAll()
		ok(c, gin.H{"selected": svc.SelectedIDs()})
	}
}

// BatchRequest 批量操作请求。IDs为空时作用于当前选中的实体。
type BatchRequest struct {
	Operation string   `json:"operation" binding:"required"`
	IDs       []string `json:"ids"`
}

// BatchSubscriptions 订阅批量操作
func BatchSubscriptions(svc service.SubscriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数，必须指定operation")
			return
		}
		ids := req.IDs
		if len(ids) == 0 {
			ids = svc.SelectedIDs()
		}
		result, err := svc.Batch(c.Request.Context(), service.BatchOperation(req.Operation), ids)
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"batch": result})
	}
}

// SyncSubscriptions 手动触发一次订阅同步
func SyncSubscriptions(svc service.SubscriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cfg model.SyncConfig
		if err := c.ShouldBindJSON(&cfg); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数")
			return
		}
		result, err := svc.Sync(c.Request.Context(), cfg)
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"sync": result})
	}
}

// GetSubscriptionSyncConfigs 获取订阅同步配置
func GetSubscriptionSyncConfigs(svc service.SubscriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		configs, err := svc.SyncConfigs()
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"configs": configs})
	}
}

// SaveSubscriptionSyncConfigs 保存订阅同步配置
func SaveSubscriptionSyncConfigs(svc service.SubscriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var configs []model.SyncConfig
		if err := c.ShouldBindJSON(&configs); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数")
			return
		}
		if err := svc.SaveSyncConfigs(configs); err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{})
	}
}

// RefreshSubscriptionFlows 刷新远程订阅流量快照
func RefreshSubscriptionFlows(svc service.SubscriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		svc.RefreshFlows(c.Request.Context())
		ok(c, gin.H{})
	}
}

// DownloadSubscription 下载订阅产出的配置内容
func DownloadSubscription(svc service.SubscriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		content, err := svc.Download(c.Request.Context(), c.Param("name"))
		if err != nil {
			failErr(c, err)
			return
		}
		c.String(http.StatusOK, content)
	}
}
