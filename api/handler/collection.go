package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"substore/internal/model"
	"substore/internal/service"
)

// GetCollections 获取组合订阅过滤视图
func GetCollections(svc service.CollectionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok(c, gin.H{
			"collections": svc.Filtered(),
			"total":       len(svc.Collections()),
			"stale":       svc.IsStale(),
			"selected":    svc.SelectedIDs(),
		})
	}
}

// ReloadCollections 重新加载组合订阅集合
func ReloadCollections(svc service.CollectionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Load(c.Request.Context()); err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"stale": svc.IsStale()})
	}
}

// GetCollection 获取单个组合订阅
func GetCollection(svc service.CollectionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		collection, err := svc.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"collection": collection})
	}
}

// CreateCollection 创建组合订阅
func CreateCollection(svc service.CollectionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var collection model.Collection
		if err := c.ShouldBindJSON(&collection); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数")
			return
		}
		created, err := svc.Create(c.Request.Context(), collection)
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"collection": created})
	}
}

// UpdateCollection 更新组合订阅
func UpdateCollection(svc service.CollectionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var collection model.Collection
		if err := c.ShouldBindJSON(&collection); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数")
			return
		}
		collection.ID = c.Param("id")
		updated, err := svc.Update(c.Request.Context(), collection)
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"collection": updated})
	}
}

// DeleteCollection 删除组合订阅
func DeleteCollection(svc service.CollectionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{})
	}
}

// MemberRequest 组合订阅成员请求
type MemberRequest struct {
	Subscription string `json:"subscription" binding:"required"`
}

// AddCollectionMember 添加成员订阅
func AddCollectionMember(svc service.CollectionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MemberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数，必须指定subscription")
			return
		}
		collection, err := svc.AddMember(c.Request.Context(), c.Param("id"), req.Subscription)
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"collection": collection})
	}
}

// RemoveCollectionMember 移除成员订阅
func RemoveCollectionMember(svc service.CollectionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MemberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数，必须指定subscription")
			return
		}
		collection, err := svc.RemoveMember(c.Request.Context(), c.Param("id"), req.Subscription)
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"collection": collection})
	}
}

// SearchCollections 设置组合订阅搜索词
func SearchCollections(svc service.CollectionService) gin.HandlerFunc {
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

// FilterCollections 设置组合订阅过滤条件
func FilterCollections(svc service.CollectionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter service.CollectionFilter
		if err := c.ShouldBindJSON(&filter); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数")
			return
		}
		svc.SetFilter(filter)
		ok(c, gin.H{})
	}
}

// ClearCollectionFilters 清空组合订阅过滤条件
func ClearCollectionFilters(svc service.CollectionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		svc.ClearFilters()
		ok(c, gin.H{})
	}
}

// ToggleCollectionSelect 切换单个组合订阅选中状态
func ToggleCollectionSelect(svc service.CollectionService) gin.HandlerFunc {
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

// SelectAllCollections 组合订阅全选切换
func SelectAllCollections(svc service.CollectionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		svc.SelectAll()
		ok(c, gin.H{"selected": svc.SelectedIDs()})
	}
}

// BatchCollections 组合订阅批量操作
func BatchCollections(svc service.CollectionService) gin.HandlerFunc {
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
