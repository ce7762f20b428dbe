package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"substore/internal/model"
	"substore/internal/service"
)

// GetShares 获取分享过滤视图
func GetShares(svc service.ShareService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok(c, gin.H{
			"shares":   svc.Filtered(),
			"total":    len(svc.Shares()),
			"stale":    svc.IsStale(),
			"selected": svc.SelectedIDs(),
		})
	}
}

// ReloadShares 重新加载分享集合
func ReloadShares(svc service.ShareService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Load(c.Request.Context()); err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"stale": svc.IsStale()})
	}
}

// GetShare 获取单个分享
func GetShare(svc service.ShareService) gin.HandlerFunc {
	return func(c *gin.Context) {
		share, err := svc.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"share": share})
	}
}

// CreateShare 创建分享
func CreateShare(svc service.ShareService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var share model.Share
		if err := c.ShouldBindJSON(&share); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数")
			return
		}
		created, err := svc.Create(c.Request.Context(), share)
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"share": created})
	}
}

// UpdateShare 更新分享
func UpdateShare(svc service.ShareService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var share model.Share
		if err := c.ShouldBindJSON(&share); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数")
			return
		}
		share.ID = c.Param("id")
		updated, err := svc.Update(c.Request.Context(), share)
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"share": updated})
	}
}

// DeleteShare 删除分享
func DeleteShare(svc service.ShareService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{})
	}
}

// RegenerateShareToken 重新生成分享访问令牌
func RegenerateShareToken(svc service.ShareService) gin.HandlerFunc {
	return func(c *gin.Context) {
		share, err := svc.RegenerateToken(c.Request.Context(), c.Param("id"))
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"share": share})
	}
}

// SearchShares 设置分享搜索词
func SearchShares(svc service.ShareService) gin.HandlerFunc {
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

// FilterShares 设置分享过滤条件
func FilterShares(svc service.ShareService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter service.ShareFilter
		if err := c.ShouldBindJSON(&filter); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数")
			return
		}
		svc.SetFilter(filter)
		ok(c, gin.H{})
	}
}

// ClearShareFilters 清空分享过滤条件
func ClearShareFilters(svc service.ShareService) gin.HandlerFunc {
	return func(c *gin.Context) {
		svc.ClearFilters()
		ok(c, gin.H{})
	}
}

// ToggleShareSelect 切换单个分享选中状态
func ToggleShareSelect(svc service.ShareService) gin.HandlerFunc {
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

// SelectAllShares 分享全选切换
func SelectAllShares(svc service.ShareService) gin.HandlerFunc {
	return func(c *gin.Context) {
		svc.SelectAll()
		ok(c, gin.H{"selected": svc.SelectedIDs()})
	}
}

// BatchShares 分享批量操作
func BatchShares(svc service.ShareService) gin.HandlerFunc {
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
