package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"substore/internal/model"
	"substore/internal/service"
)

// GetArtifacts 获取产物过滤视图
func GetArtifacts(svc service.ArtifactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok(c, gin.H{
			"artifacts": svc.Filtered(),
			"total":     len(svc.Artifacts()),
			"stale":     svc.IsStale(),
			"selected":  svc.SelectedIDs(),
		})
	}
}

// ReloadArtifacts 重新加载产物集合
func ReloadArtifacts(svc service.ArtifactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Load(c.Request.Context()); err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"stale": svc.IsStale()})
	}
}

// GetArtifact 获取单个产物
func GetArtifact(svc service.ArtifactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		artifact, err := svc.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"artifact": artifact})
	}
}

// CreateArtifact 创建产物
func CreateArtifact(svc service.ArtifactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var artifact model.Artifact
		if err := c.ShouldBindJSON(&artifact); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数")
			return
		}
		created, err := svc.Create(c.Request.Context(), artifact)
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"artifact": created})
	}
}

// UpdateArtifact 更新产物
func UpdateArtifact(svc service.ArtifactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var artifact model.Artifact
		if err := c.ShouldBindJSON(&artifact); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数")
			return
		}
		artifact.ID = c.Param("id")
		updated, err := svc.Update(c.Request.Context(), artifact)
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"artifact": updated})
	}
}

// DeleteArtifact 删除产物
func DeleteArtifact(svc service.ArtifactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{})
	}
}

// TestArtifact 测试单个产物
func TestArtifact(svc service.ArtifactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := svc.Test(c.Request.Context(), c.Param("id"))
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"test": result})
	}
}

// ValidateContentRequest 内容校验请求
type ValidateContentRequest struct {
	Content string `json:"content" binding:"required"`
	Type    string `json:"type" binding:"required"`
}

// ValidateArtifactContent 校验产物内容
func ValidateArtifactContent(svc service.ArtifactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ValidateContentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数，必须指定content和type")
			return
		}
		result, err := svc.ValidateContent(c.Request.Context(), req.Content, model.ArtifactType(req.Type))
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"validation": result})
	}
}

// SearchArtifacts 设置产物搜索词
func SearchArtifacts(svc service.ArtifactService) gin.HandlerFunc {
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

// FilterArtifacts 设置产物过滤条件
func FilterArtifacts(svc service.ArtifactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter service.ArtifactFilter
		if err := c.ShouldBindJSON(&filter); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数")
			return
		}
		svc.SetFilter(filter)
		ok(c, gin.H{})
	}
}

// ClearArtifactFilters 清空产物过滤条件
func ClearArtifactFilters(svc service.ArtifactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		svc.ClearFilters()
		ok(c, gin.H{})
	}
}

// ToggleArtifactSelect 切换单个产物选中状态
func ToggleArtifactSelect(svc service.ArtifactService) gin.HandlerFunc {
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

// SelectAllArtifacts 产物全选切换
func SelectAllArtifacts(svc service.ArtifactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		svc.SelectAll()
		ok(c, gin.H{"selected": svc.SelectedIDs()})
	}
}

// BatchArtifacts 产物批量操作
func BatchArtifacts(svc service.ArtifactService) gin.HandlerFunc {
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

// SyncArtifacts 手动触发一次产物同步
func SyncArtifacts(svc service.ArtifactService) gin.HandlerFunc {
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

// GetArtifactSyncConfigs 获取产物同步配置
func GetArtifactSyncConfigs(svc service.ArtifactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		configs, err := svc.SyncConfigs()
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"configs": configs})
	}
}

// SaveArtifactSyncConfigs 保存产物同步配置
func SaveArtifactSyncConfigs(svc service.ArtifactService) gin.HandlerFunc {
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
