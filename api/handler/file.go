package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"substore/internal/model"
	"substore/internal/service"
)

// GetFiles 获取文件过滤视图
func GetFiles(svc service.FileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok(c, gin.H{
			"files":    svc.Filtered(),
			"total":    len(svc.Files()),
			"stale":    svc.IsStale(),
			"selected": svc.SelectedIDs(),
		})
	}
}

// ReloadFiles 重新加载文件集合
func ReloadFiles(svc service.FileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Load(c.Request.Context()); err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"stale": svc.IsStale()})
	}
}

// GetFile 获取单个文件
func GetFile(svc service.FileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := svc.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"file": file, "size": file.Size()})
	}
}

// CreateFile 创建文件
func CreateFile(svc service.FileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var file model.File
		if err := c.ShouldBindJSON(&file); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数")
			return
		}
		created, err := svc.Create(c.Request.Context(), file)
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"file": created})
	}
}

// UpdateFile 更新文件
func UpdateFile(svc service.FileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var file model.File
		if err := c.ShouldBindJSON(&file); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数")
			return
		}
		file.ID = c.Param("id")
		updated, err := svc.Update(c.Request.Context(), file)
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"file": updated})
	}
}

// DeleteFile 删除文件
func DeleteFile(svc service.FileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{})
	}
}

// SearchFiles 设置文件搜索词
func SearchFiles(svc service.FileService) gin.HandlerFunc {
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

// FilterFiles 设置文件过滤条件
func FilterFiles(svc service.FileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter service.FileFilter
		if err := c.ShouldBindJSON(&filter); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数")
			return
		}
		svc.SetFilter(filter)
		ok(c, gin.H{})
	}
}

// ClearFileFilters 清空文件过滤条件
func ClearFileFilters(svc service.FileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		svc.ClearFilters()
		ok(c, gin.H{})
	}
}

// ToggleFileSelect 切换单个文件选中状态
func ToggleFileSelect(svc service.FileService) gin.HandlerFunc {
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

// SelectAllFiles 文件全选切换
func SelectAllFiles(svc service.FileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		svc.SelectAll()
		ok(c, gin.H{"selected": svc.SelectedIDs()})
	}
}

// BatchFiles 文件批量操作
func BatchFiles(svc service.FileService) gin.HandlerFunc {
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

// SyncFiles 手动触发一次文件同步
func SyncFiles(svc service.FileService) gin.HandlerFunc {
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

// GetFileSyncConfigs 获取文件同步配置
func GetFileSyncConfigs(svc service.FileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		configs, err := svc.SyncConfigs()
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"configs": configs})
	}
}

// SaveFileSyncConfigs 保存文件同步配置
func SaveFileSyncConfigs(svc service.FileService) gin.HandlerFunc {
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
