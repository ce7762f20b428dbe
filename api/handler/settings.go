package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"substore/internal/client"
	"substore/internal/service"
)

// GetSettings 读取后端设置
func GetSettings(api *client.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		settings, err := api.GetSettings(c.Request.Context())
		if err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{"settings": settings})
	}
}

// UpdateSettings 更新后端设置
func UpdateSettings(api *client.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var settings map[string]any
		if err := c.ShouldBindJSON(&settings); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数")
			return
		}
		if err := api.UpdateSettings(c.Request.Context(), settings); err != nil {
			failErr(c, err)
			return
		}
		ok(c, gin.H{})
	}
}

// GetNotifications 获取最近的通知
func GetNotifications(center *service.NotificationCenter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok(c, gin.H{"notifications": center.Recent(50)})
	}
}
