package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"substore/internal/service/task"
)

// StopTaskRequest 停止任务请求
type StopTaskRequest struct {
	TaskType string `form:"task_type" json:"task_type" binding:"required"` // 任务类型，必填
	Wait     *bool  `form:"wait" json:"wait"`                              // 是否等待任务清理完成
}

// StopTask 停止任务处理器
func StopTask(taskManager task.TaskManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req StopTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数，必须指定task_type")
			return
		}

		taskType := task.TaskType(req.TaskType)
		if !taskManager.IsRunning(taskType) {
			fail(c, http.StatusNotFound, "指定的任务不存在或未在运行")
			return
		}

		// 默认情况下等待任务清理完成，但不超过10秒
		// 客户端可以通过设置wait=false来立即返回
		wait := true
		if req.Wait != nil {
			wait = *req.Wait
		}

		cancelled, timedOut := taskManager.CancelTask(taskType, wait)
		if !cancelled {
			fail(c, http.StatusInternalServerError, "停止任务失败")
			return
		}

		ok(c, gin.H{"timed_out": timedOut})
	}
}

// GetTaskStatus 获取所有任务状态
func GetTaskStatus(taskManager task.TaskManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok(c, gin.H{"tasks": taskManager.GetAllStatus()})
	}
}
