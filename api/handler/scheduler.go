package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"substore/config"
	"substore/internal/scheduler"
)

// GetSchedulerStatus 查询调度器状态处理器
func GetSchedulerStatus(sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok(c, sched.GetStatus())
	}
}

// UpdateSchedulerJob 新增或更新用户定时任务处理器。
// 内置巡检任务名不允许占用。
func UpdateSchedulerJob(sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var job config.CronJob
		if err := c.ShouldBindJSON(&job); err != nil {
			fail(c, http.StatusBadRequest, "无效的请求参数")
			return
		}
		if job.Name == "" || job.Schedule == "" {
			fail(c, http.StatusBadRequest, "必须指定name和schedule")
			return
		}

		if err := sched.UpdateJob(job); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		ok(c, gin.H{"job": job.Name})
	}
}
