package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"substore/config"
	"substore/internal/service"
)

// 内置巡检任务名，用户配置的定时任务不允许占用
const autoSyncJobName = "auto-sync-check"

// Scheduler 定时任务调度器。自动同步巡检和用户配置的定时任务
// 都跑在同一个cron实例上。
type Scheduler struct {
	cron      *cron.Cron
	jobMutex  sync.Mutex
	isRunning bool
	services  *service.Services
	log       *zap.SugaredLogger
	jobIDs    map[string]cron.EntryID // 存储任务ID，用于更新
}

// NewScheduler 创建调度器
func NewScheduler(services *service.Services, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		isRunning: false,
		services:  services,
		log:       log,
		jobIDs:    make(map[string]cron.EntryID),
	}
}

// Init 启动调度器
func (s *Scheduler) Init(cfg *config.Config) error {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	// 如果已经在运行，先停止
	if s.isRunning {
		s.cron.Stop()
	}

	// 重新创建cron
	s.cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	s.jobIDs = make(map[string]cron.EntryID)

	// 内置的自动同步巡检：周期性检查各族到期的同步配置
	if cfg.Sync.CheckIntervalSeconds > 0 {
		schedule := fmt.Sprintf("@every %ds", cfg.Sync.CheckIntervalSeconds)
		entryID, err := s.cron.AddFunc(schedule, s.runDueSyncs)
		if err != nil {
			return fmt.Errorf("failed to add auto sync job: %w", err)
		}
		s.jobIDs[autoSyncJobName] = entryID
		s.log.Infow("已添加自动同步巡检任务", "interval_seconds", cfg.Sync.CheckIntervalSeconds)
	}

	// 用户配置的定时任务
	for _, job := range cfg.CronJobs {
		if job.Schedule == "" {
			s.log.Warnw("定时任务缺少schedule，已跳过", "job", job.Name)
			continue
		}
		if job.Name == autoSyncJobName {
			s.log.Warnw("定时任务名与内置任务冲突，已跳过", "job", job.Name)
			continue
		}

		jobConfig := job // 创建副本避免闭包问题
		entryID, err := s.cron.AddFunc(jobConfig.Schedule, func() {
			s.executeJob(jobConfig)
		})
		if err != nil {
			s.log.Warnw("定时任务添加失败", "job", job.Name, "err", err)
			continue
		}

		s.jobIDs[job.Name] = entryID
		s.log.Infow("已添加定时任务", "job", job.Name, "schedule", job.Schedule)
	}

	s.cron.Start()
	s.isRunning = true
	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	if s.isRunning {
		s.cron.Stop()
		s.isRunning = false
		s.log.Info("调度器已停止")
	}
}

// UpdateJob 更新单个任务
func (s *Scheduler) UpdateJob(job config.CronJob) error {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	if job.Name == autoSyncJobName {
		return fmt.Errorf("job name %s is reserved", autoSyncJobName)
	}

	// 如果任务已存在，先移除
	if id, exists := s.jobIDs[job.Name]; exists {
		s.cron.Remove(id)
		delete(s.jobIDs, job.Name)
	}

	jobConfig := job // 创建副本避免闭包问题
	entryID, err := s.cron.AddFunc(jobConfig.Schedule, func() {
		s.executeJob(jobConfig)
	})
	if err != nil {
		s.log.Warnw("定时任务更新失败", "job", job.Name, "err", err)
		return err
	}

	s.jobIDs[job.Name] = entryID
	s.log.Infow("已更新定时任务", "job", job.Name, "schedule", job.Schedule)
	return nil
}

// runDueSyncs 对所有支持同步的实体族执行到期的自动同步
func (s *Scheduler) runDueSyncs() {
	defer s.recoverJob(autoSyncJobName)

	// 有批量或手动触发的任务在跑时跳过本轮巡检，避免争抢同类型任务槽
	if s.services.Tasks.IsAnyRunning() {
		s.log.Infow("有任务正在运行，跳过本轮自动同步巡检")
		return
	}

	ctx := context.Background()
	s.services.Subscription.RunDueSyncs(ctx)
	s.services.Artifact.RunDueSyncs(ctx)
	s.services.File.RunDueSyncs(ctx)
}

// executeJob 执行用户配置的定时任务
func (s *Scheduler) executeJob(job config.CronJob) {
	defer s.recoverJob(job.Name)

	s.log.Infow("执行定时任务", "job", job.Name)
	ctx := context.Background()

	if job.SyncSubscriptions {
		s.services.Subscription.RunDueSyncs(ctx)
	}
	if job.SyncArtifacts {
		s.services.Artifact.RunDueSyncs(ctx)
	}
	if job.SyncFiles {
		s.services.File.RunDueSyncs(ctx)
	}
	if job.RefreshFlow {
		s.services.Subscription.RefreshFlows(ctx)
	}
}

// recoverJob 任务panic恢复
func (s *Scheduler) recoverJob(name string) {
	if r := recover(); r != nil {
		s.log.Errorw("定时任务panic", "job", name, "panic", r)
	}
}

// GetStatus 获取调度器状态
func (s *Scheduler) GetStatus() map[string]interface{} {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	status := make(map[string]interface{})
	status["is_running"] = s.isRunning

	jobs := make(map[string]interface{})
	for name, id := range s.jobIDs {
		entry := s.cron.Entry(id)
		jobStatus := make(map[string]interface{})
		jobStatus["next_run"] = entry.Next.Format(time.RFC3339)
		jobStatus["prev_run"] = entry.Prev.Format(time.RFC3339)
		jobs[name] = jobStatus
	}

	status["jobs"] = jobs
	return status
}
