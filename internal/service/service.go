package service

import (
	"go.uber.org/zap"

	"substore/config"
	"substore/internal/eventbus"
	"substore/internal/exporter"
	"substore/internal/repository"
	"substore/internal/service/task"
)

// Services 存储所有服务的集合
type Services struct {
	Subscription  SubscriptionService
	Collection    CollectionService
	Artifact      ArtifactService
	File          FileService
	Share         ShareService
	Notifications *NotificationCenter
	Tasks         task.TaskManager
}

// NewServices 创建所有服务的集合
func NewServices(cfg *config.Config, repos *repository.Repositories, bus eventbus.EventBus, log *zap.SugaredLogger) *Services {
	tasks := task.NewTaskManager()
	exp := exporter.New(cfg.Export.Dir)
	debounceWindow := cfg.Sync.Debounce()
	concurrent := cfg.Concurrent

	return &Services{
		Subscription:  NewSubscriptionService(repos.Subscription, repos.Preferences, bus, tasks, exp, debounceWindow, concurrent, log),
		Collection:    NewCollectionService(repos.Collection, bus, tasks, exp, debounceWindow, concurrent, log),
		Artifact:      NewArtifactService(repos.Artifact, repos.Preferences, bus, tasks, exp, debounceWindow, concurrent, log),
		File:          NewFileService(repos.File, repos.Preferences, bus, tasks, exp, debounceWindow, concurrent, log),
		Share:         NewShareService(repos.Share, bus, tasks, exp, debounceWindow, concurrent, log),
		Notifications: NewNotificationCenter(bus, cfg.Webhooks, log),
		Tasks:         tasks,
	}
}
