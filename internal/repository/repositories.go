package repository

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"substore/internal/client"
)

// Repositories 存储所有仓库的集合
type Repositories struct {
	Subscription SubscriptionRepository
	Collection   CollectionRepository
	Artifact     ArtifactRepository
	File         FileRepository
	Share        ShareRepository
	Preferences  PreferencesRepository
}

// NewRepositories 创建所有仓库的集合
func NewRepositories(api *client.Client, db *gorm.DB, log *zap.SugaredLogger) *Repositories {
	return &Repositories{
		Subscription: NewSubscriptionRepository(api, db, log),
		Collection:   NewCollectionRepository(api, db, log),
		Artifact:     NewArtifactRepository(api, db, log),
		File:         NewFileRepository(api, db, log),
		Share:        NewShareRepository(api, db, log),
		Preferences:  NewPreferencesRepository(db),
	}
}
