package syncer

import (
	"time"

	"substore/internal/model"
)

// MergeOutcome 一次合并的产出
type MergeOutcome[T model.Syncable] struct {
	Merged    []T                  // 合并后的集合，本地顺序保留，新增实体追加在尾部
	Synced    []string             // 被远端版本覆盖或新增的实体ID
	Conflicts []model.SyncConflict // 本地较新而被保留的冲突记录
}

// Merge 按最后写入者获胜规则合并远端拉取结果与本地集合。
//
// 远端实体在本地不存在时直接追加；本地updatedAt严格大于远端时保留本地
// 并记录冲突；否则远端版本原位替换本地版本。结果中的每个实体要么等于
// 本地版本要么等于远端版本，不做字段级混合。时间戳由客户端提供，设备间
// 时钟偏差不在本规则的防护范围内。
func Merge[T model.Syncable](local, remote []T) MergeOutcome[T] {
	merged := make([]T, len(local))
	copy(merged, local)

	index := make(map[string]int, len(local))
	for i, entity := range local {
		index[entity.GetID()] = i
	}

	outcome := MergeOutcome[T]{}
	for _, fetched := range remote {
		pos, exists := index[fetched.GetID()]
		if !exists {
			merged = append(merged, fetched)
			outcome.Synced = append(outcome.Synced, fetched.GetID())
			continue
		}

		localEntity := merged[pos]
		if localEntity.GetUpdatedAt().After(fetched.GetUpdatedAt()) {
			// 本地较新：保留本地，记录冲突，不覆盖
			outcome.Conflicts = append(outcome.Conflicts, model.SyncConflict{
				EntityID:        fetched.GetID(),
				Type:            model.ConflictTypeContent,
				LocalUpdatedAt:  localEntity.GetUpdatedAt(),
				RemoteUpdatedAt: fetched.GetUpdatedAt(),
			})
			continue
		}

		merged[pos] = fetched
		outcome.Synced = append(outcome.Synced, fetched.GetID())
	}

	outcome.Merged = merged
	return outcome
}

// Result 把合并产出转换为同步结果记录
func (o MergeOutcome[T]) Result(message string) model.SyncResult {
	return model.SyncResult{
		Success:   true,
		SyncedIDs: o.Synced,
		Conflicts: o.Conflicts,
		Message:   message,
		SyncedAt:  time.Now(),
	}
}
