package service

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"substore/internal/model"
)

// BatchOperation 批量操作类型
type BatchOperation string

const (
	BatchEnable  BatchOperation = "enable"
	BatchDisable BatchOperation = "disable"
	BatchDelete  BatchOperation = "delete"
	BatchTest    BatchOperation = "test"
	BatchSync    BatchOperation = "sync"
	BatchExport  BatchOperation = "export"
)

// BatchResult 批量操作结果，逐实体记录成败
type BatchResult struct {
	Operation  BatchOperation    `json:"operation"`
	Succeeded  []string          `json:"succeeded"`
	Failed     map[string]string `json:"failed,omitempty"`
	ExportPath string            `json:"exportPath,omitempty"`
}

// FailedCount 失败实体数
func (r *BatchResult) FailedCount() int {
	return len(r.Failed)
}

// runBatch 并发地对每个实体执行apply。单个实体失败不会中断其余实体，
// 完成顺序与提交顺序无关。onDone在每个实体结束后回调，用于上报进度。
func runBatch[T model.Syncable](
	ctx context.Context,
	concurrent int,
	entities []T,
	apply func(ctx context.Context, entity T) error,
	onDone func(completed int),
) (succeeded []string, failed map[string]string) {
	if concurrent <= 0 {
		concurrent = 1
	}

	var mu sync.Mutex
	failed = make(map[string]string)
	completed := 0

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrent)
	for _, entity := range entities {
		entity := entity
		group.Go(func() error {
			err := apply(groupCtx, entity)

			mu.Lock()
			if err != nil {
				failed[entity.GetID()] = err.Error()
			} else {
				succeeded = append(succeeded, entity.GetID())
			}
			completed++
			done := completed
			mu.Unlock()

			if onDone != nil {
				onDone(done)
			}
			// 失败不上抛，保证其余实体继续执行
			return nil
		})
	}
	_ = group.Wait()

	return succeeded, failed
}
