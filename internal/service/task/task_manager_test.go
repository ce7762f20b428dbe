package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskManager_SameTypeExclusive(t *testing.T) {
	m := NewTaskManager()

	taskCtx, started := m.StartTask(context.Background(), TaskTypeBatch, 3)
	assert.True(t, started)
	assert.NotNil(t, taskCtx)

	// 同类型任务互斥，不同类型可以并行
	_, started = m.StartTask(context.Background(), TaskTypeBatch, 1)
	assert.False(t, started)
	_, started = m.StartTask(context.Background(), TaskTypeSync, 1)
	assert.True(t, started)

	m.FinishTask(TaskTypeBatch, "")
	_, started = m.StartTask(context.Background(), TaskTypeBatch, 1)
	assert.True(t, started)
}

func TestTaskManager_UpdateTotalRecalculatesProgress(t *testing.T) {
	m := NewTaskManager()

	// 总数在任务启动时未知，确定后再补报
	_, started := m.StartTask(context.Background(), TaskTypeFlowRefresh, 0)
	assert.True(t, started)

	m.UpdateTotal(TaskTypeFlowRefresh, 4)
	m.UpdateProgress(TaskTypeFlowRefresh, 2, "")

	status := m.GetStatus(TaskTypeFlowRefresh)
	assert.NotNil(t, status)
	assert.Equal(t, 4, status.Total)
	assert.Equal(t, 2, status.Completed)
	assert.Equal(t, 50, status.Progress)
}

func TestTaskManager_UpdateTotalIgnoredAfterFinish(t *testing.T) {
	m := NewTaskManager()

	m.StartTask(context.Background(), TaskTypeSync, 2)
	m.FinishTask(TaskTypeSync, "")
	m.UpdateTotal(TaskTypeSync, 10)

	status := m.GetStatus(TaskTypeSync)
	assert.Equal(t, 2, status.Total)
}

func TestTaskManager_IsAnyRunning(t *testing.T) {
	m := NewTaskManager()
	assert.False(t, m.IsAnyRunning())

	m.StartTask(context.Background(), TaskTypeBatch, 1)
	assert.True(t, m.IsAnyRunning())
	assert.True(t, m.IsRunning(TaskTypeBatch))
	assert.False(t, m.IsRunning(TaskTypeSync))

	m.FinishTask(TaskTypeBatch, "")
	assert.False(t, m.IsAnyRunning())
}

func TestTaskManager_CancelTaskCancelsContext(t *testing.T) {
	m := NewTaskManager()

	taskCtx, started := m.StartTask(context.Background(), TaskTypeBatch, 1)
	assert.True(t, started)

	cancelled, timedOut := m.CancelTask(TaskTypeBatch, false)
	assert.True(t, cancelled)
	assert.False(t, timedOut)

	select {
	case <-taskCtx.Done():
	default:
		t.Fatal("task context should be cancelled")
	}
}
