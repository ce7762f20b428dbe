package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFlowInfo_UsedPercent(t *testing.T) {
	flow := &FlowInfo{Used: 25, Total: 100}
	assert.Equal(t, 25.0, flow.UsedPercent())

	// 超额封顶100
	over := &FlowInfo{Used: 150, Total: 100}
	assert.Equal(t, 100.0, over.UsedPercent())

	// 不限量和数据缺失都是0
	assert.Equal(t, 0.0, (&FlowInfo{Unlimited: true, Used: 5, Total: 10}).UsedPercent())
	assert.Equal(t, 0.0, (&FlowInfo{Used: 5}).UsedPercent())
	var nilFlow *FlowInfo
	assert.Equal(t, 0.0, nilFlow.UsedPercent())
}

func TestFlowInfo_Remaining(t *testing.T) {
	assert.Equal(t, int64(75), (&FlowInfo{Used: 25, Total: 100}).Remaining())
	assert.Equal(t, int64(0), (&FlowInfo{Used: 150, Total: 100}).Remaining())
	assert.Equal(t, int64(-1), (&FlowInfo{Unlimited: true}).Remaining())
	var nilFlow *FlowInfo
	assert.Equal(t, int64(-1), nilFlow.Remaining())
}

func TestFlowInfo_IsExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, (&FlowInfo{ExpireAt: &past}).IsExpired(now))
	assert.False(t, (&FlowInfo{ExpireAt: &future}).IsExpired(now))
	assert.False(t, (&FlowInfo{}).IsExpired(now))
	var nilFlow *FlowInfo
	assert.False(t, nilFlow.IsExpired(now))
}

func TestShare_IsExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, Share{ExpiresAt: &past}.IsExpired(now))
	assert.False(t, Share{ExpiresAt: &future}.IsExpired(now))
	// 未设置过期时间的分享永不过期
	assert.False(t, Share{}.IsExpired(now))
}

func TestFile_Size(t *testing.T) {
	assert.Equal(t, int64(0), File{}.Size())
	assert.Equal(t, int64(5), File{Content: "hello"}.Size())
}

func TestSyncConfig_IsDue(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// 禁用的配置永不到期
	assert.False(t, SyncConfig{Enabled: false, Interval: 60}.IsDue(now))

	// 从未同步过的启用配置立即到期
	assert.True(t, SyncConfig{Enabled: true, Interval: 60}.IsDue(now))

	recent := now.Add(-30 * time.Second)
	old := now.Add(-2 * time.Minute)
	assert.False(t, SyncConfig{Enabled: true, Interval: 60, LastSyncAt: &recent}.IsDue(now))
	assert.True(t, SyncConfig{Enabled: true, Interval: 60, LastSyncAt: &old}.IsDue(now))

	// 正好到达间隔边界算到期
	boundary := now.Add(-60 * time.Second)
	assert.True(t, SyncConfig{Enabled: true, Interval: 60, LastSyncAt: &boundary}.IsDue(now))
}
