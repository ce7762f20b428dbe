package model

import (
	"time"
)

// SubscriptionSource 订阅来源
type SubscriptionSource string

const (
	SubscriptionSourceRemote SubscriptionSource = "remote" // 远程订阅，内容从URL拉取
	SubscriptionSourceLocal  SubscriptionSource = "local"  // 本地订阅，内容内联存储
)

// Subscription 订阅
type Subscription struct {
	ID          string             `json:"id" gorm:"primaryKey"`
	Name        string             `json:"name" gorm:"uniqueIndex:idx_subscriptions_name"`
	DisplayName string             `json:"displayName,omitempty"`
	Source      SubscriptionSource `json:"source"`
	URL         string             `json:"url,omitempty"`     // source=remote时使用
	Content     string             `json:"content,omitempty"` // source=local时使用
	Tags        []string           `json:"tags" gorm:"serializer:json"`
	Enabled     bool               `json:"enabled"`
	Priority    int                `json:"priority"` // 手动排序用
	Flow        *FlowInfo          `json:"flow,omitempty" gorm:"serializer:json"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

func (s Subscription) GetID() string           { return s.ID }
func (s Subscription) GetUpdatedAt() time.Time { return s.UpdatedAt }

// FlowInfo 流量使用快照
type FlowInfo struct {
	Used      int64      `json:"used"`  // 已用字节数
	Total     int64      `json:"total"` // 总字节数
	Unlimited bool       `json:"unlimited"`
	ResetAt   *time.Time `json:"resetAt,omitempty"`
	ExpireAt  *time.Time `json:"expireAt,omitempty"`
}

// UsedPercent 已用流量百分比，0-100
func (f *FlowInfo) UsedPercent() float64 {
	if f == nil || f.Unlimited || f.Total <= 0 {
		return 0
	}
	percent := float64(f.Used) / float64(f.Total) * 100
	if percent > 100 {
		percent = 100
	}
	return percent
}

// Remaining 剩余字节数，不限量或数据缺失时返回-1
func (f *FlowInfo) Remaining() int64 {
	if f == nil || f.Unlimited || f.Total <= 0 {
		return -1
	}
	remaining := f.Total - f.Used
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// IsExpired 套餐是否已到期
func (f *FlowInfo) IsExpired(now time.Time) bool {
	return f != nil && f.ExpireAt != nil && f.ExpireAt.Before(now)
}
