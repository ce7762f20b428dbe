package util

import (
	"net/url"
	"strings"

	"substore/internal/apperrors"
	"substore/internal/model"
)

// ValidationRule 表示一条表单校验规则
type ValidationRule struct {
	Field  string      // 被校验的字段
	OK     func() bool // 规则是否满足
	Reason string      // 不满足时的提示
}

// runRules 依次评估规则，返回第一条失败的校验错误
func runRules(rules []ValidationRule) error {
	for _, rule := range rules {
		if !rule.OK() {
			return &apperrors.ValidationError{Field: rule.Field, Reason: rule.Reason}
		}
	}
	return nil
}

// ValidateSubscription 订阅表单校验，在任何网络请求之前执行。
// 不变量：URL和Content有且只有一个非空，由Source决定。
func ValidateSubscription(sub model.Subscription) error {
	return runRules([]ValidationRule{
		{Field: "name", OK: func() bool { return strings.TrimSpace(sub.Name) != "" }, Reason: "name is required"},
		{Field: "source", OK: func() bool {
			return sub.Source == model.SubscriptionSourceRemote || sub.Source == model.SubscriptionSourceLocal
		}, Reason: "source must be remote or local"},
		{Field: "url", OK: func() bool {
			if sub.Source != model.SubscriptionSourceRemote {
				return true
			}
			return sub.URL != "" && sub.Content == ""
		}, Reason: "remote subscription requires url and no inline content"},
		{Field: "url", OK: func() bool {
			if sub.Source != model.SubscriptionSourceRemote {
				return true
			}
			u, err := url.Parse(sub.URL)
			return err == nil && u.Scheme != "" && u.Host != ""
		}, Reason: "url is not a valid absolute URL"},
		{Field: "content", OK: func() bool {
			if sub.Source != model.SubscriptionSourceLocal {
				return true
			}
			return sub.Content != "" && sub.URL == ""
		}, Reason: "local subscription requires inline content and no url"},
	})
}

// ValidateArtifact 产物表单校验
func ValidateArtifact(artifact model.Artifact) error {
	return runRules([]ValidationRule{
		{Field: "name", OK: func() bool { return strings.TrimSpace(artifact.Name) != "" }, Reason: "name is required"},
		{Field: "type", OK: func() bool { return artifact.Type != "" }, Reason: "type is required"},
		{Field: "content", OK: func() bool { return artifact.Content != "" }, Reason: "content is required"},
	})
}

// ValidateFile 文件表单校验
func ValidateFile(file model.File) error {
	return runRules([]ValidationRule{
		{Field: "name", OK: func() bool { return strings.TrimSpace(file.Name) != "" }, Reason: "name is required"},
		{Field: "type", OK: func() bool { return file.Type != "" }, Reason: "type is required"},
	})
}

// ValidateShare 分享表单校验
func ValidateShare(share model.Share) error {
	return runRules([]ValidationRule{
		{Field: "name", OK: func() bool { return strings.TrimSpace(share.Name) != "" }, Reason: "name is required"},
		{Field: "type", OK: func() bool {
			switch share.Type {
			case model.ShareTypeSubscription, model.ShareTypeCollection, model.ShareTypeArtifact, model.ShareTypeFile:
				return true
			}
			return false
		}, Reason: "unknown share target type"},
		{Field: "targetId", OK: func() bool { return share.TargetID != "" }, Reason: "target is required"},
	})
}

// ValidateCollection 组合订阅表单校验
func ValidateCollection(collection model.Collection) error {
	return runRules([]ValidationRule{
		{Field: "name", OK: func() bool { return strings.TrimSpace(collection.Name) != "" }, Reason: "name is required"},
		{Field: "subscriptions", OK: func() bool { return len(collection.Subscriptions) > 0 }, Reason: "at least one subscription is required"},
	})
}

// ValidateSyncConfig 同步配置校验
func ValidateSyncConfig(cfg model.SyncConfig) error {
	return runRules([]ValidationRule{
		{Field: "provider", OK: func() bool {
			return cfg.Provider == model.SyncProviderGist || cfg.Provider == model.SyncProviderSnippet
		}, Reason: "provider must be gist or snippet"},
		{Field: "token", OK: func() bool { return cfg.Token != "" }, Reason: "access token is required"},
		{Field: "interval", OK: func() bool { return cfg.Interval > 0 }, Reason: "interval must be positive"},
	})
}
