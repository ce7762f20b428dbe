package service

import (
	"strings"
)

// 实体族名称，用于事件、偏好键和导出文档
const (
	FamilySubscriptions = "subscriptions"
	FamilyCollections   = "collections"
	FamilyArtifacts     = "artifacts"
	FamilyFiles         = "files"
	FamilyShares        = "shares"
)

// matchTags 实体标签是否为选中标签集的超集，选中集为空时恒真
func matchTags(entityTags, selected []string) bool {
	if len(selected) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(entityTags))
	for _, tag := range entityTags {
		set[tag] = struct{}{}
	}
	for _, tag := range selected {
		if _, ok := set[tag]; !ok {
			return false
		}
	}
	return true
}

// joinTags 把标签拼成一个可搜索字段
func joinTags(tags []string) string {
	return strings.Join(tags, " ")
}

// matchSearch 对给定字段做大小写不敏感的子串匹配，查询为空时恒真
func matchSearch(query string, fields ...string) bool {
	if query == "" {
		return true
	}
	query = strings.ToLower(query)
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// selection 选中的实体ID集合
type selection map[string]struct{}

// toggle 切换单个ID的选中状态
func (s selection) toggle(id string) {
	if _, ok := s[id]; ok {
		delete(s, id)
	} else {
		s[id] = struct{}{}
	}
}

// containsAll 给定ID是否全部已选中
func (s selection) containsAll(ids []string) bool {
	for _, id := range ids {
		if _, ok := s[id]; !ok {
			return false
		}
	}
	return true
}

// ids 当前选中的ID列表
func (s selection) ids() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}
