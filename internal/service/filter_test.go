package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchTags(t *testing.T) {
	// 选中集为空时恒真
	assert.True(t, matchTags([]string{"a"}, nil))
	assert.True(t, matchTags(nil, nil))

	// 超集匹配：实体必须包含所有选中标签
	assert.True(t, matchTags([]string{"a", "b", "c"}, []string{"a", "b"}))
	assert.False(t, matchTags([]string{"a"}, []string{"a", "b"}))
	assert.False(t, matchTags(nil, []string{"a"}))

	// 不是交集匹配
	assert.False(t, matchTags([]string{"a", "x"}, []string{"a", "b"}))
}

func TestMatchSearch(t *testing.T) {
	// 查询为空时恒真
	assert.True(t, matchSearch("", "anything"))

	// 大小写不敏感的子串匹配
	assert.True(t, matchSearch("VMESS", "my-vmess-sub"))
	assert.True(t, matchSearch("hk", "Name", "https://example.com/HK"))
	assert.False(t, matchSearch("miss", "name", "url", "content"))

	// 任一字段命中即可
	assert.True(t, matchSearch("tag", "name", "", "tag-a tag-b"))
}

func TestSelectionToggle(t *testing.T) {
	s := selection{}
	s.toggle("a")
	assert.Contains(t, s, "a")
	s.toggle("a")
	assert.NotContains(t, s, "a")
}

func TestSelectionContainsAll(t *testing.T) {
	s := selection{"a": {}, "b": {}}
	assert.True(t, s.containsAll([]string{"a", "b"}))
	assert.True(t, s.containsAll([]string{"a"}))
	assert.True(t, s.containsAll(nil))
	assert.False(t, s.containsAll([]string{"a", "c"}))
}

func TestSelectionIDs(t *testing.T) {
	s := selection{"a": {}, "b": {}}
	assert.ElementsMatch(t, []string{"a", "b"}, s.ids())
}
