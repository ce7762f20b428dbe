package syncer

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"substore/internal/model"
)

func sub(id string, updatedAt time.Time, content string) model.Subscription {
	return model.Subscription{
		ID:        id,
		Name:      id,
		Source:    model.SubscriptionSourceLocal,
		Content:   content,
		UpdatedAt: updatedAt,
	}
}

func TestMerge_RemoteNewerReplacesLocal(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	local := []model.Subscription{sub("a", base, "old")}
	remote := []model.Subscription{sub("a", base.Add(time.Hour), "new")}

	outcome := Merge(local, remote)

	assert.Len(t, outcome.Merged, 1)
	assert.Equal(t, "new", outcome.Merged[0].Content)
	assert.Equal(t, []string{"a"}, outcome.Synced)
	assert.Empty(t, outcome.Conflicts)
}

func TestMerge_LocalNewerKeepsLocalAndRecordsConflict(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	local := []model.Subscription{sub("a", base.Add(time.Hour), "local")}
	remote := []model.Subscription{sub("a", base, "remote")}

	outcome := Merge(local, remote)

	assert.Len(t, outcome.Merged, 1)
	assert.Equal(t, "local", outcome.Merged[0].Content)
	assert.Empty(t, outcome.Synced)
	assert.Len(t, outcome.Conflicts, 1)
	assert.Equal(t, "a", outcome.Conflicts[0].EntityID)
	assert.Equal(t, model.ConflictTypeContent, outcome.Conflicts[0].Type)
	assert.Equal(t, base.Add(time.Hour), outcome.Conflicts[0].LocalUpdatedAt)
	assert.Equal(t, base, outcome.Conflicts[0].RemoteUpdatedAt)
}

func TestMerge_UnknownRemoteAppended(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	local := []model.Subscription{sub("a", base, "a")}
	remote := []model.Subscription{sub("b", base, "b")}

	outcome := Merge(local, remote)

	assert.Len(t, outcome.Merged, 2)
	assert.Equal(t, []string{"b"}, outcome.Synced)
	assert.Empty(t, outcome.Conflicts)
}

func TestMerge_LocalOnlyEntitiesUntouched(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	local := []model.Subscription{sub("a", base, "a"), sub("b", base, "b")}
	remote := []model.Subscription{sub("a", base.Add(time.Minute), "a2")}

	outcome := Merge(local, remote)

	assert.Len(t, outcome.Merged, 2)
	// 远端没有的本地实体原样保留
	assert.Equal(t, "b", outcome.Merged[1].Content)
}

func TestMerge_NeverBlendsFields(t *testing.T) {
	// 合并是整体替换或整体保留，不能字段级混合
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	localEntity := sub("a", base, "local-content")
	localEntity.Tags = []string{"local-tag"}
	remoteEntity := sub("a", base.Add(time.Hour), "remote-content")
	remoteEntity.Tags = []string{"remote-tag"}

	outcome := Merge([]model.Subscription{localEntity}, []model.Subscription{remoteEntity})

	if diff := cmp.Diff(remoteEntity, outcome.Merged[0]); diff != "" {
		t.Errorf("merged entity differs from remote (-want +got):\n%s", diff)
	}
}

func TestMerge_EqualTimestampsTakesRemote(t *testing.T) {
	// 时间戳相等不算本地更新，远端获胜
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	local := []model.Subscription{sub("a", base, "local")}
	remote := []model.Subscription{sub("a", base, "remote")}

	outcome := Merge(local, remote)

	assert.Equal(t, "remote", outcome.Merged[0].Content)
	assert.Equal(t, []string{"a"}, outcome.Synced)
}

func TestMerge_EmptyInputs(t *testing.T) {
	outcome := Merge([]model.Subscription{}, []model.Subscription{})
	assert.Empty(t, outcome.Merged)
	assert.Empty(t, outcome.Synced)
	assert.Empty(t, outcome.Conflicts)
}

func TestMergeOutcome_Result(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	outcome := Merge(
		[]model.Subscription{sub("a", base.Add(time.Hour), "local")},
		[]model.Subscription{sub("a", base, "remote"), sub("b", base, "b")},
	)

	result := outcome.Result("done")

	assert.True(t, result.Success)
	assert.Equal(t, []string{"b"}, result.SyncedIDs)
	assert.Len(t, result.Conflicts, 1)
	assert.Equal(t, "done", result.Message)
	assert.False(t, result.SyncedAt.IsZero())
}
