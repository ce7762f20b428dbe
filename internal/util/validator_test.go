package util

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"substore/internal/apperrors"
	"substore/internal/model"
)

func TestValidateSubscription(t *testing.T) {
	valid := model.Subscription{
		Name:   "hk",
		Source: model.SubscriptionSourceRemote,
		URL:    "https://example.com/sub",
	}
	assert.NoError(t, ValidateSubscription(valid))

	tests := []struct {
		name  string
		sub   model.Subscription
		field string
	}{
		{
			name:  "missing name",
			sub:   model.Subscription{Source: model.SubscriptionSourceRemote, URL: "https://e.com/a"},
			field: "name",
		},
		{
			name:  "unknown source",
			sub:   model.Subscription{Name: "x", Source: "ftp"},
			field: "source",
		},
		{
			name:  "remote without url",
			sub:   model.Subscription{Name: "x", Source: model.SubscriptionSourceRemote},
			field: "url",
		},
		{
			name:  "remote with inline content",
			sub:   model.Subscription{Name: "x", Source: model.SubscriptionSourceRemote, URL: "https://e.com/a", Content: "inline"},
			field: "url",
		},
		{
			name:  "remote with relative url",
			sub:   model.Subscription{Name: "x", Source: model.SubscriptionSourceRemote, URL: "/relative"},
			field: "url",
		},
		{
			name:  "local without content",
			sub:   model.Subscription{Name: "x", Source: model.SubscriptionSourceLocal},
			field: "content",
		},
		{
			name:  "local with url",
			sub:   model.Subscription{Name: "x", Source: model.SubscriptionSourceLocal, Content: "c", URL: "https://e.com/a"},
			field: "content",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSubscription(tt.sub)
			var validationErr *apperrors.ValidationError
			assert.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestValidateArtifact(t *testing.T) {
	assert.NoError(t, ValidateArtifact(model.Artifact{
		Name:    "rules",
		Type:    model.ArtifactTypeRuleSet,
		Content: "DOMAIN,example.com",
	}))

	assert.Error(t, ValidateArtifact(model.Artifact{Type: model.ArtifactTypeRuleSet, Content: "x"}))
	assert.Error(t, ValidateArtifact(model.Artifact{Name: "a", Content: "x"}))
	assert.Error(t, ValidateArtifact(model.Artifact{Name: "a", Type: model.ArtifactTypeScript}))
}

func TestValidateFile(t *testing.T) {
	assert.NoError(t, ValidateFile(model.File{Name: "profile", Type: model.FileTypeYAML}))
	assert.Error(t, ValidateFile(model.File{Type: model.FileTypeYAML}))
	assert.Error(t, ValidateFile(model.File{Name: "  "}))
}

func TestValidateShare(t *testing.T) {
	assert.NoError(t, ValidateShare(model.Share{
		Name:     "share",
		Type:     model.ShareTypeSubscription,
		TargetID: "sub-1",
	}))

	assert.Error(t, ValidateShare(model.Share{Type: model.ShareTypeSubscription, TargetID: "x"}))
	assert.Error(t, ValidateShare(model.Share{Name: "a", Type: "bogus", TargetID: "x"}))
	assert.Error(t, ValidateShare(model.Share{Name: "a", Type: model.ShareTypeFile}))
}

func TestValidateCollection(t *testing.T) {
	assert.NoError(t, ValidateCollection(model.Collection{
		Name:          "all-asia",
		Subscriptions: []string{"hk"},
	}))

	assert.Error(t, ValidateCollection(model.Collection{Subscriptions: []string{"hk"}}))
	assert.Error(t, ValidateCollection(model.Collection{Name: "empty"}))
}

func TestValidateSyncConfig(t *testing.T) {
	assert.NoError(t, ValidateSyncConfig(model.SyncConfig{
		Provider: model.SyncProviderGist,
		Token:    "tok",
		Interval: 1800,
	}))

	assert.Error(t, ValidateSyncConfig(model.SyncConfig{Provider: "dropbox", Token: "tok", Interval: 1}))
	assert.Error(t, ValidateSyncConfig(model.SyncConfig{Provider: model.SyncProviderGist, Interval: 1}))
	assert.Error(t, ValidateSyncConfig(model.SyncConfig{Provider: model.SyncProviderSnippet, Token: "tok"}))
}
