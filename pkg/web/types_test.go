package web_test

import (
	"testing"

	"github.com/flowrift/flowrift/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestPublishRequest_Validation(t *testing.T) {
	t.Parallel()

	v := validator.New()

	tests := []struct {
		name    string
		request web.PublishRequest
		wantErr bool
	}{
		{
			name: "valid request",
			request: web.PublishRequest{
				UserID:    "user-1",
				Changelog: "first release",
			},
			wantErr: false,
		},
		{
			name: "changelog is optional",
			request: web.PublishRequest{
				UserID: "user-1",
			},
			wantErr: false,
		},
		{
			name:    "missing user id",
			request: web.PublishRequest{Changelog: "no author"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := v.Struct(tt.request)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRollbackRequest_Validation(t *testing.T) {
	t.Parallel()

	v := validator.New()

	tests := []struct {
		name    string
		request web.RollbackRequest
		wantErr bool
	}{
		{
			name: "valid request",
			request: web.RollbackRequest{
				VersionID: "version-1",
				UserID:    "user-1",
				Reason:    "regression in production",
			},
			wantErr: false,
		},
		{
			name:    "missing version id",
			request: web.RollbackRequest{UserID: "user-1"},
			wantErr: true,
		},
		{
			name:    "missing user id",
			request: web.RollbackRequest{VersionID: "version-1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := v.Struct(tt.request)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUpdateStatusRequest_Validation(t *testing.T) {
	t.Parallel()

	v := validator.New()

	for _, status := range []string{"draft", "active", "inactive", "archived"} {
		err := v.Struct(web.UpdateStatusRequest{Status: status, UserID: "user-1"})
		assert.NoError(t, err, "status %q should be accepted", status)
	}

	err := v.Struct(web.UpdateStatusRequest{Status: "paused", UserID: "user-1"})
	assert.Error(t, err, "unknown status should be rejected")

	err = v.Struct(web.UpdateStatusRequest{UserID: "user-1"})
	assert.Error(t, err, "missing status should be rejected")
}

func TestBreakerResetRequest_Validation(t *testing.T) {
	t.Parallel()

	v := validator.New()

	assert.NoError(t, v.Struct(web.BreakerResetRequest{Provider: "openai", Model: "gpt-4o"}))
	assert.NoError(t, v.Struct(web.BreakerResetRequest{Provider: "openai"}))
	assert.Error(t, v.Struct(web.BreakerResetRequest{Model: "gpt-4o"}))
}
