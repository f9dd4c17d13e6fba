package logger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"fireproof/internal/common"
)

func TestFromContext_CarriesIdentifiers(t *testing.T) {
	tenantID := uuid.New()
	userID := uuid.New()

	ctx := context.WithValue(context.Background(), common.RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, common.TenantIDKey, tenantID)
	ctx = context.WithValue(ctx, common.UserIDKey, userID)

	l := FromContext(ctx)

	assert.Equal(t, "req-1", l.Data["request_id"])
	assert.Equal(t, tenantID.String(), l.Data["tenant_id"])
	assert.Equal(t, userID.String(), l.Data["user_id"])
}

func TestFromContext_EmptyContext(t *testing.T) {
	l := FromContext(context.Background())
	assert.Empty(t, l.Data)
}

func TestSetup_Level(t *testing.T) {
	Setup("debug", "json", "development")
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	_, isJSON := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)

	Setup("bogus", "", "development")
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}
