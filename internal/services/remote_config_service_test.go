package services

import (
	"context"
	"testing"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apperr"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/kv"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteConfigTypedValues(t *testing.T) {
	ctx := context.Background()
	svc := NewRemoteConfigService(kv.New(testutil.NewDB(t)), 2, "Русский")

	_, err := svc.Set(ctx, "maintenance_mode", "true", ConfigBool)
	require.NoError(t, err)
	_, err = svc.Set(ctx, "motd", "hello", "")
	require.NoError(t, err)
	_, err = svc.Set(ctx, "themes", `["light","dark"]`, ConfigJSON)
	require.NoError(t, err)

	all, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, all["maintenance_mode"])
	assert.Equal(t, "hello", all["motd"])
	assert.Equal(t, []interface{}{"light", "dark"}, all["themes"])

	_, err = svc.Set(ctx, "x", "yes please", ConfigBool)
	assert.True(t, apperr.IsCode(err, apperr.InvalidArgument))
	_, err = svc.Set(ctx, "x", "1", "float")
	assert.True(t, apperr.IsCode(err, apperr.InvalidArgument))
	_, err = svc.Set(ctx, "", "1", ConfigInt)
	assert.True(t, apperr.IsCode(err, apperr.InvalidArgument))

	require.NoError(t, svc.Delete(ctx, "motd"))
	assert.True(t, apperr.IsCode(svc.Delete(ctx, "motd"), apperr.NotFound))
}

func TestDailyConfessionLimitOverride(t *testing.T) {
	ctx := context.Background()
	svc := NewRemoteConfigService(kv.New(testutil.NewDB(t)), 2, "Русский")

	assert.Equal(t, 2, svc.DailyConfessionLimit(ctx))

	_, err := svc.Set(ctx, DailyConfessionLimitKey, "5", ConfigInt)
	require.NoError(t, err)
	assert.Equal(t, 5, svc.DailyConfessionLimit(ctx))

	_, err = svc.Set(ctx, DailyConfessionLimitKey, "many", ConfigString)
	assert.True(t, apperr.IsCode(err, apperr.InvalidArgument))
	assert.Equal(t, 5, svc.DailyConfessionLimit(ctx))

	require.NoError(t, svc.Delete(ctx, DailyConfessionLimitKey))
	assert.Equal(t, 2, svc.DailyConfessionLimit(ctx))
}

func TestSeedDefaultsKeepsExisting(t *testing.T) {
	ctx := context.Background()
	svc := NewRemoteConfigService(kv.New(testutil.NewDB(t)), 2, "Русский")

	_, err := svc.Set(ctx, "maintenance_mode", "true", ConfigBool)
	require.NoError(t, err)
	require.NoError(t, svc.SeedDefaults(ctx))

	all, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, all["maintenance_mode"])
	assert.Equal(t, "Русский", all["default_language"])
	assert.Len(t, all, 4)
}
