package donation

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apperr"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apps/profile"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/kv"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServices(t *testing.T) (*Service, *profile.Service) {
	t.Helper()
	store := kv.New(testutil.NewDB(t))
	profiles := profile.NewService(store, "Русский")
	return NewService(store, profiles), profiles
}

func TestRecordUpdatesTotal(t *testing.T) {
	ctx := context.Background()
	svc, profiles := newServices(t)
	frozen := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return frozen }

	first, err := svc.Record(ctx, "u1", 5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, first.TotalDonations)

	second, err := svc.Record(ctx, "u1", 2.5)
	require.NoError(t, err)
	assert.Equal(t, 7.5, second.TotalDonations)
	assert.NotEqual(t, first.Donation.ID, second.Donation.ID)

	p, found, err := profiles.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 7.5, p.TotalDonations)
	assert.Equal(t, "Русский", p.Language)

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRecordRejectsBadAmounts(t *testing.T) {
	ctx := context.Background()
	svc, profiles := newServices(t)

	for _, amount := range []float64{0, -1, math.NaN(), math.Inf(1), maxAmount + 1} {
		_, err := svc.Record(ctx, "u1", amount)
		assert.True(t, apperr.IsCode(err, apperr.InvalidArgument), amount)
	}
	_, err := svc.Record(ctx, "", 5)
	assert.True(t, apperr.IsCode(err, apperr.InvalidArgument))

	_, found, err := profiles.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListOnlyOwnDonations(t *testing.T) {
	ctx := context.Background()
	svc, _ := newServices(t)

	_, err := svc.Record(ctx, "a", 1)
	require.NoError(t, err)
	_, err = svc.Record(ctx, "a:b", 2)
	require.NoError(t, err)
	_, err = svc.Record(ctx, "A", 3)
	require.NoError(t, err)

	list, err := svc.List(ctx, "a")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1.0, list[0].Amount)
}
