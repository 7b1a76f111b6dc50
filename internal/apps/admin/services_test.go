package admin

import (
	"context"
	"testing"
	"time"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apps/confession"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apps/donation"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apps/profile"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/karma"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/kv"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/models"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersCollectsStats(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	store := kv.New(db)
	profiles := profile.NewService(store, "Русский")
	confessions := confession.NewService(store, profiles, karma.NewAnalyzer(nil, "Русский"), confession.StaticLimit(-1))
	donations := donation.NewService(store, profiles)
	svc := NewService(db, profiles, confessions, donations)

	older := models.User{ID: uuid.New(), Email: "old@example.com", Password: "x", CreatedAt: time.Now().Add(-time.Hour)}
	newer := models.User{ID: uuid.New(), Email: "new@example.com", Password: "x", FullName: "New User"}
	require.NoError(t, db.Create(&older).Error)
	require.NoError(t, db.Create(&newer).Error)

	uid := newer.ID.String()
	msgs := []models.Message{{Role: models.RoleUserMessage, Content: "hi"}}
	c, err := confessions.Create(ctx, uid, msgs, 0, "")
	require.NoError(t, err)
	_, err = confessions.Complete(ctx, c.ID, 6)
	require.NoError(t, err)
	_, err = confessions.Create(ctx, uid, msgs, 0, "")
	require.NoError(t, err)
	_, err = donations.Record(ctx, uid, 10)
	require.NoError(t, err)
	require.NoError(t, profiles.SetSubscription(ctx, uid, true))

	users, err := svc.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.Equal(t, uid, users[0].ID)
	assert.Equal(t, "New User", users[0].Name)
	assert.Equal(t, 6, users[0].Karma)
	assert.Equal(t, 1, users[0].ConfessionsCount)
	assert.True(t, users[0].HasSubscription)
	assert.Equal(t, 10.0, users[0].TotalDonations)

	assert.Equal(t, "old@example.com", users[1].Name)
	assert.Zero(t, users[1].Karma)
}
