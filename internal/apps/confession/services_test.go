package confession

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apperr"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apps/profile"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/karma"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/kv"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/models"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedAnalyzer struct {
	mu    sync.Mutex
	delta int
	calls int
}

func (a *fixedAnalyzer) Analyze(context.Context, []models.Message) karma.Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return karma.Result{KarmaChange: a.delta, Summary: "s", Reasoning: "r", Source: karma.SourceFallback, RubricVersion: karma.RubricVersion}
}

type fixture struct {
	svc      *Service
	store    *kv.Store
	profiles *profile.Service
	analyzer *fixedAnalyzer
}

func newFixture(t *testing.T, limit int) *fixture {
	t.Helper()
	store := kv.New(testutil.NewDB(t))
	profiles := profile.NewService(store, "Русский")
	analyzer := &fixedAnalyzer{delta: 4}
	return &fixture{
		svc:      NewService(store, profiles, analyzer, StaticLimit(limit)),
		store:    store,
		profiles: profiles,
		analyzer: analyzer,
	}
}

func (f *fixture) karma(t *testing.T, userID string) int {
	t.Helper()
	p, _, err := f.profiles.Get(context.Background(), userID)
	require.NoError(t, err)
	return p.Karma
}

func (f *fixture) createCompleted(t *testing.T, userID string, delta int) Confession {
	t.Helper()
	ctx := context.Background()
	c, err := f.svc.Create(ctx, userID, msgs("confession"), 0, "")
	require.NoError(t, err)
	res, err := f.svc.Complete(ctx, c.ID, delta)
	require.NoError(t, err)
	return res.Confession
}

func msgs(texts ...string) []models.Message {
	out := make([]models.Message, 0, len(texts))
	for i, text := range texts {
		role := models.RoleUserMessage
		if i%2 == 1 {
			role = models.RoleAssistantMessage
		}
		out = append(out, models.Message{Role: role, Content: text})
	}
	return out
}

func TestKarmaIsSumOfCompletions(t *testing.T) {
	f := newFixture(t, -1)
	deltas := []int{5, -3, 10, -10, 0, 7}
	sum := 0
	for _, d := range deltas {
		f.createCompleted(t, "u1", d)
		sum += d
	}
	assert.Equal(t, sum, f.karma(t, "u1"))
}

func TestScenarioDeleteReversesExactDelta(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, -1)

	a := f.createCompleted(t, "u1", 5)
	assert.Equal(t, 5, f.karma(t, "u1"))
	f.createCompleted(t, "u1", -3)
	assert.Equal(t, 2, f.karma(t, "u1"))

	res, err := f.svc.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Reverted)
	assert.Equal(t, -3, res.NewKarma)
	assert.Equal(t, -3, f.karma(t, "u1"))

	_, err = f.svc.Get(ctx, a.ID)
	assert.True(t, apperr.IsCode(err, apperr.NotFound))
}

func TestDeleteUncompletedLeavesKarma(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, -1)
	f.createCompleted(t, "u1", 3)

	c, err := f.svc.Create(ctx, "u1", msgs("draft-ish"), 9, "")
	require.NoError(t, err)
	_, err = f.svc.Delete(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, f.karma(t, "u1"))
}

func TestDeleteAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, -1)

	f.createCompleted(t, "u1", 4)
	f.createCompleted(t, "u1", -2)
	_, err := f.svc.Create(ctx, "u1", msgs("open"), 8, "")
	require.NoError(t, err)
	f.createCompleted(t, "u2", 6)

	// Karma adjusted outside confessions stays.
	_, err = f.profiles.Update(ctx, "u1", profile.Update{Karma: intPtr(12)}, true)
	require.NoError(t, err)

	res, err := f.svc.DeleteAll(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, res.DeletedCount)
	assert.Equal(t, 2, res.Reverted)
	assert.Equal(t, 10, f.karma(t, "u1"))

	list, err := f.svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Equal(t, 6, f.karma(t, "u2"))
	list, err = f.svc.List(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDeleteAllKeepsOverlappingUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, -1)

	f.createCompleted(t, "abc", 5)
	f.createCompleted(t, "a", 2)
	f.createCompleted(t, "a:b", 7)

	list, err := f.svc.List(ctx, "ABC")
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = f.svc.List(ctx, "a")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].UserID)

	res, err := f.svc.DeleteAll(ctx, "ABC")
	require.NoError(t, err)
	assert.Zero(t, res.DeletedCount)
	assert.Zero(t, res.NewKarma)

	res, err = f.svc.DeleteAll(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeletedCount)
	assert.Zero(t, res.NewKarma)

	assert.Equal(t, 5, f.karma(t, "abc"))
	assert.Equal(t, 7, f.karma(t, "a:b"))
	list, err = f.svc.List(ctx, "a:b")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	drifts, err := f.svc.Reconcile(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestCompleteUnknownIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, -1)
	f.createCompleted(t, "u1", 2)

	for _, id := range []string{"doesnotexist", "confession:u1:1", "profile:u1"} {
		_, err := f.svc.Complete(ctx, id, 5)
		assert.True(t, apperr.IsCode(err, apperr.NotFound), id)
		_, err = f.svc.Delete(ctx, id)
		assert.True(t, apperr.IsCode(err, apperr.NotFound), id)
	}
	assert.Equal(t, 2, f.karma(t, "u1"))
}

func TestCompleteTwiceIsConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, -1)
	c := f.createCompleted(t, "u1", 5)

	_, err := f.svc.Complete(ctx, c.ID, 5)
	assert.True(t, apperr.IsCode(err, apperr.Conflict))
	assert.Equal(t, 5, f.karma(t, "u1"))
}

func TestConcurrentCompletionAppliesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, -1)
	c, err := f.svc.Create(ctx, "u1", msgs("x"), 0, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Complete(ctx, c.ID, 3); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 3, f.karma(t, "u1"))
}

func TestCompleteClampsAndClearsDraft(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, -1)
	_, err := f.svc.SaveDraft(ctx, "u1", msgs("hello"))
	require.NoError(t, err)

	c, err := f.svc.Create(ctx, "u1", msgs("hello"), 0, "")
	require.NoError(t, err)
	assert.False(t, c.Completed)
	assert.Nil(t, c.CompletedAt)

	res, err := f.svc.Complete(ctx, c.ID, 25)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Confession.KarmaChange)
	assert.True(t, res.Confession.Completed)
	assert.NotNil(t, res.Confession.CompletedAt)
	assert.Equal(t, 10, res.NewKarma)

	draft, err := f.svc.GetDraft(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, draft)
}

func TestDraftUpsertKeepsLatest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, -1)

	first, err := f.svc.SaveDraft(ctx, "u1", msgs("a"))
	require.NoError(t, err)
	_, err = f.svc.SaveDraft(ctx, "u1", msgs("a", "b"))
	require.NoError(t, err)
	_, err = f.svc.SaveDraft(ctx, "u1", msgs("a", "b", "c"))
	require.NoError(t, err)

	entries, err := f.store.ScanPrefix(ctx, kv.ActiveConfessionPrefix)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	draft, err := f.svc.GetDraft(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Len(t, draft.Messages, 3)
	assert.Equal(t, "u1", draft.UserID)
	assert.True(t, draft.CreatedAt.Equal(first.CreatedAt))
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, -1)

	_, err := f.svc.SaveDraft(ctx, "", msgs("a"))
	assert.True(t, apperr.IsCode(err, apperr.InvalidArgument))
	_, err = f.svc.SaveDraft(ctx, "u1", nil)
	assert.True(t, apperr.IsCode(err, apperr.InvalidArgument))
	_, err = f.svc.Create(ctx, "u1", nil, 0, "")
	assert.True(t, apperr.IsCode(err, apperr.InvalidArgument))
	_, err = f.svc.Analyze(ctx, nil)
	assert.True(t, apperr.IsCode(err, apperr.InvalidArgument))

	entries, err := f.store.ScanPrefix(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, -1)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	f.svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for _, text := range []string{"first", "second", "third"} {
		_, err := f.svc.Create(ctx, "u1", msgs(text), 0, "")
		require.NoError(t, err)
	}

	list, err := f.svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].Messages[0].Content)
	assert.Equal(t, "first", list[2].Messages[0].Content)
}

func TestCreateBumpsCollidingMillisecond(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, -1)
	frozen := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return frozen }

	a, err := f.svc.Create(ctx, "u1", msgs("a"), 0, "")
	require.NoError(t, err)
	b, err := f.svc.Create(ctx, "u1", msgs("b"), 0, "")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, strings.HasPrefix(b.ID, "confession:u1:"))
	owner, ok := kv.ConfessionOwner(b.ID)
	assert.True(t, ok)
	assert.Equal(t, "u1", owner)
}

func TestFinalize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)

	_, err := f.svc.Finalize(ctx, "u1", nil)
	assert.True(t, apperr.IsCode(err, apperr.Conflict))

	_, err = f.svc.SaveDraft(ctx, "u1", msgs("I helped", "Good"))
	require.NoError(t, err)

	res, err := f.svc.Finalize(ctx, "u1", nil)
	require.NoError(t, err)
	assert.True(t, res.Confession.Completed)
	assert.Equal(t, 4, res.Confession.KarmaChange)
	assert.Equal(t, 4, res.NewKarma)
	assert.Len(t, res.Confession.Messages, 2)
	assert.Equal(t, 1, f.analyzer.calls)

	draft, err := f.svc.GetDraft(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, draft)

	_, err = f.svc.Finalize(ctx, "u1", nil)
	assert.True(t, apperr.IsCode(err, apperr.Conflict))
	assert.Equal(t, 4, f.karma(t, "u1"))
}

func TestFinalizeEnforcesDailyLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	_, err := f.svc.SaveDraft(ctx, "u1", msgs("one"))
	require.NoError(t, err)
	_, err = f.svc.Finalize(ctx, "u1", nil)
	require.NoError(t, err)

	_, err = f.svc.SaveDraft(ctx, "u1", msgs("two"))
	require.NoError(t, err)
	_, err = f.svc.Finalize(ctx, "u1", nil)
	assert.True(t, apperr.IsCode(err, apperr.RateLimited))
	assert.Equal(t, 4, f.karma(t, "u1"))

	require.NoError(t, f.profiles.SetSubscription(ctx, "u1", true))
	_, err = f.svc.Finalize(ctx, "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, 8, f.karma(t, "u1"))
}

func TestCheckLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)

	limit, err := f.svc.CheckLimit(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, Limit{CanConfess: true, ConfessionsToday: 0, Limit: 2}, limit)

	f.createCompleted(t, "u1", 1)
	f.createCompleted(t, "u1", 1)
	limit, err = f.svc.CheckLimit(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, limit.CanConfess)
	assert.Equal(t, 2, limit.ConfessionsToday)

	require.NoError(t, f.profiles.SetSubscription(ctx, "u1", true))
	limit, err = f.svc.CheckLimit(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, limit.CanConfess)
	assert.True(t, limit.HasSubscription)
	assert.Equal(t, Unlimited, limit.Limit)
}

func TestCompletedOnCountsOnlyThatDay(t *testing.T) {
	day := time.Date(2024, 5, 10, 23, 0, 0, 0, time.UTC)
	yesterday := day.AddDate(0, 0, -1)
	sameDay := time.Date(2024, 5, 10, 0, 30, 0, 0, time.UTC)
	list := []Confession{
		{Completed: true, CompletedAt: &sameDay},
		{Completed: true, CompletedAt: &yesterday},
		{Completed: false},
	}
	assert.Equal(t, 1, completedOn(list, day))
}

func TestPruneDrafts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, -1)
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return old }
	_, err := f.svc.SaveDraft(ctx, "stale", msgs("a"))
	require.NoError(t, err)

	f.svc.now = func() time.Time { return old.AddDate(0, 1, 0) }
	_, err = f.svc.SaveDraft(ctx, "fresh", msgs("a"))
	require.NoError(t, err)

	n, err := f.svc.PruneDrafts(ctx, old.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	d, err := f.svc.GetDraft(ctx, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, d)
}

func intPtr(v int) *int { return &v }

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, -1)
	f.createCompleted(t, "u1", 5)
	f.createCompleted(t, "u2", -4)

	drifts, err := f.svc.Reconcile(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, drifts)

	_, err = f.profiles.Update(ctx, "u1", profile.Update{Karma: intPtr(40)}, true)
	require.NoError(t, err)

	drifts, err = f.svc.Reconcile(ctx, false)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, Drift{UserID: "u1", Stored: 40, Expected: 5}, drifts[0])
	assert.Equal(t, 40, f.karma(t, "u1"))

	drifts, err = f.svc.Reconcile(ctx, true)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.True(t, drifts[0].Fixed)
	assert.Equal(t, 5, f.karma(t, "u1"))
	assert.Equal(t, -4, f.karma(t, "u2"))
}
