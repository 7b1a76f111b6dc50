package confession

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apperr"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apps/profile"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/karma"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/kv"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/metrics"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/models"
)

// Analyzer scores a finished transcript. It must always return a result.
type Analyzer interface {
	Analyze(ctx context.Context, msgs []models.Message) karma.Result
}

// LimitSource provides the number of confessions a free user may complete
// per UTC day.
type LimitSource interface {
	DailyConfessionLimit(ctx context.Context) int
}

// Service owns the confession state machine and keeps profile karma in step
// with it. Every transition that touches karma runs in one transaction that
// locks the confession row(s) first and the profile row second.
type Service struct {
	store    *kv.Store
	profiles *profile.Service
	analyzer Analyzer
	limits   LimitSource
	now      func() time.Time
}

func NewService(store *kv.Store, profiles *profile.Service, analyzer Analyzer, limits LimitSource) *Service {
	return &Service{
		store:    store,
		profiles: profiles,
		analyzer: analyzer,
		limits:   limits,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// --- Drafts ---

// SaveDraft replaces the user's open draft with msgs.
func (s *Service) SaveDraft(ctx context.Context, userID string, msgs []models.Message) (Draft, error) {
	if userID == "" {
		return Draft{}, apperr.Invalid("User ID is required")
	}
	if !models.ValidMessages(msgs) {
		return Draft{}, apperr.Invalid("Messages are required")
	}

	var draft Draft
	err := s.store.Transaction(ctx, func(tx *kv.Store) error {
		key := kv.ActiveConfessionKey(userID)
		var existing Draft
		found, err := tx.GetForUpdate(ctx, key, &existing)
		if err != nil {
			return err
		}

		now := s.now()
		draft = Draft{UserID: userID, Messages: msgs, CreatedAt: now, UpdatedAt: now}
		if found && !existing.CreatedAt.IsZero() {
			draft.CreatedAt = existing.CreatedAt
		}
		return tx.Set(ctx, key, draft)
	})
	if err != nil {
		return Draft{}, fmt.Errorf("save draft: %w", err)
	}

	metrics.ConfessionTransitions.WithLabelValues(metrics.DraftSaved).Inc()
	return draft, nil
}

// GetDraft returns the open draft or nil.
func (s *Service) GetDraft(ctx context.Context, userID string) (*Draft, error) {
	if userID == "" {
		return nil, apperr.Invalid("User ID is required")
	}
	var draft Draft
	found, err := s.store.Get(ctx, kv.ActiveConfessionKey(userID), &draft)
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &draft, nil
}

// DeleteDraft abandons the user's draft. Deleting a missing draft is not an
// error.
func (s *Service) DeleteDraft(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, apperr.Invalid("User ID is required")
	}
	existed, err := s.store.Del(ctx, kv.ActiveConfessionKey(userID))
	if err != nil {
		return false, fmt.Errorf("delete draft: %w", err)
	}
	if existed {
		metrics.ConfessionTransitions.WithLabelValues(metrics.DraftDeleted).Inc()
	}
	return existed, nil
}

// PruneDrafts deletes drafts not updated since cutoff and returns how many
// were removed.
func (s *Service) PruneDrafts(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := s.store.ScanPrefix(ctx, kv.ActiveConfessionPrefix)
	if err != nil {
		return 0, err
	}
	var stale []string
	for _, e := range entries {
		var d Draft
		if err := e.Decode(&d); err != nil {
			slog.WarnContext(ctx, "skipping undecodable draft", "key", e.Key, "error", err)
			continue
		}
		if d.UpdatedAt.Before(cutoff) {
			stale = append(stale, e.Key)
		}
	}
	n, err := s.store.MDel(ctx, stale)
	return int(n), err
}

// --- Records ---

// List returns the user's confessions, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Confession, error) {
	if userID == "" {
		return nil, apperr.Invalid("User ID is required")
	}
	entries, err := s.store.ScanOwned(ctx, kv.ConfessionPrefix(userID), userID, kv.ConfessionOwner)
	if err != nil {
		return nil, fmt.Errorf("list confessions: %w", err)
	}
	list, err := kv.DecodeAll[Confession](entries)
	if err != nil {
		return nil, fmt.Errorf("list confessions: %w", err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (s *Service) Get(ctx context.Context, id string) (Confession, error) {
	if !isConfessionKey(id) {
		return Confession{}, notFound(id)
	}
	var c Confession
	found, err := s.store.Get(ctx, id, &c)
	if err != nil {
		return Confession{}, fmt.Errorf("get confession: %w", err)
	}
	if !found {
		return Confession{}, notFound(id)
	}
	return c, nil
}

// Create stores a new, not yet completed confession.
func (s *Service) Create(ctx context.Context, userID string, msgs []models.Message, karmaChange int, summary string) (Confession, error) {
	if userID == "" {
		return Confession{}, apperr.Invalid("User ID is required")
	}
	if !models.ValidMessages(msgs) {
		return Confession{}, apperr.Invalid("Messages are required")
	}

	c := Confession{
		UserID:      userID,
		Messages:    msgs,
		KarmaChange: karma.Clamp(karmaChange),
		Summary:     summary,
	}
	if err := s.createTx(ctx, s.store, &c); err != nil {
		return Confession{}, err
	}
	metrics.ConfessionTransitions.WithLabelValues(metrics.Created).Inc()
	return c, nil
}

// Complete marks the confession completed and applies karmaChange to the
// owner's karma. Completing twice is a Conflict and changes nothing.
func (s *Service) Complete(ctx context.Context, id string, karmaChange int) (CompleteResult, error) {
	var res CompleteResult
	err := s.store.Transaction(ctx, func(tx *kv.Store) error {
		c, err := s.lockTx(ctx, tx, id)
		if err != nil {
			return err
		}
		newKarma, err := s.completeTx(ctx, tx, &c, karmaChange)
		if err != nil {
			return err
		}
		res = CompleteResult{Confession: c, NewKarma: newKarma}
		return nil
	})
	if err != nil {
		return CompleteResult{}, err
	}

	metrics.ConfessionTransitions.WithLabelValues(metrics.Completed).Inc()
	metrics.KarmaDelta.Observe(float64(res.Confession.KarmaChange))
	return res, nil
}

// Delete removes the confession, reversing its karma if it was completed.
func (s *Service) Delete(ctx context.Context, id string) (DeleteResult, error) {
	var res DeleteResult
	err := s.store.Transaction(ctx, func(tx *kv.Store) error {
		c, err := s.lockTx(ctx, tx, id)
		if err != nil {
			return err
		}

		if c.Completed {
			res.Reverted = c.KarmaChange
		}
		if res.NewKarma, err = s.profiles.AdjustKarmaTx(ctx, tx, c.UserID, -res.Reverted); err != nil {
			return err
		}
		if _, err := tx.Del(ctx, id); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return DeleteResult{}, err
	}

	metrics.ConfessionTransitions.WithLabelValues(metrics.Deleted).Inc()
	return res, nil
}

// DeleteAll removes every confession of userID and reverses the sum of the
// completed ones with a single profile update.
func (s *Service) DeleteAll(ctx context.Context, userID string) (BulkDeleteResult, error) {
	if userID == "" {
		return BulkDeleteResult{}, apperr.Invalid("User ID is required")
	}

	var res BulkDeleteResult
	err := s.store.Transaction(ctx, func(tx *kv.Store) error {
		entries, err := tx.ScanOwnedForUpdate(ctx, kv.ConfessionPrefix(userID), userID, kv.ConfessionOwner)
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(entries))
		for _, e := range entries {
			var c Confession
			if err := e.Decode(&c); err != nil {
				return err
			}
			if c.Completed {
				res.Reverted += c.KarmaChange
			}
			keys = append(keys, e.Key)
		}

		if res.NewKarma, err = s.profiles.AdjustKarmaTx(ctx, tx, userID, -res.Reverted); err != nil {
			return err
		}
		deleted, err := tx.MDel(ctx, keys)
		if err != nil {
			return err
		}
		res.DeletedCount = int(deleted)
		return nil
	})
	if err != nil {
		return BulkDeleteResult{}, fmt.Errorf("delete all confessions: %w", err)
	}

	metrics.ConfessionTransitions.WithLabelValues(metrics.BulkDeleted).Inc()
	return res, nil
}

// Analyze scores msgs without persisting anything.
func (s *Service) Analyze(ctx context.Context, msgs []models.Message) (karma.Result, error) {
	if !models.ValidMessages(msgs) {
		return karma.Result{}, apperr.Invalid("Messages are required")
	}
	return s.analyzer.Analyze(ctx, msgs), nil
}

// Finalize runs Draft -> Scored -> Completed for the user's open draft. When
// msgs is empty the draft's own messages are scored. The draft must still
// exist when the transaction runs, so a second concurrent Finalize gets a
// Conflict instead of completing twice.
func (s *Service) Finalize(ctx context.Context, userID string, msgs []models.Message) (FinalizeResult, error) {
	if userID == "" {
		return FinalizeResult{}, apperr.Invalid("User ID is required")
	}

	draft, err := s.GetDraft(ctx, userID)
	if err != nil {
		return FinalizeResult{}, err
	}
	if draft == nil {
		return FinalizeResult{}, apperr.New(apperr.Conflict, "No active confession to finalize")
	}
	if len(msgs) == 0 {
		msgs = draft.Messages
	}
	if !models.ValidMessages(msgs) {
		return FinalizeResult{}, apperr.Invalid("Messages are required")
	}

	limit, err := s.CheckLimit(ctx, userID)
	if err != nil {
		return FinalizeResult{}, err
	}
	if !limit.CanConfess {
		metrics.ConfessionTransitions.WithLabelValues(metrics.LimitRejected).Inc()
		return FinalizeResult{}, apperr.Newf(apperr.RateLimited,
			"Daily confession limit reached (%d/%d)", limit.ConfessionsToday, limit.Limit)
	}

	analysis := s.analyzer.Analyze(ctx, msgs)

	var res FinalizeResult
	err = s.store.Transaction(ctx, func(tx *kv.Store) error {
		found, err := tx.GetForUpdate(ctx, kv.ActiveConfessionKey(userID), nil)
		if err != nil {
			return err
		}
		if !found {
			return apperr.New(apperr.Conflict, "Confession was already finalized")
		}

		c := Confession{
			UserID:         userID,
			Messages:       msgs,
			KarmaChange:    analysis.KarmaChange,
			Summary:        analysis.Summary,
			Reasoning:      analysis.Reasoning,
			AnalysisSource: analysis.Source,
		}
		if err := s.createTx(ctx, tx, &c); err != nil {
			return err
		}
		newKarma, err := s.completeTx(ctx, tx, &c, analysis.KarmaChange)
		if err != nil {
			return err
		}
		res = FinalizeResult{Confession: c, NewKarma: newKarma, Analysis: analysis}
		return nil
	})
	if err != nil {
		return FinalizeResult{}, err
	}

	metrics.ConfessionTransitions.WithLabelValues(metrics.Finalized).Inc()
	metrics.KarmaDelta.Observe(float64(res.Confession.KarmaChange))
	slog.InfoContext(ctx, "confession finalized",
		"user_id", userID,
		"confession_id", res.Confession.ID,
		"karma_change", res.Confession.KarmaChange,
		"source", analysis.Source,
	)
	return res, nil
}

// --- transaction steps ---

// createTx assigns an id from the creation instant, bumping the millisecond
// until the key is free, and writes the record.
func (s *Service) createTx(ctx context.Context, tx *kv.Store, c *Confession) error {
	created := s.now().Truncate(time.Millisecond)
	for attempt := 0; attempt < 1000; attempt++ {
		c.ID = kv.ConfessionKey(c.UserID, created)
		c.CreatedAt = created
		wrote, err := tx.SetIfAbsent(ctx, c.ID, c)
		if err != nil {
			return fmt.Errorf("create confession: %w", err)
		}
		if wrote {
			return nil
		}
		created = created.Add(time.Millisecond)
	}
	return apperr.New(apperr.Conflict, "Could not allocate a confession id")
}

func (s *Service) lockTx(ctx context.Context, tx *kv.Store, id string) (Confession, error) {
	if !isConfessionKey(id) {
		return Confession{}, notFound(id)
	}
	var c Confession
	found, err := tx.GetForUpdate(ctx, id, &c)
	if err != nil {
		return Confession{}, err
	}
	if !found {
		return Confession{}, notFound(id)
	}
	return c, nil
}

// completeTx flips c to completed, applies the delta to the owner's karma
// and closes the owner's draft.
func (s *Service) completeTx(ctx context.Context, tx *kv.Store, c *Confession, karmaChange int) (int, error) {
	if c.Completed {
		return 0, apperr.New(apperr.Conflict, "Confession is already completed")
	}

	now := s.now()
	c.Completed = true
	c.CompletedAt = &now
	c.KarmaChange = karma.Clamp(karmaChange)
	if err := tx.Set(ctx, c.ID, c); err != nil {
		return 0, err
	}

	newKarma, err := s.profiles.AdjustKarmaTx(ctx, tx, c.UserID, c.KarmaChange)
	if err != nil {
		return 0, err
	}
	if _, err := tx.Del(ctx, kv.ActiveConfessionKey(c.UserID)); err != nil {
		return 0, err
	}
	return newKarma, nil
}

func isConfessionKey(id string) bool {
	_, ok := ownerOf(id)
	return ok
}

func ownerOf(id string) (string, bool) {
	return kv.ConfessionOwner(id)
}

func notFound(id string) error {
	return apperr.NotFoundf("Confession not found: %s", id)
}
