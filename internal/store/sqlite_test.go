package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-triage/internal/filter"
	"github.com/nhle/notification-triage/internal/model"
	"github.com/nhle/notification-triage/internal/store"
	"github.com/nhle/notification-triage/tests/testutil"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func notification(id string, score int, updated time.Time) model.Notification {
	return model.Notification{
		ID:        id,
		Title:     "title " + id,
		Repo:      "torvalds/linux",
		URL:       "https://github.com/torvalds/linux/pull/" + id,
		Reason:    "participating",
		Kind:      model.KindPullRequest,
		State:     model.StateOpen,
		Author:    "JohnDoe",
		Unread:    true,
		UpdatedAt: updated,
		Score:     score,
	}
}

func TestUpsertPreservesBoostAndResetsDone(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	n := notification("1", 5, baseTime)
	require.NoError(t, s.UpsertNotification(ctx, n))
	require.NoError(t, s.UpdateBoost(ctx, "1", 10))
	require.NoError(t, s.SetDone(ctx, "1", true))

	n.Title = "renamed"
	n.Score = 7
	n.UpdatedAt = baseTime.Add(time.Hour)
	require.NoError(t, s.UpsertNotification(ctx, n))

	got, err := s.GetNotification(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, 7, got.Score)
	assert.Equal(t, 10, got.ScoreBoost)
	assert.False(t, got.Done)
	assert.True(t, got.UpdatedAt.Equal(baseTime.Add(time.Hour)))
}

func TestUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	for round := 0; round < 2; round++ {
		for i := 0; i < 5; i++ {
			n := notification(fmt.Sprint(i), i, baseTime.Add(time.Duration(i)*time.Minute))
			require.NoError(t, s.UpsertNotification(ctx, n))
		}
	}

	all, err := s.GetNotifications(ctx, filter.Query{})
	require.NoError(t, err)
	assert.Len(t, all, 5)
	for _, n := range all {
		assert.Zero(t, n.ScoreBoost)
	}
}

func TestGetNotificationsOrdering(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	require.NoError(t, s.UpsertNotification(ctx, notification("low", 1, baseTime)))
	require.NoError(t, s.UpsertNotification(ctx, notification("old", 10, baseTime)))
	require.NoError(t, s.UpsertNotification(ctx, notification("new", 10, baseTime.Add(time.Hour))))
	require.NoError(t, s.UpsertNotification(ctx, notification("boosted", 0, baseTime)))
	require.NoError(t, s.UpdateBoost(ctx, "boosted", 20))
	require.NoError(t, s.UpsertNotification(ctx, notification("hidden", 100, baseTime)))
	require.NoError(t, s.SetDone(ctx, "hidden", true))

	got, err := s.GetNotifications(ctx, filter.Query{})
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, n := range got {
		ids[i] = n.ID
	}
	assert.Equal(t, []string{"boosted", "new", "old", "low"}, ids)
}

func TestGetNotificationsFilter(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	a := notification("a", 0, baseTime)
	a.Title = "Fix Scheduler deadlock"
	b := notification("b", 0, baseTime)
	b.Repo = "emacs-mirror/emacs"
	b.Author = "rms"
	b.State = model.StateResolved
	require.NoError(t, s.UpsertNotification(ctx, a))
	require.NoError(t, s.UpsertNotification(ctx, b))

	tests := []struct {
		query string
		want  []string
	}{
		{query: "scheduler", want: []string{"a"}},
		{query: "EMACS", want: []string{"b"}},
		{query: "rms", want: []string{"b"}},
		{query: "author:johndoe", want: []string{"a"}},
		{query: "state:closed", want: []string{"b"}},
		{query: "repo:torvalds title:deadlock", want: []string{"a"}},
		{query: "nothing-matches", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := s.GetNotifications(ctx, filter.Parse(tt.query))
			require.NoError(t, err)

			var ids []string
			for _, n := range got {
				ids = append(ids, n.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestGetNotificationsMatchesWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	for id, title := range map[string]string{
		"under":   "rename foo_bar",
		"letter":  "rename fooXbar",
		"percent": "cover 100% of cases",
		"plain":   "cover 1000 cases",
		"slash":   `escape a\b`,
	} {
		n := notification(id, 0, baseTime)
		n.Title = title
		require.NoError(t, s.UpsertNotification(ctx, n))
	}

	tests := []struct {
		query string
		want  []string
	}{
		{query: "foo_bar", want: []string{"under"}},
		{query: "100%", want: []string{"percent"}},
		{query: `title:a\b`, want: []string{"slash"}},
		{query: "title:_", want: []string{"under"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := s.GetNotifications(ctx, filter.Parse(tt.query))
			require.NoError(t, err)

			var ids []string
			for _, n := range got {
				ids = append(ids, n.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSingleFieldUpdates(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	require.NoError(t, s.UpsertNotification(ctx, notification("1", 0, baseTime)))
	require.NoError(t, s.UpsertNotification(ctx, notification("2", 0, baseTime)))
	require.NoError(t, s.UpsertNotification(ctx, notification("3", 0, baseTime)))

	require.NoError(t, s.SetUnread(ctx, "1", false))
	got, err := s.GetNotification(ctx, "1")
	require.NoError(t, err)
	assert.False(t, got.Unread)

	require.NoError(t, s.UpdateBoost(ctx, "1", 10))
	require.NoError(t, s.UpdateBoost(ctx, "1", -30))
	got, err = s.GetNotification(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, -20, got.ScoreBoost)

	require.NoError(t, s.SetDoneBulk(ctx, []string{"2", "3"}))
	visible, err := s.GetNotifications(ctx, filter.Query{})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "1", visible[0].ID)

	err = s.SetDone(ctx, "missing", true)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetNotification(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLatestUpdate(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	latest, err := s.LatestUpdate(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, s.UpsertNotification(ctx, notification("1", 0, baseTime)))
	require.NoError(t, s.UpsertNotification(ctx, notification("2", 0, baseTime.Add(2*time.Hour))))
	require.NoError(t, s.UpsertNotification(ctx, notification("3", 0, baseTime.Add(time.Hour))))

	latest, err = s.LatestUpdate(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Equal(baseTime.Add(2*time.Hour)), "got %s", latest)
}

func TestConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	require.NoError(t, s.UpsertNotification(ctx, notification("1", 0, baseTime)))

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.UpdateBoost(ctx, "1", 1)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.GetNotification(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 20, got.ScoreBoost)
}
