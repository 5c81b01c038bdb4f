package sync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-triage/internal/model"
	"github.com/nhle/notification-triage/internal/score"
	"github.com/nhle/notification-triage/internal/source"
	"github.com/nhle/notification-triage/internal/source/github"
	"github.com/nhle/notification-triage/internal/store"
	"github.com/nhle/notification-triage/tests/testutil"
)

const testRules = `
[me]
rule = "author"
param = "JohnDoe"
score = 10

[kernel]
rule = "repo"
param = "torvalds/linux"
score = 5
`

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestService(t *testing.T, count int) (*Service, *testutil.FakeGitHub, *store.SQLiteStore) {
	t.Helper()
	fake := testutil.NewFakeGitHub(t, count)
	st := testutil.NewTestStore(t)
	client := github.NewClient(fake.URL(), "faketoken", 5*time.Second, discard)
	return NewService(client, st, writeRules(t, testRules), discard), fake, st
}

func byID(ns []model.Notification, id string) (model.Notification, bool) {
	for _, n := range ns {
		if n.ID == id {
			return n, true
		}
	}
	return model.Notification{}, false
}

func TestSyncEndToEnd(t *testing.T) {
	ctx := context.Background()
	svc, fake, _ := newTestService(t, 50)

	res, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Fetched: 50, Stored: 50}, res)
	assert.Equal(t, 3, fake.ListCalls())

	notifications, err := svc.Notifications(ctx, "")
	require.NoError(t, err)
	require.Len(t, notifications, 50)

	// Boost a low ranked notification so it moves to the top.
	target := notifications[len(notifications)-1]
	require.NoError(t, svc.UpdateScore(ctx, target, 100))

	notifications, err = svc.Notifications(ctx, "")
	require.NoError(t, err)
	require.Len(t, notifications, 50)
	assert.Equal(t, target.ID, notifications[0].ID)
	assert.Equal(t, 100, notifications[0].ScoreBoost)

	_, err = svc.Sync(ctx)
	require.NoError(t, err)

	notifications, err = svc.Notifications(ctx, "")
	require.NoError(t, err)
	require.Len(t, notifications, 50)
	assert.Equal(t, target.ID, notifications[0].ID)
	assert.Equal(t, 100, notifications[0].ScoreBoost)
}

func TestSyncDerivesState(t *testing.T) {
	ctx := context.Background()
	svc, _, st := newTestService(t, 10)

	_, err := svc.Sync(ctx)
	require.NoError(t, err)

	tests := []struct {
		id     string
		kind   model.Kind
		state  model.State
		author string
		url    string
		score  int
	}{
		{"1000", model.KindPullRequest, model.StateResolved, "JohnDoe", "https://github.com/torvalds/linux/pull/0", 15},
		{"1001", model.KindIssue, model.StateOpen, "alice", "https://github.com/rust-lang/rust/issues/1", 0},
		{"1002", model.KindRelease, model.StateOpen, "release-bot", "https://github.com/torvalds/linux/releases/tag/v2", 5},
		{"1003", model.KindPullRequest, model.StateDraft, "JohnDoe", "https://github.com/rust-lang/rust/pull/3", 10},
		{"1004", model.KindIssue, model.StateResolved, "alice", "https://github.com/torvalds/linux/issues/4", 5},
		{"1009", model.KindUnknown, model.StateCanceled, "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			n, err := st.GetNotification(ctx, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, n.Kind)
			assert.Equal(t, tt.state, n.State)
			assert.Equal(t, tt.author, n.Author)
			assert.Equal(t, tt.url, n.URL)
			assert.Equal(t, tt.score, n.Score)
		})
	}
}

func TestSyncResetsDone(t *testing.T) {
	ctx := context.Background()
	svc, fake, _ := newTestService(t, 5)

	_, err := svc.Sync(ctx)
	require.NoError(t, err)

	notifications, err := svc.Notifications(ctx, "")
	require.NoError(t, err)
	require.Len(t, notifications, 5)

	require.NoError(t, svc.MarkDone(ctx, notifications[0]))
	require.NoError(t, svc.MarkDoneBulk(ctx, notifications[1:3]))
	require.NoError(t, svc.MarkRead(ctx, notifications[3]))

	visible, err := svc.Notifications(ctx, "")
	require.NoError(t, err)
	assert.Len(t, visible, 2)

	read, ok := byID(visible, notifications[3].ID)
	require.True(t, ok)
	assert.False(t, read.Unread)

	assert.ElementsMatch(t, []string{
		"DELETE " + notifications[0].ID,
		"DELETE " + notifications[1].ID,
		"DELETE " + notifications[2].ID,
		"PATCH " + notifications[3].ID,
	}, fake.Mutations())

	_, err = svc.Sync(ctx)
	require.NoError(t, err)

	visible, err = svc.Notifications(ctx, "")
	require.NoError(t, err)
	assert.Len(t, visible, 5)
}

func TestSyncSearch(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, 10)

	_, err := svc.Sync(ctx)
	require.NoError(t, err)

	got, err := svc.Notifications(ctx, "author:johndoe state:draft")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1003", got[0].ID)

	got, err = svc.Notifications(ctx, "RUST-LANG")
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestSyncAbortsOnRuleError(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeGitHub(t, 5)
	st := testutil.NewTestStore(t)
	client := github.NewClient(fake.URL(), "faketoken", 5*time.Second, discard)
	rules := writeRules(t, "[bad]\nrule = \"label\"\nparam = \"x\"\nscore = 1\n")
	svc := NewService(client, st, rules, discard)

	_, err := svc.Sync(ctx)
	var kindErr *score.UnknownRuleKindError
	require.ErrorAs(t, err, &kindErr)
	assert.Zero(t, fake.ListCalls())

	_, err = svc.Explain(ctx, model.Notification{})
	assert.ErrorAs(t, err, &kindErr)
}

func TestSyncMissingToken(t *testing.T) {
	fake := testutil.NewFakeGitHub(t, 5)
	client := github.NewClient(fake.URL(), "", time.Second, discard)
	svc := NewService(client, testutil.NewTestStore(t), writeRules(t, testRules), discard)

	_, err := svc.Sync(context.Background())
	assert.ErrorIs(t, err, source.ErrMissingToken)
}

// partialGateway serves a fixed thread list but drops one detail object.
type partialGateway struct {
	*github.Client
	threads []github.Notification
	drop    string
}

func (g *partialGateway) ListNotifications(context.Context, *time.Time) ([]github.Notification, error) {
	return g.threads, nil
}

func (g *partialGateway) FetchDetails(ctx context.Context, ns []github.Notification) (*github.Details, error) {
	details, err := g.Client.FetchDetails(ctx, ns)
	if err != nil {
		return nil, err
	}
	delete(details.PullRequests, g.drop)
	return details, nil
}

func TestSyncIsAllOrNothingOnMissingDetail(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeGitHub(t, 10)
	st := testutil.NewTestStore(t)
	client := github.NewClient(fake.URL(), "faketoken", 5*time.Second, discard)

	threads := testutil.FixtureThreads(10)
	gw := &partialGateway{Client: client, threads: threads, drop: client.DetailKey(threads[3])}
	svc := NewService(gw, st, writeRules(t, testRules), discard)

	_, err := svc.Sync(ctx)
	assert.ErrorIs(t, err, ErrMissingDetail)

	notifications, err := svc.Notifications(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

// flakyStore fails to upsert one id.
type flakyStore struct {
	*store.SQLiteStore
	failID string
}

func (s *flakyStore) UpsertNotification(ctx context.Context, n model.Notification) error {
	if n.ID == s.failID {
		return errors.New("disk full")
	}
	return s.SQLiteStore.UpsertNotification(ctx, n)
}

func TestSyncSkipsFailedRows(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeGitHub(t, 10)
	st := &flakyStore{SQLiteStore: testutil.NewTestStore(t), failID: "1004"}
	client := github.NewClient(fake.URL(), "faketoken", 5*time.Second, discard)
	svc := NewService(client, st, writeRules(t, testRules), discard)

	res, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Fetched: 10, Stored: 9, Skipped: 1}, res)

	_, err = st.GetNotification(ctx, "1004")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCheckUpdateAndLimitUsesWatermark(t *testing.T) {
	ctx := context.Background()
	svc, fake, _ := newTestService(t, 5)
	fake.SetNotModified(true)

	status, err := svc.CheckUpdateAndLimit(ctx)
	require.NoError(t, err)
	assert.True(t, status.NeedUpdate, "empty store always needs an update")

	_, err = svc.Sync(ctx)
	require.NoError(t, err)

	status, err = svc.CheckUpdateAndLimit(ctx)
	require.NoError(t, err)
	assert.False(t, status.NeedUpdate)
	assert.Equal(t, 60*time.Second, status.PollInterval)
	assert.Equal(t, 4999, status.RateRemaining)
}

func TestExplain(t *testing.T) {
	ctx := context.Background()
	svc, _, st := newTestService(t, 5)

	_, err := svc.Sync(ctx)
	require.NoError(t, err)

	n, err := st.GetNotification(ctx, "1000")
	require.NoError(t, err)

	matches, err := svc.Explain(ctx, *n)
	require.NoError(t, err)
	assert.Equal(t, []score.Match{
		{Name: "kernel", Score: 5},
		{Name: "me", Score: 10},
	}, matches)
}
