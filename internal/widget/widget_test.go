package widget

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-bell/internal/api"
	"github.com/nhle/notification-bell/internal/model"
)

// fakeClient answers from canned results and records the call order.
type fakeClient struct {
	mu          sync.Mutex
	calls       []string
	recipients  []model.Recipient
	counts      []api.Result[model.UnreadCount]
	feed        api.Result[model.Feed]
	markRead    api.Result[model.MarkReadResult]
	markAllRead api.Result[model.MarkAllReadResult]
	markedIDs   [][]int64
}

func (f *fakeClient) record(call string, r model.Recipient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	f.recipients = append(f.recipients, r)
}

func (f *fakeClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeClient) UnreadCount(_ context.Context, r model.Recipient) api.Result[model.UnreadCount] {
	f.record("unread-count", r)
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.counts) == 0 {
		return api.Failed[model.UnreadCount]("no canned count")
	}
	res := f.counts[0]
	if len(f.counts) > 1 {
		f.counts = f.counts[1:]
	}
	return res
}

func (f *fakeClient) Feed(_ context.Context, r model.Recipient, _ int) api.Result[model.Feed] {
	f.record("feed", r)
	return f.feed
}

func (f *fakeClient) MarkRead(_ context.Context, r model.Recipient, ids []int64) api.Result[model.MarkReadResult] {
	f.record("mark-read", r)
	f.mu.Lock()
	f.markedIDs = append(f.markedIDs, ids)
	f.mu.Unlock()
	return f.markRead
}

func (f *fakeClient) MarkAllRead(_ context.Context, r model.Recipient) api.Result[model.MarkAllReadResult] {
	f.record("mark-all-read", r)
	return f.markAllRead
}

type staticResolver string

func (s staticResolver) Resolve(context.Context, bool) string { return string(s) }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestWidget(c Client, ident IdentifierResolver, mode model.RecipientType) *Widget {
	return New(c, ident, Options{Mode: mode, PollInterval: time.Hour, Logger: quietLogger()})
}

func id(v int64) *int64 { return &v }

func notifications(ids ...int64) []model.Notification {
	out := make([]model.Notification, len(ids))
	for i, id := range ids {
		out[i] = model.Notification{ID: id, Title: "n", Status: "SENT"}
	}
	return out
}

func TestLatestIDIsRunningMaximum(t *testing.T) {
	fc := &fakeClient{counts: []api.Result[model.UnreadCount]{
		api.Succeeded(model.UnreadCount{UnreadCount: 1, LatestID: id(3)}),
		api.Succeeded(model.UnreadCount{UnreadCount: 1, LatestID: nil}),
		api.Succeeded(model.UnreadCount{UnreadCount: 2, LatestID: id(3)}),
		api.Succeeded(model.UnreadCount{UnreadCount: 3, LatestID: id(8)}),
		// Stale response from a slower request.
		api.Succeeded(model.UnreadCount{UnreadCount: 3, LatestID: id(5)}),
	}}
	w := newTestWidget(fc, staticResolver(""), model.RecipientAdmin)

	want := []int64{3, 3, 3, 8, 8}
	for i, expected := range want {
		w.RefreshCount(context.Background())
		assert.Equal(t, expected, w.Snapshot().LatestID, "after response %d", i)
	}
}

func TestUserWithoutIdentifierMakesNoRequests(t *testing.T) {
	fc := &fakeClient{
		counts: []api.Result[model.UnreadCount]{api.Succeeded(model.UnreadCount{UnreadCount: 9})},
		feed:   api.Succeeded(model.Feed{Notifications: notifications(1), UnreadCount: 9}),
	}
	w := newTestWidget(fc, staticResolver(""), model.RecipientUser)
	w.st.unreadCount = 4
	w.st.items = notifications(1, 2)

	w.RefreshCount(context.Background())
	w.LoadFeed(context.Background())
	w.MarkRead(context.Background(), []int64{1})
	w.MarkAllRead(context.Background())

	assert.Empty(t, fc.Calls())
	snap := w.Snapshot()
	assert.Zero(t, snap.UnreadCount)
	assert.Empty(t, snap.Items)
	assert.Equal(t, FeedNeedsIdentifier, snap.Feed)
}

func TestRecipientDescriptor(t *testing.T) {
	fc := &fakeClient{counts: []api.Result[model.UnreadCount]{api.Succeeded(model.UnreadCount{})}}

	newTestWidget(fc, staticResolver("9999999999"), model.RecipientUser).RefreshCount(context.Background())
	newTestWidget(fc, staticResolver("ignored"), model.RecipientAdmin).RefreshCount(context.Background())

	require.Len(t, fc.recipients, 2)
	assert.Equal(t, model.Recipient{Type: model.RecipientUser, Identifier: "9999999999"}, fc.recipients[0])
	assert.Equal(t, model.Recipient{Type: model.RecipientAdmin}, fc.recipients[1])
}

func TestPollFailureKeepsState(t *testing.T) {
	fc := &fakeClient{counts: []api.Result[model.UnreadCount]{
		api.Succeeded(model.UnreadCount{UnreadCount: 5, LatestID: id(10)}),
		api.Failed[model.UnreadCount]("Invalid server response"),
	}}
	w := newTestWidget(fc, staticResolver("9999999999"), model.RecipientUser)

	w.RefreshCount(context.Background())
	w.RefreshCount(context.Background())

	snap := w.Snapshot()
	assert.Equal(t, 5, snap.UnreadCount)
	assert.EqualValues(t, 10, snap.LatestID)
}

func TestMarkReadUsesServerCount(t *testing.T) {
	fc := &fakeClient{markRead: api.Succeeded(model.MarkReadResult{Updated: 2, UnreadCount: 7})}
	w := newTestWidget(fc, staticResolver("9999999999"), model.RecipientUser)
	w.st.items = notifications(1, 2, 3, 4, 5)
	w.st.unreadCount = 5

	w.MarkRead(context.Background(), []int64{3, 5})

	snap := w.Snapshot()
	// Not 5-2: the server's number wins.
	assert.Equal(t, 7, snap.UnreadCount)
	for _, n := range snap.Items {
		switch n.ID {
		case 3, 5:
			assert.True(t, n.IsRead, "id %d", n.ID)
			assert.Equal(t, model.StatusRead, n.Status)
		default:
			assert.False(t, n.IsRead, "id %d", n.ID)
			assert.Equal(t, "SENT", n.Status)
		}
	}
	assert.Equal(t, [][]int64{{3, 5}}, fc.markedIDs)
}

func TestMarkReadFailureChangesNothing(t *testing.T) {
	fc := &fakeClient{markRead: api.Failed[model.MarkReadResult]("boom")}
	w := newTestWidget(fc, staticResolver("9999999999"), model.RecipientUser)
	w.st.items = notifications(1, 2)
	w.st.unreadCount = 2

	w.MarkRead(context.Background(), []int64{1})

	snap := w.Snapshot()
	assert.Equal(t, 2, snap.UnreadCount)
	assert.False(t, snap.Items[0].IsRead)
}

func TestMarkReadEmptyIDsSkipped(t *testing.T) {
	fc := &fakeClient{}
	w := newTestWidget(fc, staticResolver("9999999999"), model.RecipientUser)
	w.MarkRead(context.Background(), nil)
	assert.Empty(t, fc.Calls())
}

func TestMarkAllRead(t *testing.T) {
	fc := &fakeClient{markAllRead: api.Succeeded(model.MarkAllReadResult{Updated: 3})}
	w := newTestWidget(fc, staticResolver(""), model.RecipientAdmin)
	w.st.items = notifications(1, 2, 3)
	w.st.unreadCount = 3

	w.MarkAllRead(context.Background())

	snap := w.Snapshot()
	assert.Zero(t, snap.UnreadCount)
	for _, n := range snap.Items {
		assert.True(t, n.IsRead)
	}
}

func TestMarkAllReadFailureIsSilent(t *testing.T) {
	fc := &fakeClient{markAllRead: api.Failed[model.MarkAllReadResult]("nope")}
	w := newTestWidget(fc, staticResolver(""), model.RecipientAdmin)
	w.st.items = notifications(1)
	w.st.unreadCount = 1

	w.MarkAllRead(context.Background())

	snap := w.Snapshot()
	assert.Equal(t, 1, snap.UnreadCount)
	assert.False(t, snap.Items[0].IsRead)
}

func TestOpenPanelLoadsThenMarksAll(t *testing.T) {
	fc := &fakeClient{
		feed:        api.Succeeded(model.Feed{Notifications: notifications(2, 1), UnreadCount: 2, LatestID: id(2)}),
		markAllRead: api.Succeeded(model.MarkAllReadResult{Updated: 2}),
	}
	w := newTestWidget(fc, staticResolver("9999999999"), model.RecipientUser)

	assert.True(t, w.TogglePanel(context.Background()))
	assert.Equal(t, []string{"feed", "mark-all-read"}, fc.Calls())

	snap := w.Snapshot()
	assert.True(t, snap.Open)
	assert.Zero(t, snap.UnreadCount)
	assert.EqualValues(t, 2, snap.LatestID)
	assert.Equal(t, FeedLoaded, snap.Feed)

	// Closing is local only.
	assert.False(t, w.TogglePanel(context.Background()))
	assert.Len(t, fc.Calls(), 2)
	assert.False(t, w.Snapshot().Open)
}

func TestOpenPanelWithNothingUnreadSkipsMarkAll(t *testing.T) {
	fc := &fakeClient{feed: api.Succeeded(model.Feed{Notifications: notifications(1), UnreadCount: 0})}
	w := newTestWidget(fc, staticResolver(""), model.RecipientAdmin)

	w.TogglePanel(context.Background())
	assert.Equal(t, []string{"feed"}, fc.Calls())
}

func TestFeedFailureKeepsCount(t *testing.T) {
	fc := &fakeClient{feed: api.Failed[model.Feed]("Admin notifications require admin login")}
	w := newTestWidget(fc, staticResolver(""), model.RecipientAdmin)
	w.st.unreadCount = 4

	w.LoadFeed(context.Background())

	snap := w.Snapshot()
	assert.Equal(t, FeedFailed, snap.Feed)
	assert.Equal(t, "Admin notifications require admin login", snap.FeedError)
	assert.Equal(t, 4, snap.UnreadCount)
}

func TestFeedReplacesItemsWholesale(t *testing.T) {
	fc := &fakeClient{feed: api.Succeeded(model.Feed{Notifications: notifications(9), UnreadCount: 1})}
	w := newTestWidget(fc, staticResolver(""), model.RecipientAdmin)
	w.st.items = notifications(1, 2, 3)

	w.LoadFeed(context.Background())

	snap := w.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.EqualValues(t, 9, snap.Items[0].ID)
}

func TestFeedCappedAtLimit(t *testing.T) {
	fc := &fakeClient{feed: api.Succeeded(model.Feed{Notifications: notifications(5, 4, 3, 2, 1)})}
	w := New(fc, staticResolver(""), Options{Mode: model.RecipientAdmin, FeedLimit: 3, Logger: quietLogger()})

	w.LoadFeed(context.Background())
	assert.Len(t, w.Snapshot().Items, 3)
}

func TestDocumentClick(t *testing.T) {
	fc := &fakeClient{feed: api.Succeeded(model.Feed{})}
	w := newTestWidget(fc, staticResolver(""), model.RecipientAdmin)
	w.TogglePanel(context.Background())

	w.HandleDocumentClick(true)
	assert.True(t, w.Snapshot().Open)

	w.HandleDocumentClick(false)
	assert.False(t, w.Snapshot().Open)

	// Closed panel stays closed.
	w.HandleDocumentClick(false)
	assert.False(t, w.Snapshot().Open)
}

func TestClickItem(t *testing.T) {
	fc := &fakeClient{markRead: api.Succeeded(model.MarkReadResult{UnreadCount: 0})}
	w := newTestWidget(fc, staticResolver(""), model.RecipientAdmin)
	w.st.items = notifications(4)

	w.ClickItem(context.Background(), 4, true)
	assert.Empty(t, fc.Calls())

	w.ClickItem(context.Background(), 4, false)
	assert.Equal(t, []string{"mark-read"}, fc.Calls())
	assert.Equal(t, [][]int64{{4}}, fc.markedIDs)
	assert.True(t, w.Snapshot().Items[0].IsRead)
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	fc := &fakeClient{counts: []api.Result[model.UnreadCount]{
		api.Succeeded(model.UnreadCount{UnreadCount: 120, LatestID: id(1)}),
	}}
	w := newTestWidget(fc, staticResolver(""), model.RecipientAdmin)

	var got []int
	unsubscribe := w.Subscribe(func(s Snapshot) { got = append(got, s.UnreadCount) })
	w.RefreshCount(context.Background())
	unsubscribe()
	w.RefreshCount(context.Background())

	assert.Equal(t, []int{120}, got)
}

func TestNegativeServerCountClamped(t *testing.T) {
	fc := &fakeClient{counts: []api.Result[model.UnreadCount]{
		api.Succeeded(model.UnreadCount{UnreadCount: -3}),
	}}
	w := newTestWidget(fc, staticResolver(""), model.RecipientAdmin)
	w.RefreshCount(context.Background())
	assert.Zero(t, w.Snapshot().UnreadCount)
}

func TestUnknownModeFallsBackToUser(t *testing.T) {
	w := New(&fakeClient{}, staticResolver(""), Options{Mode: "GUEST", Logger: quietLogger()})
	assert.Equal(t, model.RecipientUser, w.Snapshot().Mode)
}
