package widget

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nhle/notification-bell/internal/api"
	"github.com/nhle/notification-bell/internal/metrics"
	"github.com/nhle/notification-bell/internal/model"
)

// Client is the notification API the widget talks to.
type Client interface {
	UnreadCount(ctx context.Context, r model.Recipient) api.Result[model.UnreadCount]
	Feed(ctx context.Context, r model.Recipient, limit int) api.Result[model.Feed]
	MarkRead(ctx context.Context, r model.Recipient, ids []int64) api.Result[model.MarkReadResult]
	MarkAllRead(ctx context.Context, r model.Recipient) api.Result[model.MarkAllReadResult]
}

// IdentifierResolver supplies the recipient identifier.
type IdentifierResolver interface {
	Resolve(ctx context.Context, promptIfMissing bool) string
}

// Listener receives a snapshot after every state change.
type Listener func(Snapshot)

// Options configures a Widget. Zero values take the documented defaults.
type Options struct {
	Mode         model.RecipientType
	PollInterval time.Duration
	FeedLimit    int
	Logger       logrus.FieldLogger
	Metrics      *metrics.Metrics
}

// Widget is the notification bell: it polls the unread count, loads the
// feed when the panel opens, and reconciles read state with the server.
//
// Network calls run without holding the lock; their results are applied
// last-write-wins, except LatestID which only moves forward.
type Widget struct {
	id           string
	client       Client
	ident        IdentifierResolver
	mode         model.RecipientType
	pollInterval time.Duration
	feedLimit    int
	log          logrus.FieldLogger
	metrics      *metrics.Metrics

	mu        sync.Mutex
	st        state
	listeners map[int]Listener
	nextLID   int

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a widget. Start begins polling.
func New(client Client, ident IdentifierResolver, opts Options) *Widget {
	w := &Widget{
		id:           uuid.New().String(),
		client:       client,
		ident:        ident,
		mode:         opts.Mode,
		pollInterval: opts.PollInterval,
		feedLimit:    opts.FeedLimit,
		metrics:      opts.Metrics,
		listeners:    make(map[int]Listener),
	}
	if w.mode != model.RecipientAdmin {
		w.mode = model.RecipientUser
	}
	if w.pollInterval <= 0 {
		w.pollInterval = time.Duration(model.DefaultPollMs) * time.Millisecond
	}
	if w.feedLimit <= 0 {
		w.feedLimit = model.DefaultFeedLimit
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	w.log = log.WithFields(logrus.Fields{"widget_id": w.id, "mode": w.mode})
	return w
}

// ID returns the instance id used in logs.
func (w *Widget) ID() string { return w.id }

// Subscribe registers l and returns a function that removes it.
func (w *Widget) Subscribe(l Listener) (unsubscribe func()) {
	w.mu.Lock()
	id := w.nextLID
	w.nextLID++
	w.listeners[id] = l
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.listeners, id)
		w.mu.Unlock()
	}
}

// Snapshot returns the current state.
func (w *Widget) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Widget) snapshotLocked() Snapshot {
	items := make([]model.Notification, len(w.st.items))
	copy(items, w.st.items)
	return Snapshot{
		WidgetID:    w.id,
		Mode:        w.mode,
		Loop:        w.st.loop,
		Open:        w.st.open,
		UnreadCount: w.st.unreadCount,
		LatestID:    w.st.latestID,
		Feed:        w.st.feed,
		FeedError:   w.st.feedError,
		Items:       items,
	}
}

// update applies fn under the lock and then notifies listeners outside it.
func (w *Widget) update(fn func(s *state)) Snapshot {
	w.mu.Lock()
	fn(&w.st)
	snap := w.snapshotLocked()
	listeners := make([]Listener, 0, len(w.listeners))
	for _, l := range w.listeners {
		listeners = append(listeners, l)
	}
	w.mu.Unlock()

	w.metrics.SetUnread(snap.UnreadCount)
	for _, l := range listeners {
		l(snap)
	}
	return snap
}

// recipient resolves the descriptor without prompting. ok is false when
// USER mode has no identifier, in which case no request may be made.
func (w *Widget) recipient(ctx context.Context) (model.Recipient, bool) {
	r := model.Recipient{Type: w.mode}
	if w.mode == model.RecipientAdmin {
		return r, true
	}
	r.Identifier = w.ident.Resolve(ctx, false)
	return r, r.Identifier != ""
}

// RefreshCount fetches the unread count. Failures keep the displayed state.
func (w *Widget) RefreshCount(ctx context.Context) {
	rcpt, ok := w.recipient(ctx)
	if !ok {
		w.update(func(s *state) { s.setUnread(0) })
		return
	}

	res := w.client.UnreadCount(ctx, rcpt)
	if !res.OK {
		w.log.WithField("reason", res.Reason).Debug("unread count poll failed")
		return
	}

	w.update(func(s *state) {
		s.setUnread(res.Value.UnreadCount)
		s.advanceLatest(res.Value.LatestID)
	})
}

// LoadFeed replaces the item list with the most recent notifications.
func (w *Widget) LoadFeed(ctx context.Context) {
	rcpt, ok := w.recipient(ctx)
	if !ok {
		w.update(func(s *state) {
			s.items = []model.Notification{}
			s.feed = FeedNeedsIdentifier
			s.feedError = ""
		})
		return
	}

	res := w.client.Feed(ctx, rcpt, w.feedLimit)
	if !res.OK {
		w.log.WithField("reason", res.Reason).Info("feed load failed")
		w.update(func(s *state) {
			s.feed = FeedFailed
			s.feedError = res.Reason
		})
		return
	}

	items := res.Value.Notifications
	if len(items) > w.feedLimit {
		items = items[:w.feedLimit]
	}
	w.update(func(s *state) {
		s.items = append([]model.Notification{}, items...)
		s.feed = FeedLoaded
		s.feedError = ""
		s.setUnread(res.Value.UnreadCount)
		s.advanceLatest(res.Value.LatestID)
	})
}

// MarkRead marks ids read on the server and, only once that succeeded,
// patches the matching items and takes the server's unread count.
func (w *Widget) MarkRead(ctx context.Context, ids []int64) {
	if len(ids) == 0 {
		return
	}
	rcpt, ok := w.recipient(ctx)
	if !ok {
		return
	}

	res := w.client.MarkRead(ctx, rcpt, ids)
	if !res.OK {
		w.log.WithField("reason", res.Reason).Debug("mark read failed")
		return
	}

	w.log.WithFields(logrus.Fields{"ids": ids, "updated": res.Value.Updated}).Debug("marked read")
	w.update(func(s *state) {
		s.setUnread(res.Value.UnreadCount)
		s.markRead(ids)
	})
}

// MarkAllRead marks everything read on the server, then locally.
func (w *Widget) MarkAllRead(ctx context.Context) {
	rcpt, ok := w.recipient(ctx)
	if !ok {
		return
	}

	res := w.client.MarkAllRead(ctx, rcpt)
	if !res.OK {
		w.log.WithField("reason", res.Reason).Debug("mark all read failed")
		return
	}

	w.update(func(s *state) {
		s.setUnread(0)
		s.markAllRead()
	})
}

// TogglePanel flips the panel. Opening loads the feed and, when the
// loaded unread count is positive, marks everything read: opening the
// panel is the acknowledgment. Closing makes no request.
func (w *Widget) TogglePanel(ctx context.Context) (open bool) {
	snap := w.update(func(s *state) { s.open = !s.open })
	if !snap.Open {
		return false
	}

	w.LoadFeed(ctx)
	if w.Snapshot().UnreadCount > 0 {
		w.MarkAllRead(ctx)
	}
	return true
}

// ClosePanel hides the panel.
func (w *Widget) ClosePanel() {
	w.update(func(s *state) { s.open = false })
}

// HandleDocumentClick closes the open panel when a click lands outside
// the widget.
func (w *Widget) HandleDocumentClick(inside bool) {
	if inside || !w.Snapshot().Open {
		return
	}
	w.ClosePanel()
}

// ClickItem acknowledges a single notification row. Clicks on the row's
// action link are left to the link.
func (w *Widget) ClickItem(ctx context.Context, id int64, onAction bool) {
	if onAction || id <= 0 {
		return
	}
	w.MarkRead(ctx, []int64{id})
}

// RequestIdentifier is the set-phone call to action: prompt if needed,
// then reload the feed and the count.
func (w *Widget) RequestIdentifier(ctx context.Context) {
	w.ident.Resolve(ctx, true)
	w.Reload(ctx)
}

// Reload loads the feed and then refreshes the count.
func (w *Widget) Reload(ctx context.Context) {
	w.LoadFeed(ctx)
	w.RefreshCount(ctx)
}
