package widget

import "github.com/nhle/notification-bell/internal/model"

// LoopState is the state of the polling loop.
type LoopState int

const (
	LoopIdle LoopState = iota
	LoopPolling
)

// FeedStatus says what the list area should show.
type FeedStatus int

const (
	// FeedNotLoaded is the state before the panel was first opened.
	FeedNotLoaded FeedStatus = iota
	// FeedLoaded means Items holds the last successful load.
	FeedLoaded
	// FeedNeedsIdentifier means USER mode without a phone number.
	FeedNeedsIdentifier
	// FeedFailed means the last load failed; FeedError has the reason.
	FeedFailed
)

// Snapshot is an immutable copy of the widget state handed to listeners.
type Snapshot struct {
	WidgetID    string
	Mode        model.RecipientType
	Loop        LoopState
	Open        bool
	UnreadCount int

	// LatestID is the highest notification id seen, zero when none.
	LatestID int64

	Feed      FeedStatus
	FeedError string
	Items     []model.Notification
}

// state is the mutable widget state, guarded by Widget.mu.
type state struct {
	loop        LoopState
	open        bool
	unreadCount int
	latestID    int64
	feed        FeedStatus
	feedError   string
	items       []model.Notification
}

// setUnread stores a server-confirmed count.
func (s *state) setUnread(n int) {
	if n < 0 {
		n = 0
	}
	s.unreadCount = n
}

// advanceLatest moves latestID forward; stale responses never move it back.
func (s *state) advanceLatest(id *int64) {
	if id != nil && *id > s.latestID {
		s.latestID = *id
	}
}

// markRead patches every item whose id is in ids.
func (s *state) markRead(ids []int64) {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	items := make([]model.Notification, len(s.items))
	for i, n := range s.items {
		if set[n.ID] {
			n = n.MarkedRead()
		}
		items[i] = n
	}
	s.items = items
}

func (s *state) markAllRead() {
	items := make([]model.Notification, len(s.items))
	for i, n := range s.items {
		items[i] = n.MarkedRead()
	}
	s.items = items
}
