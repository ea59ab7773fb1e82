package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/nhle/notification-bell/internal/model"
)

// NotificationServer is an in-memory stand-in for the storefront
// notification API. It records every request path in order.
type NotificationServer struct {
	*httptest.Server

	// CSRFToken, when set, is handed out as a cookie on GET requests and
	// required as the X-CSRFToken header on POST requests.
	CSRFToken string

	// AdminSession, when set, must arrive as the "sessionid" cookie on
	// every ADMIN request.
	AdminSession string

	mu       sync.Mutex
	records  []record
	nextID   int64
	calls    []string
	failures map[string]failure
}

type record struct {
	recipient model.Recipient
	n         model.Notification
}

type failure struct {
	status int
	body   string
}

// NewNotificationServer starts a server that is closed with the test.
func NewNotificationServer(t *testing.T) *NotificationServer {
	t.Helper()

	s := &NotificationServer{failures: make(map[string]failure)}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/notifications/unread-count/", s.handleUnreadCount)
	mux.HandleFunc("/api/notifications/feed/", s.handleFeed)
	mux.HandleFunc("/api/notifications/mark-read/", s.handleMarkRead)
	mux.HandleFunc("/api/notifications/mark-all-read/", s.handleMarkAllRead)
	s.Server = httptest.NewServer(s.wrap(mux))
	t.Cleanup(s.Close)

	return s
}

// Add stores n for r and returns its id. Ids increase with each call.
func (s *NotificationServer) Add(r model.Recipient, n model.Notification) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	n.ID = s.nextID
	if n.Status == "" {
		n.Status = "SENT"
	}
	s.records = append(s.records, record{recipient: r, n: n})
	return n.ID
}

// Calls returns the request paths seen so far.
func (s *NotificationServer) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// ResetCalls forgets recorded calls.
func (s *NotificationServer) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// FailWith makes every request to path answer with status and body until
// Recover is called.
func (s *NotificationServer) FailWith(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = failure{status: status, body: body}
}

// Recover clears all injected failures.
func (s *NotificationServer) Recover() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]failure)
}

// Unread returns the server-side unread count for r.
func (s *NotificationServer) Unread(r model.Recipient) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadLocked(r)
}

func (s *NotificationServer) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, r.URL.Path)
		f, failing := s.failures[r.URL.Path]
		token := s.CSRFToken
		s.mu.Unlock()

		if failing {
			w.WriteHeader(f.status)
			w.Write([]byte(f.body))
			return
		}
		if token != "" {
			if r.Method == http.MethodGet {
				http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: token, Path: "/"})
			} else if r.Header.Get("X-CSRFToken") != token {
				writeJSON(w, http.StatusForbidden, map[string]string{"detail": "CSRF Failed"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *NotificationServer) matches(rec record, r model.Recipient) bool {
	return rec.recipient.Type == r.Type && rec.recipient.Identifier == r.Identifier
}

func (s *NotificationServer) unreadLocked(r model.Recipient) int {
	n := 0
	for _, rec := range s.records {
		if s.matches(rec, r) && !rec.n.IsRead {
			n++
		}
	}
	return n
}

// recipientFrom validates the descriptor the way the storefront does.
func (s *NotificationServer) recipientFrom(w http.ResponseWriter, req *http.Request, typ, identifier string) (model.Recipient, bool) {
	r := model.Recipient{Type: model.RecipientType(typ), Identifier: identifier}
	switch r.Type {
	case model.RecipientAdmin:
		s.mu.Lock()
		session := s.AdminSession
		s.mu.Unlock()
		if session != "" {
			c, err := req.Cookie(model.DefaultSessionCookie)
			if err != nil || c.Value != session {
				writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Admin notifications require admin login"})
				return r, false
			}
		}
		return r, true
	case model.RecipientUser:
		if identifier == "" {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"recipient_identifier": "Phone is required for user notifications",
			})
			return r, false
		}
		return r, true
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid recipient_type"})
		return r, false
	}
}

func (s *NotificationServer) handleUnreadCount(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	r, ok := s.recipientFrom(w, req, q.Get("recipient_type"), q.Get("recipient_identifier"))
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *int64
	for _, rec := range s.records {
		if s.matches(rec, r) && (latest == nil || rec.n.ID > *latest) {
			id := rec.n.ID
			latest = &id
		}
	}
	writeJSON(w, http.StatusOK, model.UnreadCount{UnreadCount: s.unreadLocked(r), LatestID: latest})
}

func (s *NotificationServer) handleFeed(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	r, ok := s.recipientFrom(w, req, q.Get("recipient_type"), q.Get("recipient_identifier"))
	if !ok {
		return
	}
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 {
		limit = 20
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var items []model.Notification
	for _, rec := range s.records {
		if s.matches(rec, r) {
			items = append(items, rec.n)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	if len(items) > limit {
		items = items[:limit]
	}

	feed := model.Feed{Notifications: items, UnreadCount: s.unreadLocked(r)}
	if len(items) > 0 {
		id := items[0].ID
		feed.LatestID = &id
	}
	writeJSON(w, http.StatusOK, feed)
}

type markBody struct {
	model.Recipient
	NotificationIDs []int64 `json:"notification_ids"`
}

func (s *NotificationServer) handleMarkRead(w http.ResponseWriter, req *http.Request) {
	var body markBody
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}
	r, ok := s.recipientFrom(w, req, string(body.Type), body.Identifier)
	if !ok {
		return
	}
	if len(body.NotificationIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"notification_ids": []string{"This list may not be empty."}})
		return
	}

	ids := make(map[int64]bool, len(body.NotificationIDs))
	for _, id := range body.NotificationIDs {
		ids[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for i := range s.records {
		rec := &s.records[i]
		if s.matches(*rec, r) && ids[rec.n.ID] && !rec.n.IsRead {
			rec.n = rec.n.MarkedRead()
			updated++
		}
	}
	writeJSON(w, http.StatusOK, model.MarkReadResult{Updated: updated, UnreadCount: s.unreadLocked(r)})
}

func (s *NotificationServer) handleMarkAllRead(w http.ResponseWriter, req *http.Request) {
	var body model.Recipient
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}
	r, ok := s.recipientFrom(w, req, string(body.Type), body.Identifier)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for i := range s.records {
		rec := &s.records[i]
		if s.matches(*rec, r) && !rec.n.IsRead {
			rec.n = rec.n.MarkedRead()
			updated++
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated, "unread_count": 0})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
