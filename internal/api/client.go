package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/notification-bell/internal/metrics"
	"github.com/nhle/notification-bell/internal/model"
)

// Endpoint paths, relative to the storefront origin.
const (
	PathUnreadCount = "/api/notifications/unread-count/"
	PathFeed        = "/api/notifications/feed/"
	PathMarkRead    = "/api/notifications/mark-read/"
	PathMarkAllRead = "/api/notifications/mark-all-read/"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the storefront origin (e.g., https://shop.example.com).
	BaseURL string

	// HTTPClient is used as is when set. A cookie jar is attached when it
	// has none so session and CSRF cookies travel with every request.
	HTTPClient *http.Client

	Timeout    time.Duration
	CSRFCookie string
	CSRFHeader string

	Metrics *metrics.Metrics
	Logger  logrus.FieldLogger
}

// Client is a thin HTTP client for the storefront notification API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	csrfCookie string
	csrfHeader string
	metrics    *metrics.Metrics
	log        logrus.FieldLogger
}

// NewClient creates a notification API client.
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url %q: %w", opts.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		hc.Jar = jar
	}

	c := &Client{
		baseURL:    base,
		httpClient: hc,
		csrfCookie: opts.CSRFCookie,
		csrfHeader: opts.CSRFHeader,
		metrics:    opts.Metrics,
		log:        opts.Logger,
	}
	if c.csrfCookie == "" {
		c.csrfCookie = model.DefaultCSRFCookie
	}
	if c.csrfHeader == "" {
		c.csrfHeader = model.DefaultCSRFHeader
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	return c, nil
}

// SetCookie stores a cookie for the storefront origin, e.g. a session id
// copied from a browser.
func (c *Client) SetCookie(name, value string) {
	c.httpClient.Jar.SetCookies(c.baseURL, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
}

// UnreadCount fetches the unread count and latest id for r.
func (c *Client) UnreadCount(ctx context.Context, r model.Recipient) Result[model.UnreadCount] {
	return do[model.UnreadCount](ctx, c, http.MethodGet, PathUnreadCount, recipientQuery(r), nil)
}

// Feed fetches up to limit most recent notifications for r.
func (c *Client) Feed(ctx context.Context, r model.Recipient, limit int) Result[model.Feed] {
	q := recipientQuery(r)
	q.Set("limit", strconv.Itoa(limit))
	res := do[model.Feed](ctx, c, http.MethodGet, PathFeed, q, nil)
	if res.OK && res.Value.Notifications == nil {
		res.Value.Notifications = []model.Notification{}
	}
	return res
}

type markReadBody struct {
	model.Recipient
	NotificationIDs []int64 `json:"notification_ids"`
}

// MarkRead marks ids read for r.
func (c *Client) MarkRead(ctx context.Context, r model.Recipient, ids []int64) Result[model.MarkReadResult] {
	return do[model.MarkReadResult](ctx, c, http.MethodPost, PathMarkRead, nil, markReadBody{
		Recipient:       r,
		NotificationIDs: ids,
	})
}

// MarkAllRead marks every notification of r read.
func (c *Client) MarkAllRead(ctx context.Context, r model.Recipient) Result[model.MarkAllReadResult] {
	return do[model.MarkAllReadResult](ctx, c, http.MethodPost, PathMarkAllRead, nil, r)
}

func recipientQuery(r model.Recipient) url.Values {
	q := url.Values{}
	q.Set("recipient_type", string(r.Type))
	if r.Identifier != "" {
		q.Set("recipient_identifier", r.Identifier)
	}
	return q
}

// endpointLabel turns "/api/notifications/mark-read/" into "mark-read".
func endpointLabel(path string) string {
	path = strings.TrimSuffix(path, "/")
	return path[strings.LastIndex(path, "/")+1:]
}

// do builds the request, attaches the CSRF header on POST, and decodes the
// response into a Result. It never returns an error; transport failures
// become failed results.
func do[T any](
	ctx context.Context,
	c *Client,
	method string,
	path string,
	query url.Values,
	body interface{},
) Result[T] {
	start := time.Now()
	res := c.roundTrip(ctx, method, path, query, body)
	var out Result[T]
	if res.err != nil {
		out = Failed[T](res.err.Error())
	} else {
		out = decode[T](res.status, res.body)
	}

	c.metrics.ObserveRequest(endpointLabel(path), out.OK, time.Since(start))
	if !out.OK {
		c.log.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
			"status": res.status,
			"reason": out.Reason,
		}).Debug("notification request failed")
	}
	return out
}

type rawResponse struct {
	status int
	body   []byte
	err    error
}

func (c *Client) roundTrip(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	body interface{},
) rawResponse {
	u := c.baseURL.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return rawResponse{err: fmt.Errorf("marshaling request body: %w", err)}
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return rawResponse{err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		if token := c.csrfToken(); token != "" {
			req.Header.Set(c.csrfHeader, token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return rawResponse{err: fmt.Errorf("executing request %s %s: %w", method, path, err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return rawResponse{err: fmt.Errorf("reading response body: %w", err)}
	}

	return rawResponse{status: resp.StatusCode, body: respBody}
}

// csrfToken reads the CSRF cookie for the storefront origin.
func (c *Client) csrfToken() string {
	for _, ck := range c.httpClient.Jar.Cookies(c.baseURL) {
		if ck.Name == c.csrfCookie {
			return ck.Value
		}
	}
	return ""
}
