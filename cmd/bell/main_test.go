package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-bell/internal/api"
	"github.com/nhle/notification-bell/internal/identity"
	"github.com/nhle/notification-bell/internal/metrics"
	"github.com/nhle/notification-bell/internal/model"
	"github.com/nhle/notification-bell/internal/widget"
	"github.com/nhle/notification-bell/tests/testutil"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testConfig(t *testing.T, baseURL string) *model.AppConfig {
	t.Helper()
	cfg, err := model.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	cfg.Server.BaseURL = baseURL
	return cfg
}

func TestNewClientSendsSessionCookie(t *testing.T) {
	srv := testutil.NewNotificationServer(t)
	srv.AdminSession = "s3cret"
	admin := model.Recipient{Type: model.RecipientAdmin}
	srv.Add(admin, model.Notification{Title: "New order #7"})
	ctx := context.Background()

	cfg := testConfig(t, srv.URL)
	client, err := newClient(cfg, metrics.New(), quietLogger())
	require.NoError(t, err)

	res := client.Feed(ctx, admin, 10)
	assert.False(t, res.OK)
	assert.Equal(t, "Admin notifications require admin login", res.Reason)

	cfg.Server.SessionID = "s3cret"
	client, err = newClient(cfg, metrics.New(), quietLogger())
	require.NoError(t, err)

	res = client.Feed(ctx, admin, 10)
	require.True(t, res.OK, res.Reason)
	require.Len(t, res.Value.Notifications, 1)
	assert.Equal(t, "New order #7", res.Value.Notifications[0].Title)
}

func TestNewClientWrongSessionRejected(t *testing.T) {
	srv := testutil.NewNotificationServer(t)
	srv.AdminSession = "s3cret"

	cfg := testConfig(t, srv.URL)
	cfg.Server.SessionID = "stale"
	client, err := newClient(cfg, nil, quietLogger())
	require.NoError(t, err)

	res := client.UnreadCount(context.Background(), model.Recipient{Type: model.RecipientAdmin})
	assert.False(t, res.OK)
	assert.Equal(t, "Admin notifications require admin login", res.Reason)
}

func newHTMLWidget(t *testing.T, srv *testutil.NotificationServer, mode model.RecipientType, prompter identity.Prompter) (*widget.Widget, *identity.Resolver) {
	t.Helper()
	log := quietLogger()

	client, err := api.NewClient(api.Options{BaseURL: srv.URL, Timeout: 5 * time.Second, Logger: log})
	require.NoError(t, err)

	ident := identity.New(identity.Options{
		Mode:       mode,
		StorageKey: model.DefaultStorageKey,
		Store:      testutil.NewTestStore(t),
		Prompter:   prompter,
		Logger:     log,
	})
	w := widget.New(client, ident, widget.Options{Mode: mode, PollInterval: time.Hour, Logger: log})
	t.Cleanup(w.Stop)
	return w, ident
}

func TestPrintHTMLPromptsThenLoadsFeedOnce(t *testing.T) {
	srv := testutil.NewNotificationServer(t)
	srv.CSRFToken = "tok-123"
	srv.Add(model.Recipient{Type: model.RecipientUser, Identifier: "9876543210"}, model.Notification{Title: "Order placed"})

	prompts := 0
	w, ident := newHTMLWidget(t, srv, model.RecipientUser, identity.PrompterFunc(func(context.Context) (string, error) {
		prompts++
		return "09876543210", nil
	}))

	var out bytes.Buffer
	require.NoError(t, printHTML(context.Background(), w, ident, &out))

	assert.Equal(t, 1, prompts)
	assert.Equal(t, []string{api.PathFeed, api.PathMarkAllRead}, srv.Calls())
	assert.Contains(t, out.String(), "Order placed")
	assert.True(t, w.Snapshot().Open)
}

func TestPrintHTMLWithoutPhoneShowsCallToAction(t *testing.T) {
	srv := testutil.NewNotificationServer(t)
	w, ident := newHTMLWidget(t, srv, model.RecipientUser, identity.PrompterFunc(func(context.Context) (string, error) {
		return "", nil
	}))

	var out bytes.Buffer
	require.NoError(t, printHTML(context.Background(), w, ident, &out))

	assert.Empty(t, srv.Calls())
	assert.Contains(t, out.String(), "Add your phone number to view notifications.")
}
