package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/nhle/notification-bell/internal/api"
	"github.com/nhle/notification-bell/internal/app"
	"github.com/nhle/notification-bell/internal/credential"
	"github.com/nhle/notification-bell/internal/identity"
	"github.com/nhle/notification-bell/internal/logger"
	"github.com/nhle/notification-bell/internal/metrics"
	"github.com/nhle/notification-bell/internal/model"
	"github.com/nhle/notification-bell/internal/render"
	"github.com/nhle/notification-bell/internal/store"
	"github.com/nhle/notification-bell/internal/widget"
)

type flags struct {
	configPath string
	mode       string
	phone      string
	session    string
	html       bool
	write      bool
}

func parseFlags() flags {
	var f flags
	pflag.StringVarP(&f.configPath, "config", "c", model.DefaultConfigPath(), "path to the config file")
	pflag.StringVarP(&f.mode, "mode", "m", "", "recipient type: USER or ADMIN (overrides config)")
	pflag.StringVarP(&f.phone, "phone", "p", "", "phone number to look notifications up by (overrides config)")
	pflag.StringVar(&f.session, "session", "", "logged-in session id sent as server.session_cookie (needed for ADMIN)")
	pflag.BoolVar(&f.html, "html", false, "open the panel once and print the widget markup instead of starting the UI")
	pflag.BoolVar(&f.write, "write-config", false, "write the effective config to --config and exit")
	pflag.Parse()
	return f
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "bell:", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal; BELL_* variables may come from the shell.
	_ = godotenv.Load()

	f := parseFlags()

	cfg, err := model.LoadConfig(f.configPath)
	if err != nil {
		return err
	}
	if f.mode != "" {
		cfg.Widget.Mode = f.mode
	}
	if f.phone != "" {
		cfg.Identity.Phone = f.phone
	}
	if f.session != "" {
		cfg.Server.SessionID = f.session
	}
	cfg.Normalize()

	if f.write {
		if err := model.SaveConfig(f.configPath, cfg); err != nil {
			return err
		}
		fmt.Println("wrote", f.configPath)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, closeLog, err := openLogger(cfg, f.html)
	if err != nil {
		return err
	}
	defer closeLog.Close()

	kv, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore.Close()

	m := metrics.New()
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr); err != nil {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	client, err := newClient(cfg, m, log)
	if err != nil {
		return err
	}

	identOpts := identity.Options{
		Mode:       cfg.Mode(),
		StorageKey: cfg.Widget.StorageKey,
		Resolve:    func() string { return cfg.Identity.Phone },
		Store:      kv,
		Logger:     log,
	}
	if f.html {
		identOpts.Prompter = identity.HuhPrompter{}
	}
	ident := identity.New(identOpts)

	pollInterval := time.Duration(cfg.Widget.PollMs) * time.Millisecond
	w := widget.New(client, ident, widget.Options{
		Mode:         cfg.Mode(),
		PollInterval: pollInterval,
		FeedLimit:    cfg.Widget.FeedLimit,
		Logger:       log,
		Metrics:      m,
	})
	defer w.Stop()

	log.WithFields(logrus.Fields{
		"widget_id": w.ID(),
		"mode":      cfg.Mode(),
		"base_url":  cfg.Server.BaseURL,
	}).Info("notification bell starting")

	if f.html {
		return printHTML(ctx, w, ident, os.Stdout)
	}

	p := tea.NewProgram(
		app.New(ctx, w, ident, app.Options{PollInterval: pollInterval}),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}

// newClient builds the API client and seeds the session cookie when one
// is configured.
func newClient(cfg *model.AppConfig, m *metrics.Metrics, log logrus.FieldLogger) (*api.Client, error) {
	client, err := api.NewClient(api.Options{
		BaseURL:    cfg.Server.BaseURL,
		Timeout:    time.Duration(cfg.Server.TimeoutSec) * time.Second,
		CSRFCookie: cfg.Server.CSRFCookie,
		CSRFHeader: cfg.Server.CSRFHeader,
		Metrics:    m,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Server.SessionID != "" {
		client.SetCookie(cfg.Server.SessionCookie, cfg.Server.SessionID)
	}
	return client, nil
}

// printHTML opens the panel once, prompting for a phone number first when
// one is needed, and writes the widget markup to out.
func printHTML(ctx context.Context, w *widget.Widget, ident *identity.Resolver, out io.Writer) error {
	// Opening the panel loads the feed with whatever the prompt stored.
	ident.Resolve(ctx, true)
	w.TogglePanel(ctx)
	if err := render.Widget(out, w.Snapshot()); err != nil {
		return fmt.Errorf("rendering widget: %w", err)
	}
	fmt.Fprintln(out)
	return nil
}

// openLogger writes to the log file while the terminal UI owns the
// screen, and to stderr in --html mode.
func openLogger(cfg *model.AppConfig, toStderr bool) (*logrus.Logger, io.Closer, error) {
	if toStderr || cfg.Log.File == "" {
		return logger.New(os.Stderr, cfg.Log.Level), io.NopCloser(nil), nil
	}
	log, closer, err := logger.NewFile(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return log, closer, nil
}

// openStore opens the durable store the prompted phone number is kept in.
func openStore(cfg *model.AppConfig) (store.Store, io.Closer, error) {
	switch cfg.Identity.Backend {
	case "keyring":
		s, err := credential.Open()
		if err != nil {
			return nil, nil, fmt.Errorf("opening keyring: %w", err)
		}
		return s, io.NopCloser(nil), nil
	default:
		s, err := store.NewSQLiteStore(cfg.Storage.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening store: %w", err)
		}
		return s, s, nil
	}
}
