package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nhle/notification-bell/internal/model"
	"github.com/nhle/notification-bell/internal/store"
)

// Prompter asks the user for a phone number. An empty result means the
// user declined.
type Prompter interface {
	Prompt(ctx context.Context) (string, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context) (string, error)

// Prompt implements Prompter.
func (f PrompterFunc) Prompt(ctx context.Context) (string, error) { return f(ctx) }

// Options configures a Resolver. Every field is optional.
type Options struct {
	Mode model.RecipientType

	// StorageKey is the durable key the phone number is kept under.
	StorageKey string

	// Resolve is consulted first; an empty return falls through to Store.
	Resolve func() string

	Store    store.Store
	Prompter Prompter
	Logger   logrus.FieldLogger
}

// Resolver supplies the recipient identifier for the widget.
type Resolver struct {
	mode       model.RecipientType
	storageKey string
	resolve    func() string
	store      store.Store
	prompter   Prompter
	log        logrus.FieldLogger
}

// New builds a Resolver from opts.
func New(opts Options) *Resolver {
	r := &Resolver{
		mode:       opts.Mode,
		storageKey: opts.StorageKey,
		resolve:    opts.Resolve,
		store:      opts.Store,
		prompter:   opts.Prompter,
		log:        opts.Logger,
	}
	if r.mode == "" {
		r.mode = model.RecipientUser
	}
	if r.storageKey == "" {
		r.storageKey = model.DefaultStorageKey
	}
	if r.log == nil {
		r.log = logrus.StandardLogger()
	}
	return r
}

// Configured returns the identifier the callback supplies, if any. It
// takes precedence over anything stored, so a form cannot change it.
func (r *Resolver) Configured() string {
	if r.mode == model.RecipientAdmin || r.resolve == nil {
		return ""
	}
	return strings.TrimSpace(r.resolve())
}

// Resolve returns the recipient identifier. ADMIN never needs one. For USER
// it tries the callback, then durable storage, then (only when
// promptIfMissing is set) the prompter, persisting a non-empty answer.
func (r *Resolver) Resolve(ctx context.Context, promptIfMissing bool) string {
	if r.mode == model.RecipientAdmin {
		return ""
	}

	value := r.Configured()
	if value == "" {
		value = r.stored(ctx)
	}
	if value == "" && promptIfMissing && r.prompter != nil {
		answer, err := r.prompter.Prompt(ctx)
		if err != nil {
			r.log.WithError(err).Debug("identifier prompt failed")
			return ""
		}
		value, err = r.Remember(ctx, answer)
		if err != nil {
			r.log.WithError(err).Warn("persisting identifier failed")
		}
	}
	return value
}

// Remember trims and, when it looks like a phone number, canonicalizes
// value and writes it to durable storage. It returns the value it kept.
func (r *Resolver) Remember(ctx context.Context, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if phone, err := NormalizePhone(value); err == nil {
		value = phone
	}
	if r.store == nil {
		return value, nil
	}
	return value, r.store.SetItem(ctx, r.storageKey, value)
}

// Forget removes the stored identifier.
func (r *Resolver) Forget(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	return r.store.RemoveItem(ctx, r.storageKey)
}

func (r *Resolver) stored(ctx context.Context) string {
	if r.store == nil {
		return ""
	}
	value, err := r.store.GetItem(ctx, r.storageKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.log.WithError(err).Warn("reading stored identifier failed")
		}
		return ""
	}
	return strings.TrimSpace(value)
}
