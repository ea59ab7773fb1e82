package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notification-bell/internal/identity"
	"github.com/nhle/notification-bell/internal/model"
	"github.com/nhle/notification-bell/tests/testutil"
)

func countingPrompter(answer string, calls *int) identity.Prompter {
	return identity.PrompterFunc(func(context.Context) (string, error) {
		*calls++
		return answer, nil
	})
}

func TestResolveAdminIsAlwaysEmpty(t *testing.T) {
	calls := 0
	r := identity.New(identity.Options{
		Mode:     model.RecipientAdmin,
		Resolve:  func() string { return "9999999999" },
		Store:    testutil.NewTestStore(t),
		Prompter: countingPrompter("9999999999", &calls),
	})

	assert.Empty(t, r.Resolve(context.Background(), true))
	assert.Zero(t, calls)
}

func TestResolveOrder(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	require.NoError(t, s.SetItem(ctx, "phone-key", " 8888888888 "))

	t.Run("callback wins", func(t *testing.T) {
		r := identity.New(identity.Options{
			StorageKey: "phone-key",
			Resolve:    func() string { return " 7777777777 " },
			Store:      s,
		})
		assert.Equal(t, "7777777777", r.Resolve(ctx, false))
	})

	t.Run("empty callback falls through to storage", func(t *testing.T) {
		r := identity.New(identity.Options{
			StorageKey: "phone-key",
			Resolve:    func() string { return "  " },
			Store:      s,
		})
		assert.Equal(t, "8888888888", r.Resolve(ctx, false))
	})
}

func TestResolvePromptOnlyWhenAsked(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	calls := 0
	r := identity.New(identity.Options{
		StorageKey: "phone-key",
		Store:      s,
		Prompter:   countingPrompter("+91 98765-43210", &calls),
	})

	assert.Empty(t, r.Resolve(ctx, false))
	assert.Zero(t, calls)

	assert.Equal(t, "9876543210", r.Resolve(ctx, true))
	assert.Equal(t, 1, calls)

	stored, err := s.GetItem(ctx, "phone-key")
	require.NoError(t, err)
	assert.Equal(t, "9876543210", stored)

	// Persisted now, so no second prompt.
	assert.Equal(t, "9876543210", r.Resolve(ctx, true))
	assert.Equal(t, 1, calls)
}

func TestResolveDeclinedPromptPersistsNothing(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	for name, p := range map[string]identity.Prompter{
		"empty answer": identity.PrompterFunc(func(context.Context) (string, error) { return "  ", nil }),
		"error":        identity.PrompterFunc(func(context.Context) (string, error) { return "", errors.New("no tty") }),
	} {
		t.Run(name, func(t *testing.T) {
			r := identity.New(identity.Options{Store: s, Prompter: p})
			assert.Empty(t, r.Resolve(ctx, true))
			_, err := s.GetItem(ctx, model.DefaultStorageKey)
			assert.Error(t, err)
		})
	}
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	r := identity.New(identity.Options{Store: s})

	kept, err := r.Remember(ctx, "9999999999")
	require.NoError(t, err)
	assert.Equal(t, "9999999999", kept)
	assert.Equal(t, "9999999999", r.Resolve(ctx, false))

	require.NoError(t, r.Forget(ctx))
	assert.Empty(t, r.Resolve(ctx, false))
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "9876543210", want: "9876543210"},
		{in: "+91 98765 43210", want: "9876543210"},
		{in: "(987) 654-3210", want: "9876543210"},
		{in: "12345", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := identity.NormalizePhone(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, identity.ErrShortPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigured(t *testing.T) {
	tests := []struct {
		name     string
		mode     model.RecipientType
		callback func() string
		want     string
	}{
		{name: "no callback", mode: model.RecipientUser, want: ""},
		{name: "blank callback", mode: model.RecipientUser, callback: func() string { return " " }, want: ""},
		{name: "callback value", mode: model.RecipientUser, callback: func() string { return " 7777777777 " }, want: "7777777777"},
		{name: "admin ignores callback", mode: model.RecipientAdmin, callback: func() string { return "7777777777" }, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := identity.New(identity.Options{Mode: tt.mode, Resolve: tt.callback})
			assert.Equal(t, tt.want, r.Configured())
		})
	}
}
