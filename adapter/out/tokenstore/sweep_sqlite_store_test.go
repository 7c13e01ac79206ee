package tokenstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"sweep_server/core/port/out"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tokens.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestTokenRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	token := &oauth2.Token{
		AccessToken:  "at",
		RefreshToken: "rt",
		TokenType:    "Bearer",
		Expiry:       time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.Put(ctx, "a@x.com", token); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AccessToken != "at" || got.RefreshToken != "rt" {
		t.Errorf("token = %+v", got)
	}
	if !got.Expiry.Equal(token.Expiry) {
		t.Errorf("expiry = %v, want %v", got.Expiry, token.Expiry)
	}
}

func TestPutReplacesExistingToken(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "a@x.com", &oauth2.Token{AccessToken: "old"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "a@x.com", &oauth2.Token{AccessToken: "new"}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := store.Get(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AccessToken != "new" {
		t.Errorf("access token = %q, want replacement", got.AccessToken)
	}

	ids, err := store.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("got %d accounts after replace, want 1", len(ids))
	}
}

func TestGetUnknownAccount(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Get(context.Background(), "nobody@x.com"); !errors.Is(err, out.ErrTokenNotFound) {
		t.Errorf("err = %v, want ErrTokenNotFound", err)
	}
}

func TestDeleteToken(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "a@x.com", &oauth2.Token{AccessToken: "at"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Delete(ctx, "a@x.com"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "a@x.com"); !errors.Is(err, out.ErrTokenNotFound) {
		t.Error("token survived delete")
	}
	if err := store.Delete(ctx, "a@x.com"); !errors.Is(err, out.ErrTokenNotFound) {
		t.Errorf("repeat delete = %v, want ErrTokenNotFound", err)
	}
}

func TestListAccountsSorted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"c@z.net", "a@x.com", "b@y.org"} {
		if err := store.Put(ctx, id, &oauth2.Token{AccessToken: "at"}); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}

	ids, err := store.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"a@x.com", "b@y.org", "c@z.net"}
	if len(ids) != len(want) {
		t.Fatalf("got %d accounts, want %d", len(ids), len(want))
	}
	for i, id := range want {
		if ids[i] != id {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], id)
		}
	}
}
