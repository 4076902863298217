package prefs

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	s := NewSQLiteStore(db)
	if err := s.CreateTable(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

func testStoreRoundTrip(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, KeyCurrency)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("unset key: got %v, want ErrNotFound", err)
	}

	if err := s.Set(ctx, KeyCurrency, "INR"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, KeyCurrencySymbol, "₹"); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, KeyCurrency)
	if err != nil || got != "INR" {
		t.Fatalf("Get = %q, %v", got, err)
	}

	// Upsert replaces.
	if err := s.Set(ctx, KeyCurrency, "USD"); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Get(ctx, KeyCurrency)
	if got != "USD" {
		t.Fatalf("after upsert = %q", got)
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[KeyCurrencySymbol] != "₹" {
		t.Fatalf("All = %v", all)
	}

	if err := s.Set(ctx, "favorite_color", "blue"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("unknown key write: got %v, want ErrUnknownKey", err)
	}
}

func TestSQLiteStore(t *testing.T) {
	testStoreRoundTrip(t, openTestStore(t))
}

func TestMemoryStore(t *testing.T) {
	testStoreRoundTrip(t, NewMemoryStore())
}
