package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"courier/internal/registry"
	"courier/internal/services"
	"courier/internal/testsupport"
	"courier/internal/transport"
)

func TestCreateAndLookup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)

	ctx := context.Background()
	share, err := store.Create(ctx, 42, []transport.ItemRef{10, 11, 12}, "holiday album", "collection")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if share.Token == "" || share.ID == "" {
		t.Fatalf("expected token and id to be assigned: %+v", share)
	}

	fetched, err := store.GetByToken(ctx, share.Token)
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if fetched.Owner != 42 || fetched.Caption != "holiday album" || fetched.Count() != 3 {
		t.Fatalf("unexpected share: %+v", fetched)
	}
	for i, ref := range []transport.ItemRef{10, 11, 12} {
		if fetched.Refs[i] != ref {
			t.Fatalf("ref order not preserved: %v", fetched.Refs)
		}
	}
}

func TestCreateRejectsEmptyShare(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)

	if _, err := store.Create(context.Background(), 1, nil, "", ""); !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected persistence error for empty share, got %v", err)
	}
}

func TestGetByTokenNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)

	_, err := store.GetByToken(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListByOwnerOrdersNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)

	ctx := context.Background()
	var tokens []string
	for i := 0; i < 3; i++ {
		share, err := store.Create(ctx, 7, []transport.ItemRef{transport.ItemRef(100 + i)}, "", "file")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		tokens = append(tokens, share.Token)
		time.Sleep(2 * time.Millisecond)
	}
	// A different owner's share must not appear.
	if _, err := store.Create(ctx, 8, []transport.ItemRef{999}, "", "file"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	shares, err := store.ListByOwner(ctx, 7, 0, 10)
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(shares) != 3 {
		t.Fatalf("expected 3 shares, got %d", len(shares))
	}
	for i, share := range shares {
		if share.Token != tokens[len(tokens)-1-i] {
			t.Fatalf("expected newest-first order, got %v", shares)
		}
	}

	count, err := store.CountByOwner(ctx, 7)
	if err != nil || count != 3 {
		t.Fatalf("CountByOwner = %d, %v", count, err)
	}
}

func TestListByOwnerPagination(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := store.Create(ctx, 7, []transport.ItemRef{transport.ItemRef(i)}, "", ""); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	page, err := store.ListByOwner(ctx, 7, 3, 3)
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected trailing page of 2, got %d", len(page))
	}
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)

	ctx := context.Background()
	share, err := store.Create(ctx, 42, []transport.ItemRef{1, 2}, "", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := store.Delete(ctx, share.Token, 99); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}
	// Record must be unchanged after the denied attempt.
	if _, err := store.GetByToken(ctx, share.Token); err != nil {
		t.Fatalf("share must survive denied delete: %v", err)
	}

	deleted, err := store.Delete(ctx, share.Token, 42)
	if err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if deleted.Count() != 2 {
		t.Fatalf("expected deleted record with refs for retraction, got %+v", deleted)
	}
	if _, err := store.GetByToken(ctx, share.Token); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if _, err := store.Delete(ctx, share.Token, 42); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for second delete, got %v", err)
	}
}

func TestStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)

	ctx := context.Background()
	store.Create(ctx, 1, []transport.ItemRef{1, 2, 3}, "", "")
	store.Create(ctx, 2, []transport.ItemRef{4}, "", "")

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Shares != 2 || stats.Items != 4 || stats.Owners != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestCheckHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)

	if err := store.CheckHealth(context.Background()); err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
}

func TestTokenUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		token, err := registry.NewToken()
		if err != nil {
			t.Fatalf("NewToken failed: %v", err)
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("token collision after %d tokens: %s", i, token)
		}
		seen[token] = struct{}{}
	}
}
