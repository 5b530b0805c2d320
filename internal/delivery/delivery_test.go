package delivery_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"courier/internal/delivery"
	"courier/internal/logging"
	"courier/internal/services"
	"courier/internal/testsupport"
	"courier/internal/transport"
)

const (
	viewer transport.PrincipalID = 42
	dest   transport.ChannelID  = 42
)

func newEngine(t *testing.T, refs int) (*delivery.Engine, *testsupport.FakeTransport, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithPageSize(3))
	store := testsupport.MustOpenRegistry(t, cfg)
	fake := testsupport.NewFakeTransport()
	gate := testsupport.NewScriptedGate(viewer)

	items := make([]transport.ItemRef, refs)
	for i := range items {
		items[i] = transport.ItemRef(100 + i)
	}
	share := testsupport.NewShare(t, store, 7, items)

	return delivery.New(fake, store, gate, cfg, logging.NewNop()), fake, share.Token
}

func TestShowDeliversPageWindowInOrder(t *testing.T) {
	engine, fake, token := newEngine(t, 7)

	if err := engine.Show(context.Background(), viewer, dest, token, 1); err != nil {
		t.Fatalf("Show failed: %v", err)
	}

	deliveries := fake.Deliveries()
	if len(deliveries) != 1 {
		t.Fatalf("expected one delivery, got %d", len(deliveries))
	}
	want := []transport.ItemRef{100, 101, 102}
	if len(deliveries[0].Refs) != len(want) {
		t.Fatalf("expected first page of 3, got %v", deliveries[0].Refs)
	}
	for i, ref := range want {
		if deliveries[0].Refs[i] != ref {
			t.Fatalf("page refs out of order: %v", deliveries[0].Refs)
		}
	}

	sent := fake.SentMessages()
	if len(sent) != 1 {
		t.Fatalf("expected one panel message, got %d", len(sent))
	}
	if sent[0].Panel == nil || len(sent[0].Panel.Rows) == 0 {
		t.Fatalf("expected navigation panel on page message")
	}
	if !strings.Contains(sent[0].Text, "page 1 of 3") {
		t.Fatalf("unexpected panel text: %q", sent[0].Text)
	}
}

func TestShowClampsPageIntoRange(t *testing.T) {
	engine, fake, token := newEngine(t, 7)

	if err := engine.Show(context.Background(), viewer, dest, token, 99); err != nil {
		t.Fatalf("Show failed: %v", err)
	}

	deliveries := fake.Deliveries()
	if got := deliveries[0].Refs; len(got) != 1 || got[0] != 106 {
		t.Fatalf("expected clamped last page [106], got %v", got)
	}
}

func TestNavigateRetractsPreviousPage(t *testing.T) {
	engine, fake, token := newEngine(t, 7)
	ctx := context.Background()

	if err := engine.Show(ctx, viewer, dest, token, 1); err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	first := fake.Deliveries()[0]
	firstPanel := fake.SentMessages()[0].ID

	if err := engine.Navigate(ctx, viewer, dest, token, 2); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}

	retracted := fake.Retracted()
	wantGone := append(append([]transport.MessageID{}, first.IDs...), firstPanel)
	if len(retracted) != len(wantGone) {
		t.Fatalf("expected previous page retracted, got %v", retracted)
	}
	for i, id := range wantGone {
		if retracted[i] != id {
			t.Fatalf("retraction mismatch: got %v want %v", retracted, wantGone)
		}
	}

	second := fake.Deliveries()[1]
	if second.Refs[0] != 103 {
		t.Fatalf("expected second page to start at 103, got %v", second.Refs)
	}
}

func TestNavigateSamePageIsNoop(t *testing.T) {
	engine, fake, token := newEngine(t, 7)
	ctx := context.Background()

	if err := engine.Show(ctx, viewer, dest, token, 2); err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	before := len(fake.Deliveries())

	if err := engine.Navigate(ctx, viewer, dest, token, 2); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if len(fake.Deliveries()) != before {
		t.Fatalf("same-page navigation must not redeliver")
	}
	if len(fake.Retracted()) != 0 {
		t.Fatalf("same-page navigation must not retract")
	}
}

func TestNavigateToleratesAlreadyGoneMessages(t *testing.T) {
	engine, fake, token := newEngine(t, 7)
	ctx := context.Background()

	if err := engine.Show(ctx, viewer, dest, token, 1); err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	for _, id := range fake.Deliveries()[0].IDs {
		fake.MarkGone(id)
	}

	if err := engine.Navigate(ctx, viewer, dest, token, 2); err != nil {
		t.Fatalf("Navigate must succeed when old messages are gone: %v", err)
	}
	if len(fake.Deliveries()) != 2 {
		t.Fatalf("expected new page delivered despite gone messages")
	}
}

func TestShowDeniesUnauthorizedViewer(t *testing.T) {
	engine, fake, token := newEngine(t, 3)

	err := engine.Show(context.Background(), 999, dest, token, 1)
	if !services.Denied(err) {
		t.Fatalf("expected denial, got %v", err)
	}
	if len(fake.Deliveries()) != 0 {
		t.Fatalf("denied viewer must receive nothing")
	}
}

func TestShowReportsUnknownToken(t *testing.T) {
	engine, _, _ := newEngine(t, 3)

	err := engine.Show(context.Background(), viewer, dest, "no-such-token", 1)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNavigateAfterForgetRereadsRegistry(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPageSize(3))
	store := testsupport.MustOpenRegistry(t, cfg)
	fake := testsupport.NewFakeTransport()
	gate := testsupport.NewScriptedGate(viewer)
	share := testsupport.NewShare(t, store, 7, []transport.ItemRef{1, 2, 3, 4})
	engine := delivery.New(fake, store, gate, cfg, logging.NewNop())
	ctx := context.Background()

	if err := engine.Show(ctx, viewer, dest, share.Token, 1); err != nil {
		t.Fatalf("Show failed: %v", err)
	}

	// Owner deletes the share mid-retrieval.
	if _, err := store.Delete(ctx, share.Token, 7); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	engine.Forget(share.Token)

	err := engine.Navigate(ctx, viewer, dest, share.Token, 2)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
