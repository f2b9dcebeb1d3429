package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"threegen/internal/config"
	"threegen/internal/db"
	documentdomain "threegen/internal/domain/document"
	memberdomain "threegen/internal/domain/member"
	"threegen/internal/identity"
	"threegen/internal/repository/inmemory"
	"threegen/internal/scheduler"
	"threegen/pkg/logger"
)

func testConfig() config.Config {
	return config.Config{
		Sync: config.SyncConfig{
			ConstraintPollInterval: 10 * time.Millisecond,
			RunTimeout:             time.Second,
			RetryBaseDelay:         5 * time.Millisecond,
			RetryMaxDelay:          20 * time.Millisecond,
			MaxAttempts:            3,
		},
	}
}

func newTestDevice(t *testing.T, documents *documentdomain.Service, ownerID string) (*Device, *inmemory.InMemoryRemoteStore) {
	t.Helper()
	localDB, err := db.NewSQLite(":memory:", logger.NewNop())
	if err != nil {
		t.Fatalf("open local db: %v", err)
	}
	owner := identity.Static{OwnerID: ownerID}
	endpoint := inmemory.NewInMemoryRemoteStore(documents, owner)
	device := NewDeviceWith(testConfig(), localDB, endpoint, owner, logger.NewNop())
	t.Cleanup(func() { _ = device.Close() })
	return device, endpoint
}

func syncNow(t *testing.T, device *Device, firstRun bool) {
	t.Helper()
	if _, err := device.Sync.Sync(context.Background(), firstRun); err != nil {
		t.Fatalf("sync: %v", err)
	}
}

func TestTwoDevicesConverge(t *testing.T) {
	documents := documentdomain.NewService(inmemory.NewInMemoryDocumentRepository())
	phone, _ := newTestDevice(t, documents, "owner-1")
	tablet, _ := newTestDevice(t, documents, "owner-1")
	ctx := context.Background()

	parent, err := phone.Members.Create(ctx, memberdomain.CreateInput{FirstName: "Anna", LastName: "Lind", Town: "Norrby"})
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	child, err := phone.Members.Create(ctx, memberdomain.CreateInput{FirstName: "Bo", LastName: "Lind", ParentID: &parent.ID})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	syncNow(t, phone, false)

	syncNow(t, tablet, true)
	pulled, err := tablet.Members.Get(ctx, child.ID)
	if err != nil {
		t.Fatalf("child missing on tablet: %v", err)
	}
	if pulled.ParentID == nil || *pulled.ParentID != parent.ID {
		t.Fatalf("expected parent link to survive the round trip, got %v", pulled.ParentID)
	}
	if pulled.SyncStatus != memberdomain.StatusSynced {
		t.Fatalf("expected pulled record to be SYNCED, got %s", pulled.SyncStatus)
	}

	town := "Söderby"
	if _, err := tablet.Members.Update(ctx, memberdomain.UpdateInput{ID: child.ID, Town: &town}); err != nil {
		t.Fatalf("update on tablet: %v", err)
	}
	syncNow(t, tablet, false)
	syncNow(t, phone, false)

	onPhone, err := phone.Members.Get(ctx, child.ID)
	if err != nil {
		t.Fatalf("get on phone: %v", err)
	}
	if onPhone.Town != town || onPhone.SyncStatus != memberdomain.StatusSynced {
		t.Fatalf("expected phone to receive the edit, got town=%q status=%s", onPhone.Town, onPhone.SyncStatus)
	}

	if err := phone.Members.Delete(ctx, parent.ID); err != nil {
		t.Fatalf("delete parent: %v", err)
	}
	syncNow(t, phone, false)
	syncNow(t, tablet, false)

	if _, err := tablet.Members.Get(ctx, parent.ID); err == nil {
		t.Fatalf("expected parent to be deleted on tablet")
	}
	orphan, err := tablet.Members.Get(ctx, child.ID)
	if err != nil {
		t.Fatalf("child missing after parent delete: %v", err)
	}
	if orphan.ParentID != nil {
		t.Fatalf("expected parent link to be cleared, got %v", *orphan.ParentID)
	}
}

func TestCreatorMatchesRemoteAfterSync(t *testing.T) {
	documents := documentdomain.NewService(inmemory.NewInMemoryDocumentRepository())
	phone, endpoint := newTestDevice(t, documents, "owner-1")
	ctx := context.Background()

	created, err := phone.Members.Create(ctx, memberdomain.CreateInput{FirstName: "Anna", LastName: "Lind"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	syncNow(t, phone, false)
	syncNow(t, phone, false)

	local, err := phone.Members.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	doc, err := endpoint.Get(ctx, created.ID)
	if err != nil || doc == nil {
		t.Fatalf("remote get: %v (%v)", doc, err)
	}
	if local.CreatedBy != "owner-1" || doc.Fields.CreatedBy != local.CreatedBy {
		t.Fatalf("expected creator owner-1 on both sides, local=%q remote=%q", local.CreatedBy, doc.Fields.CreatedBy)
	}
	if local.SyncStatus != memberdomain.StatusSynced {
		t.Fatalf("expected SYNCED, got %s", local.SyncStatus)
	}
}

func TestDevicesOfDifferentOwnersStayApart(t *testing.T) {
	documents := documentdomain.NewService(inmemory.NewInMemoryDocumentRepository())
	alice, _ := newTestDevice(t, documents, "alice")
	bob, _ := newTestDevice(t, documents, "bob")
	ctx := context.Background()

	if _, err := alice.Members.Create(ctx, memberdomain.CreateInput{FirstName: "Anna"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	syncNow(t, alice, false)
	syncNow(t, bob, true)

	records, err := bob.Members.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected bob to see no records, got %d", len(records))
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []scheduler.Event
}

func (l *eventLog) Notify(event scheduler.Event) {
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
}

func (l *eventLog) succeeded(kind scheduler.Kind) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, event := range l.events {
		if event.Kind == kind && !event.Deferred && event.Result == scheduler.ResultSuccess {
			return true
		}
	}
	return false
}

func (l *eventLog) deferred() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, event := range l.events {
		if event.Deferred {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRunSyncWaitsForNetworkThenSyncs(t *testing.T) {
	documents := documentdomain.NewService(inmemory.NewInMemoryDocumentRepository())
	device, endpoint := newTestDevice(t, documents, "owner-1")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	record, err := device.Members.Create(ctx, memberdomain.CreateInput{FirstName: "Anna", LastName: "Lind"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	endpoint.SetOffline(true)
	events := &eventLog{}
	sched := device.NewScheduler(events)

	done := make(chan error, 1)
	go func() {
		done <- device.RunSync(ctx, sched, true)
	}()

	waitFor(t, "deferral while offline", events.deferred)
	endpoint.SetOffline(false)
	waitFor(t, "push success", func() bool { return events.succeeded(scheduler.KindPush) })
	waitFor(t, "pull success", func() bool { return events.succeeded(scheduler.KindPull) })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run sync: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("scheduler did not stop")
	}

	stored, err := device.Members.Get(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.SyncStatus != memberdomain.StatusSynced {
		t.Fatalf("expected record to be SYNCED after scheduled push, got %s", stored.SyncStatus)
	}
}
