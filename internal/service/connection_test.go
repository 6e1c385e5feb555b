package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/linkvault/internal/apperror"
	"github.com/sakif/linkvault/internal/model"
	"github.com/sakif/linkvault/internal/repository"
)

func newTestConnectionService(t *testing.T) (*ConnectionService, *fakeConnections, *fakeAnalytics) {
	t.Helper()
	conns := newFakeConnections()
	analytics := newFakeAnalytics()
	return NewConnectionService(conns, analytics, discardLogger()), conns, analytics
}

func validCreateInput() CreateInput {
	return CreateInput{
		Platform: model.PlatformLinkedIn,
		Username: "grace-hopper",
		URL:      "https://linkedin.com/in/grace-hopper",
	}
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestConnectionCreate_Valid(t *testing.T) {
	svc, _, _ := newTestConnectionService(t)

	conn, err := svc.Create(context.Background(), "user-1", validCreateInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if conn.ID == "" {
		t.Error("Create() returned no ID")
	}
	if !conn.IsActive {
		t.Error("manual connections should start active")
	}
}

func TestConnectionCreate_UnknownPlatform(t *testing.T) {
	svc, _, _ := newTestConnectionService(t)

	in := validCreateInput()
	in.Platform = "myspace"
	_, err := svc.Create(context.Background(), "user-1", in)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Create() error = %v, want ErrValidation for unknown platform", err)
	}
}

func TestConnectionCreate_BadURL(t *testing.T) {
	svc, _, _ := newTestConnectionService(t)

	in := validCreateInput()
	in.URL = "not a url"
	_, err := svc.Create(context.Background(), "user-1", in)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Create() error = %v, want ErrValidation for bad URL", err)
	}
}

func TestConnectionCreate_DuplicatePlatform(t *testing.T) {
	svc, _, _ := newTestConnectionService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "user-1", validCreateInput()); err != nil {
		t.Fatalf("first Create(): %v", err)
	}

	_, err := svc.Create(ctx, "user-1", validCreateInput())
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("second Create() error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// OWNERSHIP TESTS
// =========================================================================

func TestConnectionUpdate_NotOwner(t *testing.T) {
	svc, _, _ := newTestConnectionService(t)
	ctx := context.Background()

	conn, err := svc.Create(ctx, "user-1", validCreateInput())
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}

	// Another user's connection reads as not-found, never forbidden —
	// a 403 would confirm the ID exists.
	_, err = svc.Update(ctx, "user-2", conn.ID, repository.ConnectionPatch{
		Username: strPtr("hijacked"),
	})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Update() as non-owner error = %v, want ErrNotFound", err)
	}
}

func TestConnectionDelete_NotOwner(t *testing.T) {
	svc, conns, _ := newTestConnectionService(t)
	ctx := context.Background()

	conn, err := svc.Create(ctx, "user-1", validCreateInput())
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}

	if err := svc.Delete(ctx, "user-2", conn.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Delete() as non-owner error = %v, want ErrNotFound", err)
	}
	// Still there
	if _, err := conns.GetByID(ctx, conn.ID); err != nil {
		t.Error("connection was deleted by a non-owner")
	}
}

func TestConnectionDelete_Owner(t *testing.T) {
	svc, conns, _ := newTestConnectionService(t)
	ctx := context.Background()

	conn, err := svc.Create(ctx, "user-1", validCreateInput())
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}

	if err := svc.Delete(ctx, "user-1", conn.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := conns.GetByID(ctx, conn.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("connection still present after owner delete")
	}
}

// =========================================================================
// CLICK TRACKING TESTS
// =========================================================================

func TestTrackClick_ReturnsURLAndRecordsEvent(t *testing.T) {
	svc, _, analytics := newTestConnectionService(t)
	ctx := context.Background()

	conn, err := svc.Create(ctx, "user-1", validCreateInput())
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}

	url, err := svc.TrackClick(ctx, conn.ID, VisitorInfo{IP: "8.8.8.8", Referrer: "https://search.example.com"})
	if err != nil {
		t.Fatalf("TrackClick() error = %v", err)
	}
	if url != "https://linkedin.com/in/grace-hopper" {
		t.Errorf("url = %q, want the connection URL", url)
	}

	waitForInsert(t, analytics)
	events := analytics.all()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	e := events[0]
	if e.Type != model.EventPlatformClick {
		t.Errorf("event type = %q, want platform_click", e.Type)
	}
	if e.UserID != "user-1" {
		t.Errorf("event charged to %q, want the connection owner user-1", e.UserID)
	}
	if e.Platform == nil || *e.Platform != model.PlatformLinkedIn {
		t.Errorf("event platform = %v, want linkedin", e.Platform)
	}
}

func TestTrackClick_InactiveConnection(t *testing.T) {
	svc, _, analytics := newTestConnectionService(t)
	ctx := context.Background()

	conn, err := svc.Create(ctx, "user-1", validCreateInput())
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	if _, err := svc.Update(ctx, "user-1", conn.ID, repository.ConnectionPatch{
		IsActive: boolPtr(false),
	}); err != nil {
		t.Fatalf("deactivating: %v", err)
	}

	_, err = svc.TrackClick(ctx, conn.ID, VisitorInfo{})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("TrackClick() on inactive connection error = %v, want ErrNotFound", err)
	}

	// No event for a refused click
	time.Sleep(50 * time.Millisecond)
	if events := analytics.all(); len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestTrackClick_UnknownConnection(t *testing.T) {
	svc, _, _ := newTestConnectionService(t)

	_, err := svc.TrackClick(context.Background(), "no-such-id", VisitorInfo{})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("TrackClick() error = %v, want ErrNotFound", err)
	}
}
