package sqlite

import (
	"context"
	"testing"

	"github.com/sakif/linkvault/internal/model"
)

// newTestDB opens an in-memory database with the full schema applied.
// Each test gets its own isolated database; Close tears it down.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("creating in-memory DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser inserts a password user and fails the test on error.
func createTestUser(t *testing.T, users *UserStore, email string) *model.User {
	t.Helper()
	hash := "$2a$04$fakehashfortestingonly"
	user := &model.User{
		Email:        email,
		PasswordHash: &hash,
		FirstName:    "Test",
		LastName:     "User",
	}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("creating test user %s: %v", email, err)
	}
	return user
}

// createTestConnection inserts a connection and fails the test on error.
func createTestConnection(t *testing.T, conns *ConnectionStore, userID string, platform model.Platform) *model.Connection {
	t.Helper()
	conn := &model.Connection{
		UserID:   userID,
		Platform: platform,
		Username: "testuser",
		URL:      "https://example.com/testuser",
		IsActive: true,
	}
	if err := conns.Create(context.Background(), conn); err != nil {
		t.Fatalf("creating test connection (%s): %v", platform, err)
	}
	return conn
}
