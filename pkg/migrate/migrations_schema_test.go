package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blogwatch/backend/pkg/migrate"
)

func TestMigrationsValidate(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestNotificationsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_notifications.sql")

	checks := []string{
		"CREATE TABLE notifications",
		"CREATE TABLE user_notifications",
		"REFERENCES notifications (id) ON DELETE CASCADE",
		"CONSTRAINT ux_user_notifications_user_notification UNIQUE (user_key, notification_id)",
		"DROP TABLE user_notifications",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestPushSubscriptionsMigrationEnforcesUniqueEndpoint(t *testing.T) {
	content := readMigration(t, "*_create_push_subscriptions.sql")

	checks := []string{
		"CREATE TABLE push_subscriptions",
		"CONSTRAINT ux_push_subscriptions_endpoint UNIQUE (endpoint)",
		"is_active  BOOLEAN NOT NULL DEFAULT TRUE",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
