// Package dbtest opens in-memory sqlite databases carrying the CRM schema for
// repository and service tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/dealercrm-backend/pkg/db"
)

// sqlite mirror of the goose migrations; enums become TEXT and JSONB becomes TEXT.
var schema = []string{
	`CREATE TABLE dealers (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		dealer_id TEXT,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		role TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		last_login_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE leads (
		id TEXT PRIMARY KEY,
		dealer_id TEXT NOT NULL,
		vehicle_id TEXT,
		assigned_to TEXT,
		name TEXT,
		phone TEXT,
		email TEXT,
		message TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		agent TEXT NOT NULL DEFAULT '',
		utm_source TEXT NOT NULL DEFAULT '',
		utm_medium TEXT NOT NULL DEFAULT '',
		utm_campaign TEXT NOT NULL DEFAULT '',
		gclid TEXT NOT NULL DEFAULT '',
		consent BOOLEAN NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'new',
		archived_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		status_updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE lead_status_history (
		id TEXT PRIMARY KEY,
		lead_id TEXT NOT NULL,
		from_status TEXT,
		to_status TEXT NOT NULL,
		changed_by TEXT,
		notes TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE lead_assignments (
		id TEXT PRIMARY KEY,
		lead_id TEXT NOT NULL,
		from_user_id TEXT,
		to_user_id TEXT NOT NULL,
		assigned_by TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE incomplete_lead_sessions (
		id TEXT PRIMARY KEY,
		dealer_id TEXT NOT NULL,
		session_key TEXT NOT NULL,
		name TEXT,
		phone TEXT,
		email TEXT,
		form_step TEXT NOT NULL DEFAULT 'started',
		fields_completed TEXT NOT NULL DEFAULT '[]',
		source TEXT NOT NULL DEFAULT '',
		last_activity DATETIME NOT NULL,
		converted_at DATETIME,
		lead_id TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (dealer_id, session_key)
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
}

// Open returns a fresh in-memory database with the CRM schema applied.
// Each call gets its own database so tests can run in parallel.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), db.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// one connection keeps the shared-cache database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// Client wraps Open in the transactional client services depend on.
func Client(t testing.TB) *db.Client {
	t.Helper()
	return db.Wrap(Open(t))
}
