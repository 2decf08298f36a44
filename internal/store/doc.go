// Package store persists verification state in SQLite and exposes typed
// accessors for the four core tables: the scraped inventory, verification
// cases, learned company-to-platform routing, and escalation phone tasks.
//
// The Store owns the database connection, applies embedded migrations on
// open, and retries writes that hit SQLITE_BUSY. Callers never see raw SQL;
// each table has its own accessor file. Verification cases are the source of
// truth for workflow progress: every orchestrator step re-reads its case
// from here before acting, so a crash between steps costs nothing.
//
// Treat this package as the single place where lifecycle enums live; new
// statuses go into models.go together with a migration.
package store
