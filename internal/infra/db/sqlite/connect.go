package sqlite

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite" // SQLite driver
)

// Connect opens the database and ensures the reports schema exists. The
// pure-Go driver keeps local/dev deployments and tests free of cgo.
func Connect(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc.org/sqlite serialises writes; one connection avoids
	// SQLITE_BUSY churn under concurrent handlers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := ensureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS reports (
    id                    TEXT PRIMARY KEY,
    user_id               TEXT NOT NULL,
    department            TEXT NOT NULL,
    responses             TEXT NOT NULL DEFAULT '{}',
    analysis              TEXT NOT NULL DEFAULT '',
    visit_id              TEXT NOT NULL DEFAULT '',
    doc_ids               TEXT NOT NULL DEFAULT '[]',
    is_visible_to_doctors INTEGER NOT NULL DEFAULT 1,
    is_urgent             INTEGER NOT NULL DEFAULT 0,
    is_bookmarked         INTEGER NOT NULL DEFAULT 0,
    created_at            TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_user ON reports(user_id, created_at);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}
