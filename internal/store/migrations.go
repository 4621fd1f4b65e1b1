package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id           TEXT PRIMARY KEY,
	account_id   TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	message      TEXT NOT NULL DEFAULT '',
	type         TEXT NOT NULL DEFAULT '',
	type_text    TEXT NOT NULL DEFAULT '',
	is_read      INTEGER NOT NULL DEFAULT 0,
	created_date DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_account ON notifications(account_id, is_read);
CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(account_id, created_date DESC);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS robot_catalogs (
	model_id   TEXT NOT NULL,
	kind       TEXT NOT NULL,
	entries    TEXT NOT NULL DEFAULT '[]',
	fetched_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (model_id, kind)
);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
