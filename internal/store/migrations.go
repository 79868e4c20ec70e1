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

CREATE TABLE IF NOT EXISTS contacts (
	id          TEXT PRIMARY KEY,
	attributes  TEXT NOT NULL DEFAULT '{}',
	sort_name   TEXT NOT NULL DEFAULT '',
	search_text TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_contacts_sort_name ON contacts(sort_name);

CREATE TABLE IF NOT EXISTS blobs (
	id         TEXT PRIMARY KEY,
	mime_type  TEXT NOT NULL DEFAULT 'application/octet-stream',
	data       BLOB NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS correspondents (
	address    TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	seen_count INTEGER NOT NULL DEFAULT 0,
	last_seen  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_correspondents_seen ON correspondents(seen_count);

CREATE TABLE IF NOT EXISTS harvest_cursors (
	mailbox      TEXT PRIMARY KEY,
	uid_validity INTEGER NOT NULL DEFAULT 0,
	last_uid     INTEGER NOT NULL DEFAULT 0
);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
