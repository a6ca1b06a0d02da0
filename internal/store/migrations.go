package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create transform stats",
		SQL: `
			CREATE TABLE transform_stats (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				operation     TEXT NOT NULL,
				provider      TEXT NOT NULL,
				model         TEXT NOT NULL DEFAULT '',
				input_chars   INTEGER NOT NULL DEFAULT 0,
				output_chars  INTEGER NOT NULL DEFAULT 0,
				duration_ms   INTEGER NOT NULL DEFAULT 0,
				error_kind    TEXT NOT NULL DEFAULT '',
				created_at    TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_transform_stats_created ON transform_stats (created_at);
			CREATE INDEX idx_transform_stats_operation ON transform_stats (operation);
		`,
	},
	{
		Version: 2,
		Name:    "create plan stats",
		SQL: `
			CREATE TABLE plan_stats (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				action      TEXT NOT NULL,
				status      TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`,
	},
}
