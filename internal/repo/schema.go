package repo

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// baseSchemaSQL is the original on-disk shape. Columns added in later
// releases arrive through noteColumnMigrations so that old store files
// upgrade in place.
const baseSchemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT NOT NULL DEFAULT '',
	content     TEXT NOT NULL DEFAULT '',
	tags        TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL DEFAULT 0,
	updated_at  INTEGER NOT NULL DEFAULT 0,
	is_pinned   INTEGER NOT NULL DEFAULT 0,
	is_locked   INTEGER NOT NULL DEFAULT 0,
	is_favorite INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS categories (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL,
	parent_id     INTEGER,
	color         TEXT NOT NULL DEFAULT '',
	sort_order    INTEGER NOT NULL DEFAULT 0,
	preset_tags   TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT '',
	password_hint TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_notes_updated ON notes(updated_at);
`

// Additive migrations for stores created before these columns existed.
// "duplicate column name" is expected on every store that already has them.
var noteColumnMigrations = []string{
	`ALTER TABLE notes ADD COLUMN color TEXT NOT NULL DEFAULT '` + DefaultColor + `'`,
	`ALTER TABLE notes ADD COLUMN category_id INTEGER`,
	`ALTER TABLE notes ADD COLUMN item_type TEXT NOT NULL DEFAULT 'text'`,
	`ALTER TABLE notes ADD COLUMN data_blob BLOB`,
	`ALTER TABLE notes ADD COLUMN content_hash TEXT NOT NULL DEFAULT ''`,
	`ALTER TABLE notes ADD COLUMN rating INTEGER NOT NULL DEFAULT 0`,
	`ALTER TABLE notes ADD COLUMN is_deleted INTEGER NOT NULL DEFAULT 0`,
}

func createSchema(conn *sql.DB) error {
	if _, err := conn.Exec(baseSchemaSQL); err != nil {
		return fmt.Errorf("apply base schema: %w", err)
	}
	return nil
}

func applyColumnMigrations(conn *sql.DB, logger *slog.Logger) {
	for _, stmt := range noteColumnMigrations {
		if _, err := conn.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			// Best-effort: a failed additive migration degrades later
			// queries but must not block opening.
			logger.Warn("column migration failed",
				slog.String("stmt", stmt),
				slog.String("error", err.Error()))
		}
	}
	if _, err := conn.Exec(`CREATE INDEX IF NOT EXISTS idx_notes_category ON notes(category_id)`); err != nil {
		logger.Warn("category index failed", slog.String("error", err.Error()))
	}
}

// backupExisting copies an existing store file to a timestamped sibling so a
// failed migration can be recovered from. A missing file is not an error,
// and a failed copy only logs.
func backupExisting(path string, now time.Time, logger *slog.Logger) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	backupPath := fmt.Sprintf("%s.%s.bak", path, now.Format("20060102-150405"))
	if err := copyFile(path, backupPath); err != nil {
		logger.Warn("store backup failed",
			slog.String("path", path),
			slog.String("backup", backupPath),
			slog.String("error", err.Error()))
		return
	}
	logger.Info("store backed up", slog.String("backup", backupPath))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
