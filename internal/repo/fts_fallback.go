//go:build !sqlite_fts5

package repo

import "database/sql"

// Without FTS5 the shadow index is a plain table mirroring (title, content)
// per non-deleted note, matched with LIKE. It is maintained by the same
// explicit calls as the FTS5 build, so the sync invariant holds either way.

func initSearchIndex(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS notes_search (
			note_id INTEGER PRIMARY KEY,
			title   TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT ''
		);
	`)
	return err
}

func searchIndexUpsert(conn *sql.DB, id int64, title, content string) error {
	_, err := conn.Exec(`
		INSERT INTO notes_search (note_id, title, content) VALUES (?, ?, ?)
		ON CONFLICT(note_id) DO UPDATE SET
			title   = excluded.title,
			content = excluded.content
	`, id, title, content)
	return err
}

func searchIndexDelete(conn *sql.DB, id int64) error {
	_, err := conn.Exec(`DELETE FROM notes_search WHERE note_id = ?`, id)
	return err
}

func searchIndexClear(conn *sql.DB) error {
	_, err := conn.Exec(`DELETE FROM notes_search`)
	return err
}

func searchIndexCount(conn *sql.DB) (int, error) {
	var n int
	err := conn.QueryRow(`SELECT count(*) FROM notes_search`).Scan(&n)
	return n, err
}

// searchMatchClause restricts candidate note ids to shadow-index matches.
func searchMatchClause(keyword string) (string, []any) {
	like := "%" + keyword + "%"
	return `id IN (SELECT note_id FROM notes_search WHERE title LIKE ? OR content LIKE ?)`,
		[]any{like, like}
}
