//go:build sqlite_fts5

package repo

import "database/sql"

func initSearchIndex(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS notes_search USING fts5(
			note_id UNINDEXED,
			title,
			content,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func searchIndexUpsert(conn *sql.DB, id int64, title, content string) error {
	_, _ = conn.Exec(`DELETE FROM notes_search WHERE note_id = ?`, id)
	_, err := conn.Exec(`INSERT INTO notes_search (note_id, title, content) VALUES (?, ?, ?)`,
		id, title, content)
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

// searchMatchClause restricts candidate note ids to FTS5 matches.
func searchMatchClause(keyword string) (string, []any) {
	return `id IN (SELECT note_id FROM notes_search WHERE notes_search MATCH ?)`,
		[]any{keyword}
}
