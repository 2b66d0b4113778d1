package repo

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/halvard/munin/internal/apperr"
	"github.com/halvard/munin/internal/checksum"
)

// Item types stored in the item_type column.
const (
	ItemTypeText   = "text"
	ItemTypeImage  = "image"
	ItemTypeFile   = "file"
	ItemTypeFolder = "folder"
)

// DefaultColor is applied when a note is inserted without an explicit color.
const DefaultColor = "#2c2c2c"

// Note is the primary stored entity.
type Note struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Tags        []string  `json:"tags"`
	Color       string    `json:"color"`
	CategoryID  int64     `json:"category_id"` // 0 means uncategorized
	ItemType    string    `json:"item_type"`
	Blob        []byte    `json:"data_blob,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"`
	Rating      int       `json:"rating"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Pinned      bool      `json:"is_pinned"`
	Locked      bool      `json:"is_locked"`
	Favorite    bool      `json:"is_favorite"`
	Deleted     bool      `json:"is_deleted"`
}

// NoteInput carries the caller-supplied fields for an insert.
type NoteInput struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
	Color      string   `json:"color"`
	CategoryID int64    `json:"category_id"` // <= 0 means uncategorized
	ItemType   string   `json:"item_type"`
	Blob       []byte   `json:"data_blob"`
	Source     string   `json:"source"` // producer label, logged only
}

// Field identifies a mutable note column. The set is closed: any value
// outside it is rejected before touching storage.
type Field string

const (
	FieldTitle    Field = "title"
	FieldContent  Field = "content"
	FieldTags     Field = "tags"
	FieldColor    Field = "color"
	FieldCategory Field = "category_id"
	FieldRating   Field = "rating"
	FieldPinned   Field = "is_pinned"
	FieldLocked   Field = "is_locked"
	FieldFavorite Field = "is_favorite"
	FieldDeleted  Field = "is_deleted"
)

var mutableFields = map[Field]bool{
	FieldTitle:    true,
	FieldContent:  true,
	FieldTags:     true,
	FieldColor:    true,
	FieldCategory: true,
	FieldRating:   true,
	FieldPinned:   true,
	FieldLocked:   true,
	FieldFavorite: true,
	FieldDeleted:  true,
}

// Valid reports whether f is part of the mutable field set.
func (f Field) Valid() bool { return mutableFields[f] }

// IsFlag reports whether f is one of the boolean status columns.
func (f Field) IsFlag() bool {
	switch f {
	case FieldPinned, FieldLocked, FieldFavorite, FieldDeleted:
		return true
	}
	return false
}

const noteColumns = `id, title, content, tags, color, COALESCE(category_id, 0),
	item_type, data_blob, content_hash, rating, created_at, updated_at,
	is_pinned, is_locked, is_favorite, is_deleted`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*Note, error) {
	var n Note
	var tags string
	var createdAt, updatedAt int64
	err := row.Scan(&n.ID, &n.Title, &n.Content, &tags, &n.Color, &n.CategoryID,
		&n.ItemType, &n.Blob, &n.ContentHash, &n.Rating, &createdAt, &updatedAt,
		&n.Pinned, &n.Locked, &n.Favorite, &n.Deleted)
	if err != nil {
		return nil, err
	}
	n.Tags = splitTags(tags)
	n.CreatedAt = time.Unix(createdAt, 0)
	n.UpdatedAt = time.Unix(updatedAt, 0)
	return &n, nil
}

// AddNote inserts a new note, keeps the shadow search index in step, and
// emits a note-added notification carrying the stored row.
func (r *Repository) AddNote(in NoteInput) (*Note, error) {
	r.mu.Lock()
	note, err := r.addNoteLocked(in)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	r.notifyNoteAdded(*note)
	return note, nil
}

// AddNoteAsync hands the insert to the repository's write queue so the
// calling producer never blocks on storage I/O. Returns false when the
// repository is shutting down.
func (r *Repository) AddNoteAsync(in NoteInput) bool {
	if r.queue == nil {
		return false
	}
	return r.queue.enqueue(in)
}

func (r *Repository) addNoteLocked(in NoteInput) (*Note, error) {
	if r.closed {
		return nil, apperr.ErrQueryFailed
	}
	color := in.Color
	if color == "" {
		color = DefaultColor
	}
	itemType := in.ItemType
	if itemType == "" {
		itemType = ItemTypeText
	}
	hash := checksum.Sum(append([]byte(in.Content), in.Blob...))
	now := r.clock().Unix()

	var categoryID any
	if in.CategoryID > 0 {
		categoryID = in.CategoryID
	}

	res, err := r.conn.Exec(`
		INSERT INTO notes (title, content, tags, color, category_id, item_type,
			data_blob, content_hash, rating, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, in.Title, in.Content, joinTags(in.Tags), color, categoryID, itemType,
		in.Blob, hash, now, now)
	if err != nil {
		r.logger.Error("insert note failed",
			slog.String("source", in.Source),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: insert note: %v", apperr.ErrQueryFailed, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: last insert id: %v", apperr.ErrQueryFailed, err)
	}

	if err := searchIndexUpsert(r.conn, id, in.Title, in.Content); err != nil {
		r.logger.Error("search index insert failed",
			slog.Int64("id", id), slog.String("error", err.Error()))
	}

	return r.getNoteByIDLocked(id)
}

// GetNoteByID returns the note with the given id, deleted or not.
func (r *Repository) GetNoteByID(id int64) (*Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getNoteByIDLocked(id)
}

func (r *Repository) getNoteByIDLocked(id int64) (*Note, error) {
	row := r.conn.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get note %d: %v", apperr.ErrQueryFailed, id, err)
	}
	return n, nil
}

// GetAllNotes returns every non-deleted note, pinned first, then most
// recently updated.
func (r *Repository) GetAllNotes() []Note {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.conn.Query(`
		SELECT ` + noteColumns + `
		FROM notes
		WHERE is_deleted = 0
		ORDER BY is_pinned DESC, updated_at DESC, id DESC
	`)
	if err != nil {
		r.logger.Error("list notes failed", slog.String("error", err.Error()))
		return nil
	}
	defer rows.Close()
	return collectNotes(rows, r.logger)
}

func collectNotes(rows *sql.Rows, logger *slog.Logger) []Note {
	var out []Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			logger.Error("scan note failed", slog.String("error", err.Error()))
			return out
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		logger.Error("iterate notes failed", slog.String("error", err.Error()))
	}
	return out
}

// GetAllTags returns the sorted unique tag set across non-deleted notes.
func (r *Repository) GetAllTags() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.conn.Query(`SELECT tags FROM notes WHERE is_deleted = 0 AND tags <> ''`)
	if err != nil {
		r.logger.Error("list tags failed", slog.String("error", err.Error()))
		return nil
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var out []string
	for rows.Next() {
		var tags string
		if err := rows.Scan(&tags); err != nil {
			return out
		}
		for _, t := range splitTags(tags) {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out
}

// HasContentHash reports whether any non-deleted note carries the given
// content hash. Producers use it to skip duplicate captures.
func (r *Repository) HasContentHash(hash string) bool {
	if hash == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	err := r.conn.QueryRow(`SELECT count(*) FROM notes WHERE is_deleted = 0 AND content_hash = ?`, hash).Scan(&n)
	return err == nil && n > 0
}

// UpdateNote rewrites title, content and tags of a note. Color and category
// are sentineled: an empty color leaves the color unchanged, a categoryID of
// -1 leaves the category unchanged and 0 clears it.
func (r *Repository) UpdateNote(id int64, title, content string, tags []string, color string, categoryID int64) bool {
	r.mu.Lock()
	ok := r.updateNoteLocked(id, title, content, tags, color, categoryID)
	r.mu.Unlock()
	if ok {
		r.notifyNotesChanged()
	}
	return ok
}

func (r *Repository) updateNoteLocked(id int64, title, content string, tags []string, color string, categoryID int64) bool {
	if r.closed {
		return false
	}
	sets := []string{"title = ?", "content = ?", "tags = ?", "updated_at = ?"}
	args := []any{title, content, joinTags(tags), r.clock().Unix()}
	if color != "" {
		sets = append(sets, "color = ?")
		args = append(args, color)
	}
	if categoryID >= 0 {
		if categoryID == 0 {
			sets = append(sets, "category_id = NULL")
		} else {
			sets = append(sets, "category_id = ?")
			args = append(args, categoryID)
		}
	}
	args = append(args, id)

	res, err := r.conn.Exec(`UPDATE notes SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		r.logger.Error("update note failed", slog.Int64("id", id), slog.String("error", err.Error()))
		return false
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return false
	}
	if err := searchIndexUpsert(r.conn, id, title, content); err != nil {
		r.logger.Error("search index update failed", slog.Int64("id", id), slog.String("error", err.Error()))
	}
	return true
}

// UpdateNoteField mutates a single column from the closed mutable set and
// refreshes updated_at. Fields outside the set are rejected without a write.
func (r *Repository) UpdateNoteField(id int64, f Field, value any) bool {
	r.mu.Lock()
	ok := r.setFieldLocked(id, f, value)
	r.mu.Unlock()
	if ok {
		r.notifyNotesChanged()
	}
	return ok
}

// UpdateNoteFieldBatch applies the same field mutation to every id. The
// batch is one critical section but not one transaction; it reports true
// only when every row was updated.
func (r *Repository) UpdateNoteFieldBatch(ids []int64, f Field, value any) bool {
	if len(ids) == 0 {
		return false
	}
	r.mu.Lock()
	ok := true
	for _, id := range ids {
		if !r.setFieldLocked(id, f, value) {
			ok = false
		}
	}
	r.mu.Unlock()
	r.notifyNotesChanged()
	return ok
}

// ToggleNoteFlag flips one of the boolean status columns.
func (r *Repository) ToggleNoteFlag(id int64, f Field) bool {
	if !f.IsFlag() {
		r.logger.Warn("toggle rejected", slog.String("field", string(f)))
		return false
	}
	r.mu.Lock()
	ok := false
	if n, err := r.getNoteByIDLocked(id); err == nil {
		var current bool
		switch f {
		case FieldPinned:
			current = n.Pinned
		case FieldLocked:
			current = n.Locked
		case FieldFavorite:
			current = n.Favorite
		case FieldDeleted:
			current = n.Deleted
		}
		ok = r.setFieldLocked(id, f, !current)
	}
	r.mu.Unlock()
	if ok {
		r.notifyNotesChanged()
	}
	return ok
}

// setFieldLocked is the primitive beneath every single-field mutation. It
// validates the field against the closed set, normalizes the value, writes
// the row, and keeps the shadow search index in step.
func (r *Repository) setFieldLocked(id int64, f Field, value any) bool {
	if r.closed {
		return false
	}
	if !f.Valid() {
		r.logger.Warn("field mutation rejected", slog.String("field", string(f)))
		return false
	}
	v, err := normalizeFieldValue(f, value)
	if err != nil {
		r.logger.Warn("field value rejected",
			slog.String("field", string(f)), slog.String("error", err.Error()))
		return false
	}

	res, err := r.conn.Exec(
		`UPDATE notes SET `+string(f)+` = ?, updated_at = ? WHERE id = ?`,
		v, r.clock().Unix(), id)
	if err != nil {
		r.logger.Error("field update failed",
			slog.Int64("id", id), slog.String("field", string(f)), slog.String("error", err.Error()))
		return false
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return false
	}

	r.syncShadowAfterFieldLocked(id, f)
	return true
}

// syncShadowAfterFieldLocked repairs the shadow index entry after a field
// write: title/content edits replace the entry, soft deletion removes it,
// restoration re-creates it.
func (r *Repository) syncShadowAfterFieldLocked(id int64, f Field) {
	switch f {
	case FieldTitle, FieldContent:
		if n, err := r.getNoteByIDLocked(id); err == nil && !n.Deleted {
			if err := searchIndexUpsert(r.conn, id, n.Title, n.Content); err != nil {
				r.logger.Error("search index update failed", slog.Int64("id", id), slog.String("error", err.Error()))
			}
		}
	case FieldDeleted:
		n, err := r.getNoteByIDLocked(id)
		if err != nil {
			return
		}
		if n.Deleted {
			if err := searchIndexDelete(r.conn, id); err != nil {
				r.logger.Error("search index delete failed", slog.Int64("id", id), slog.String("error", err.Error()))
			}
		} else {
			if err := searchIndexUpsert(r.conn, id, n.Title, n.Content); err != nil {
				r.logger.Error("search index restore failed", slog.Int64("id", id), slog.String("error", err.Error()))
			}
		}
	}
}

func normalizeFieldValue(f Field, value any) (any, error) {
	if f.IsFlag() {
		switch v := value.(type) {
		case bool:
			return boolToInt(v), nil
		case int:
			return boolToInt(v != 0), nil
		case int64:
			return boolToInt(v != 0), nil
		case float64:
			return boolToInt(v != 0), nil
		}
		return nil, fmt.Errorf("flag %s wants a boolean, got %T", f, value)
	}
	switch f {
	case FieldRating:
		n, ok := toInt64(value)
		if !ok {
			return nil, fmt.Errorf("rating wants a number, got %T", value)
		}
		if n < 0 {
			n = 0
		}
		if n > 5 {
			n = 5
		}
		return n, nil
	case FieldCategory:
		n, ok := toInt64(value)
		if !ok {
			return nil, fmt.Errorf("category wants a number, got %T", value)
		}
		if n <= 0 {
			return nil, nil // stored as NULL: uncategorized
		}
		return n, nil
	case FieldTags:
		switch v := value.(type) {
		case []string:
			return joinTags(v), nil
		case string:
			return joinTags(splitTags(v)), nil
		}
		return nil, fmt.Errorf("tags want a string list, got %T", value)
	case FieldTitle, FieldContent, FieldColor:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%s wants a string, got %T", f, value)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported field %s", f)
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// DeleteNote soft-deletes a note. The row stays and can be restored from
// the trash.
func (r *Repository) DeleteNote(id int64) bool {
	return r.UpdateNoteField(id, FieldDeleted, true)
}

// DeleteNotesBatch soft-deletes several notes at once.
func (r *Repository) DeleteNotesBatch(ids []int64) bool {
	return r.UpdateNoteFieldBatch(ids, FieldDeleted, true)
}

// EmptyTrash permanently removes every soft-deleted note.
func (r *Repository) EmptyTrash() bool {
	r.mu.Lock()
	ok := func() bool {
		if r.closed {
			return false
		}
		rows, err := r.conn.Query(`SELECT id FROM notes WHERE is_deleted = 1`)
		if err != nil {
			r.logger.Error("empty trash query failed", slog.String("error", err.Error()))
			return false
		}
		var ids []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err == nil {
				ids = append(ids, id)
			}
		}
		rows.Close()

		for _, id := range ids {
			if err := searchIndexDelete(r.conn, id); err != nil {
				r.logger.Error("search index delete failed", slog.Int64("id", id), slog.String("error", err.Error()))
			}
		}
		if _, err := r.conn.Exec(`DELETE FROM notes WHERE is_deleted = 1`); err != nil {
			r.logger.Error("empty trash failed", slog.String("error", err.Error()))
			return false
		}
		return true
	}()
	r.mu.Unlock()
	if ok {
		r.notifyNotesChanged()
	}
	return ok
}

// RestoreAllFromTrash clears the deleted flag on every trashed note and
// re-creates their shadow index entries.
func (r *Repository) RestoreAllFromTrash() bool {
	r.mu.Lock()
	ok := func() bool {
		if r.closed {
			return false
		}
		if _, err := r.conn.Exec(`UPDATE notes SET is_deleted = 0, updated_at = ? WHERE is_deleted = 1`, r.clock().Unix()); err != nil {
			r.logger.Error("restore trash failed", slog.String("error", err.Error()))
			return false
		}
		rows, err := r.conn.Query(`SELECT id, title, content FROM notes WHERE is_deleted = 0`)
		if err != nil {
			return true
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			var title, content string
			if err := rows.Scan(&id, &title, &content); err != nil {
				continue
			}
			if err := searchIndexUpsert(r.conn, id, title, content); err != nil {
				r.logger.Error("search index restore failed", slog.Int64("id", id), slog.String("error", err.Error()))
			}
		}
		return true
	}()
	r.mu.Unlock()
	if ok {
		r.notifyNotesChanged()
	}
	return ok
}

// MoveNoteToCategory reassigns a note's category. A categoryID <= 0 clears it.
func (r *Repository) MoveNoteToCategory(id, categoryID int64) bool {
	return r.UpdateNoteField(id, FieldCategory, categoryID)
}

// MoveNotesToCategoryBatch reassigns several notes at once.
func (r *Repository) MoveNotesToCategoryBatch(ids []int64, categoryID int64) bool {
	return r.UpdateNoteFieldBatch(ids, FieldCategory, categoryID)
}
