package repo

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/halvard/munin/internal/apperr"
)

// Category groups notes into a tree. ParentID 0 means a root category. The
// password credential is stored as a bcrypt hash only; visibility gating on
// top of VerifyCategoryPassword is the UI's contract.
type Category struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ParentID     int64  `json:"parent_id"` // 0 means root
	Color        string `json:"color"`
	SortOrder    int    `json:"sort_order"`
	PresetTags   string `json:"preset_tags"`
	PasswordHint string `json:"password_hint,omitempty"`
	Locked       bool   `json:"locked"`
}

// AddCategory creates a category. parentID <= 0 creates a root category;
// otherwise the parent must exist.
func (r *Repository) AddCategory(name string, parentID int64, color string) (int64, error) {
	r.mu.Lock()
	id, err := func() (int64, error) {
		if r.closed {
			return 0, apperr.ErrQueryFailed
		}
		if name == "" {
			return 0, fmt.Errorf("%w: category name is required", apperr.ErrRejected)
		}
		var parent any
		if parentID > 0 {
			var n int
			if err := r.conn.QueryRow(`SELECT count(*) FROM categories WHERE id = ?`, parentID).Scan(&n); err != nil || n == 0 {
				return 0, fmt.Errorf("%w: parent category %d", apperr.ErrNotFound, parentID)
			}
			parent = parentID
		}
		res, err := r.conn.Exec(`
			INSERT INTO categories (name, parent_id, color, sort_order)
			VALUES (?, ?, ?, (SELECT COALESCE(MAX(sort_order), 0) + 1 FROM categories))
		`, name, parent, color)
		if err != nil {
			r.logger.Error("insert category failed", slog.String("name", name), slog.String("error", err.Error()))
			return 0, fmt.Errorf("%w: insert category: %v", apperr.ErrQueryFailed, err)
		}
		return res.LastInsertId()
	}()
	r.mu.Unlock()
	if err == nil {
		r.notifyCategoriesChanged()
	}
	return id, err
}

// RenameCategory changes a category's display name.
func (r *Repository) RenameCategory(id int64, name string) bool {
	if name == "" {
		return false
	}
	return r.updateCategoryColumn(id, "name", name)
}

// SetCategoryColor changes a category's color.
func (r *Repository) SetCategoryColor(id int64, color string) bool {
	return r.updateCategoryColumn(id, "color", color)
}

// SetCategorySortOrder changes a category's position among its siblings.
func (r *Repository) SetCategorySortOrder(id int64, order int) bool {
	return r.updateCategoryColumn(id, "sort_order", order)
}

// SetCategoryPresetTags stores the suggested tag set for notes filed here.
// The repository only stores and returns the string; it never applies it.
func (r *Repository) SetCategoryPresetTags(id int64, tags string) bool {
	return r.updateCategoryColumn(id, "preset_tags", tags)
}

// GetCategoryPresetTags returns the stored preset tag string.
func (r *Repository) GetCategoryPresetTags(id int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tags string
	if err := r.conn.QueryRow(`SELECT preset_tags FROM categories WHERE id = ?`, id).Scan(&tags); err != nil {
		return ""
	}
	return tags
}

func (r *Repository) updateCategoryColumn(id int64, column string, value any) bool {
	r.mu.Lock()
	ok := func() bool {
		if r.closed {
			return false
		}
		res, err := r.conn.Exec(`UPDATE categories SET `+column+` = ? WHERE id = ?`, value, id)
		if err != nil {
			r.logger.Error("update category failed",
				slog.Int64("id", id), slog.String("column", column), slog.String("error", err.Error()))
			return false
		}
		affected, _ := res.RowsAffected()
		return affected > 0
	}()
	r.mu.Unlock()
	if ok {
		r.notifyCategoriesChanged()
	}
	return ok
}

// DeleteCategory removes a category. Its notes are re-parented to
// uncategorized and its child categories become roots; nothing is deleted
// besides the category row itself.
func (r *Repository) DeleteCategory(id int64) bool {
	r.mu.Lock()
	ok := func() bool {
		if r.closed {
			return false
		}
		if _, err := r.conn.Exec(`UPDATE notes SET category_id = NULL, updated_at = ? WHERE category_id = ?`, r.clock().Unix(), id); err != nil {
			r.logger.Error("reassign notes failed", slog.Int64("category", id), slog.String("error", err.Error()))
			return false
		}
		if _, err := r.conn.Exec(`UPDATE categories SET parent_id = NULL WHERE parent_id = ?`, id); err != nil {
			r.logger.Error("reparent children failed", slog.Int64("category", id), slog.String("error", err.Error()))
			return false
		}
		res, err := r.conn.Exec(`DELETE FROM categories WHERE id = ?`, id)
		if err != nil {
			r.logger.Error("delete category failed", slog.Int64("category", id), slog.String("error", err.Error()))
			return false
		}
		affected, _ := res.RowsAffected()
		return affected > 0
	}()
	r.mu.Unlock()
	if ok {
		r.notifyCategoriesChanged()
		r.notifyNotesChanged()
	}
	return ok
}

// GetAllCategories returns every category ordered by sort order, then name.
func (r *Repository) GetAllCategories() []Category {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.conn.Query(`
		SELECT id, name, COALESCE(parent_id, 0), color, sort_order, preset_tags, password_hash, password_hint
		FROM categories
		ORDER BY sort_order, name
	`)
	if err != nil {
		r.logger.Error("list categories failed", slog.String("error", err.Error()))
		return nil
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		var hash string
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID, &c.Color, &c.SortOrder, &c.PresetTags, &hash, &c.PasswordHint); err != nil {
			r.logger.Error("scan category failed", slog.String("error", err.Error()))
			return out
		}
		c.Locked = hash != ""
		out = append(out, c)
	}
	return out
}

// SetCategoryPassword associates a password with a category. Only a bcrypt
// hash is stored. An empty password clears the lock and its hint.
func (r *Repository) SetCategoryPassword(id int64, password, hint string) bool {
	var hash string
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			r.logger.Error("hash password failed", slog.String("error", err.Error()))
			return false
		}
		hash = string(h)
	} else {
		hint = ""
	}

	r.mu.Lock()
	ok := func() bool {
		if r.closed {
			return false
		}
		res, err := r.conn.Exec(`UPDATE categories SET password_hash = ?, password_hint = ? WHERE id = ?`, hash, hint, id)
		if err != nil {
			r.logger.Error("set category password failed", slog.Int64("id", id), slog.String("error", err.Error()))
			return false
		}
		affected, _ := res.RowsAffected()
		return affected > 0
	}()
	r.mu.Unlock()
	if ok {
		r.notifyCategoriesChanged()
	}
	return ok
}

// IsCategoryLocked reports whether the category carries a password.
func (r *Repository) IsCategoryLocked(id int64) bool {
	hash, err := r.categoryPasswordHash(id)
	return err == nil && hash != ""
}

// VerifyCategoryPassword checks a candidate password against the stored
// credential. An unlocked category verifies against anything.
func (r *Repository) VerifyCategoryPassword(id int64, candidate string) bool {
	hash, err := r.categoryPasswordHash(id)
	if err != nil {
		return false
	}
	if hash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}

// CategoryPasswordHint returns the stored hint. Readable without
// verification: the hint exists to help the user remember.
func (r *Repository) CategoryPasswordHint(id int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var hint string
	if err := r.conn.QueryRow(`SELECT password_hint FROM categories WHERE id = ?`, id).Scan(&hint); err != nil {
		return ""
	}
	return hint
}

func (r *Repository) categoryPasswordHash(id int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var hash string
	err := r.conn.QueryRow(`SELECT password_hash FROM categories WHERE id = ?`, id).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	return hash, err
}
