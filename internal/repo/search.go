package repo

import (
	"log/slog"
	"strings"
	"time"
)

// Filter types accepted by SearchNotes, NotesCount and FilterStats.
const (
	FilterAll      = "all"
	FilterCategory = "category"
	FilterToday    = "today"
	FilterBookmark = "bookmark"
	FilterTrash    = "trash"
	FilterUntagged = "untagged"
)

// Filter narrows search results and facet stats. Value is only consulted
// for the category filter, where -1 (or 0) selects uncategorized notes.
type Filter struct {
	Type  string `json:"type"`
	Value int64  `json:"value"`
}

const defaultPageSize = 50

// SearchNotes returns one page of notes matching keyword and filter,
// pinned first, then most recently updated. A non-empty keyword restricts
// candidates to shadow-index matches before the filter stage. Pages are
// 1-based.
func (r *Repository) SearchNotes(keyword string, f Filter, page, pageSize int) []Note {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if page < 1 {
		page = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	where, args := r.buildFilterLocked(keyword, f)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.conn.Query(`
		SELECT `+noteColumns+`
		FROM notes
		WHERE `+where+`
		ORDER BY is_pinned DESC, updated_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		r.logger.Error("search failed", slog.String("keyword", keyword), slog.String("error", err.Error()))
		return nil
	}
	defer rows.Close()
	return collectNotes(rows, r.logger)
}

// NotesCount returns the total for the same keyword and filter SearchNotes
// would use, so page counts always agree with page contents.
func (r *Repository) NotesCount(keyword string, f Filter) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	where, args := r.buildFilterLocked(keyword, f)
	var n int
	if err := r.conn.QueryRow(`SELECT count(*) FROM notes WHERE `+where, args...).Scan(&n); err != nil {
		r.logger.Error("count failed", slog.String("keyword", keyword), slog.String("error", err.Error()))
		return 0
	}
	return n
}

// buildFilterLocked translates keyword + filter into a WHERE clause. Search,
// count and facet stats all go through here, so their predicate evaluation
// can never disagree.
func (r *Repository) buildFilterLocked(keyword string, f Filter) (string, []any) {
	var conds []string
	var args []any

	// Trash inverts the default non-deleted restriction.
	if f.Type == FilterTrash {
		conds = append(conds, "is_deleted = 1")
	} else {
		conds = append(conds, "is_deleted = 0")
	}

	if keyword != "" {
		clause, a := searchMatchClause(keyword)
		conds = append(conds, clause)
		args = append(args, a...)
	}

	switch f.Type {
	case FilterCategory:
		if f.Value <= 0 {
			conds = append(conds, "category_id IS NULL")
		} else {
			conds = append(conds, "category_id = ?")
			args = append(args, f.Value)
		}
	case FilterToday:
		start, end := dayBounds(r.clock)
		conds = append(conds, "updated_at >= ? AND updated_at < ?")
		args = append(args, start, end)
	case FilterBookmark:
		conds = append(conds, "is_favorite = 1")
	case FilterUntagged:
		conds = append(conds, "(tags IS NULL OR tags = '')")
	}

	return strings.Join(conds, " AND "), args
}

// dayBounds returns the unix range of the current local calendar day.
func dayBounds(clock func() time.Time) (int64, int64) {
	now := clock()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start.Unix(), start.AddDate(0, 0, 1).Unix()
}
