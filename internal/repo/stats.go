package repo

import (
	"log/slog"
	"strconv"
	"time"
)

// Counts is the fixed-shape aggregate that drives the sidebar. All counters
// cover non-deleted notes except Trash, which counts deleted ones. The whole
// snapshot is computed under one lock acquisition.
type Counts struct {
	All           int           `json:"all"`
	Today         int           `json:"today"`
	Uncategorized int           `json:"uncategorized"`
	Untagged      int           `json:"untagged"`
	Bookmark      int           `json:"bookmark"`
	Trash         int           `json:"trash"`
	PerCategory   map[int64]int `json:"per_category"`
}

// FilterStats holds grouped counts over the current filtered candidate set,
// used to populate the faceted filter checkboxes.
type FilterStats struct {
	Stars       map[string]int `json:"stars"`
	Types       map[string]int `json:"types"`
	Colors      map[string]int `json:"colors"`
	Tags        map[string]int `json:"tags"`
	DateCreated map[string]int `json:"date_create"`
}

// GetCounts computes the sidebar counters as one consistent snapshot.
func (r *Repository) GetCounts() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := Counts{PerCategory: make(map[int64]int)}
	count := func(query string, args ...any) int {
		var n int
		if err := r.conn.QueryRow(query, args...).Scan(&n); err != nil {
			r.logger.Error("count query failed", slog.String("error", err.Error()))
			return 0
		}
		return n
	}

	dayStart, dayEnd := dayBounds(r.clock)
	c.All = count(`SELECT count(*) FROM notes WHERE is_deleted = 0`)
	c.Today = count(`SELECT count(*) FROM notes WHERE is_deleted = 0 AND updated_at >= ? AND updated_at < ?`, dayStart, dayEnd)
	c.Uncategorized = count(`SELECT count(*) FROM notes WHERE is_deleted = 0 AND category_id IS NULL`)
	c.Untagged = count(`SELECT count(*) FROM notes WHERE is_deleted = 0 AND (tags IS NULL OR tags = '')`)
	c.Bookmark = count(`SELECT count(*) FROM notes WHERE is_deleted = 0 AND is_favorite = 1`)
	c.Trash = count(`SELECT count(*) FROM notes WHERE is_deleted = 1`)

	rows, err := r.conn.Query(`
		SELECT category_id, count(*)
		FROM notes
		WHERE is_deleted = 0 AND category_id IS NOT NULL
		GROUP BY category_id
	`)
	if err != nil {
		r.logger.Error("per-category count failed", slog.String("error", err.Error()))
		return c
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err == nil {
			c.PerCategory[id] = n
		}
	}
	return c
}

// GetFilterStats groups the current candidate set by rating, type, color,
// tag and creation bucket. It reuses the exact search predicate, so facet
// counts and search results never disagree.
func (r *Repository) GetFilterStats(keyword string, f Filter) FilterStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := FilterStats{
		Stars:       make(map[string]int),
		Types:       make(map[string]int),
		Colors:      make(map[string]int),
		Tags:        make(map[string]int),
		DateCreated: make(map[string]int),
	}

	where, args := r.buildFilterLocked(keyword, f)
	rows, err := r.conn.Query(`
		SELECT rating, item_type, color, tags, created_at
		FROM notes
		WHERE `+where, args...)
	if err != nil {
		r.logger.Error("filter stats failed", slog.String("error", err.Error()))
		return stats
	}
	defer rows.Close()

	now := r.clock()
	for rows.Next() {
		var rating int
		var itemType, color, tags string
		var createdAt int64
		if err := rows.Scan(&rating, &itemType, &color, &tags, &createdAt); err != nil {
			continue
		}
		if rating > 0 {
			stats.Stars[strconv.Itoa(rating)]++
		}
		stats.Types[itemType]++
		stats.Colors[color]++
		for _, t := range splitTags(tags) {
			stats.Tags[t]++
		}
		for _, bucket := range creationBuckets(time.Unix(createdAt, 0), now) {
			stats.DateCreated[bucket]++
		}
	}
	return stats
}

// creationBuckets maps a creation time onto the fixed sidebar buckets. A
// note created today also counts toward week and month.
func creationBuckets(created, now time.Time) []string {
	var buckets []string

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !created.Before(dayStart) {
		buckets = append(buckets, "today")
	} else if !created.Before(dayStart.AddDate(0, 0, -1)) {
		buckets = append(buckets, "yesterday")
	}

	// Week starts Monday.
	offset := (int(now.Weekday()) + 6) % 7
	weekStart := dayStart.AddDate(0, 0, -offset)
	if !created.Before(weekStart) {
		buckets = append(buckets, "week")
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if !created.Before(monthStart) {
		buckets = append(buckets, "month")
	}
	return buckets
}
