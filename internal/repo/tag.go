package repo

import (
	"log/slog"
	"strings"
)

// Tags are not first-class rows: each note carries a comma-joined,
// insertion-ordered list. Global operations rewrite that column on every
// note containing the tag.

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func joinTags(tags []string) string {
	var trimmed []string
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			trimmed = append(trimmed, t)
		}
	}
	return strings.Join(trimmed, ",")
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTagsToNote appends the given tags to a note, skipping ones it already
// has. Matching is trimmed and case-sensitive.
func (r *Repository) AddTagsToNote(id int64, tags []string) bool {
	r.mu.Lock()
	ok := func() bool {
		n, err := r.getNoteByIDLocked(id)
		if err != nil {
			return false
		}
		merged := n.Tags
		changed := false
		for _, t := range tags {
			if t = strings.TrimSpace(t); t == "" || containsTag(merged, t) {
				continue
			}
			merged = append(merged, t)
			changed = true
		}
		if !changed {
			return true
		}
		return r.setFieldLocked(id, FieldTags, merged)
	}()
	r.mu.Unlock()
	if ok {
		r.notifyNotesChanged()
	}
	return ok
}

// RemoveTagFromNote drops a single tag from a note.
func (r *Repository) RemoveTagFromNote(id int64, tag string) bool {
	tag = strings.TrimSpace(tag)
	r.mu.Lock()
	ok := func() bool {
		n, err := r.getNoteByIDLocked(id)
		if err != nil {
			return false
		}
		var remaining []string
		for _, t := range n.Tags {
			if t != tag {
				remaining = append(remaining, t)
			}
		}
		if len(remaining) == len(n.Tags) {
			return true
		}
		return r.setFieldLocked(id, FieldTags, remaining)
	}()
	r.mu.Unlock()
	if ok {
		r.notifyNotesChanged()
	}
	return ok
}

// RenameTagGlobally rewrites the tag list of every note containing from so
// that it contains to instead. Notes already carrying both keep a single
// copy of to.
func (r *Repository) RenameTagGlobally(from, to string) bool {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" || to == "" || from == to {
		return false
	}
	return r.rewriteTagEverywhere(from, func(tags []string) []string {
		var out []string
		for _, t := range tags {
			if t == from {
				t = to
			}
			if !containsTag(out, t) {
				out = append(out, t)
			}
		}
		return out
	})
}

// DeleteTagGlobally removes the tag from every note that has it.
func (r *Repository) DeleteTagGlobally(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	return r.rewriteTagEverywhere(tag, func(tags []string) []string {
		var out []string
		for _, t := range tags {
			if t != tag {
				out = append(out, t)
			}
		}
		return out
	})
}

func (r *Repository) rewriteTagEverywhere(tag string, rewrite func([]string) []string) bool {
	r.mu.Lock()
	ok := func() bool {
		if r.closed {
			return false
		}
		// LIKE narrows the candidate set; exact membership is checked on
		// the split list, since LIKE also matches substrings of other tags.
		rows, err := r.conn.Query(`SELECT id, tags FROM notes WHERE tags LIKE ?`, "%"+tag+"%")
		if err != nil {
			r.logger.Error("tag scan failed", slog.String("tag", tag), slog.String("error", err.Error()))
			return false
		}
		type pending struct {
			id   int64
			tags []string
		}
		var updates []pending
		for rows.Next() {
			var id int64
			var raw string
			if err := rows.Scan(&id, &raw); err != nil {
				continue
			}
			tags := splitTags(raw)
			if !containsTag(tags, tag) {
				continue
			}
			updates = append(updates, pending{id: id, tags: rewrite(tags)})
		}
		rows.Close()

		result := true
		for _, u := range updates {
			if !r.setFieldLocked(u.id, FieldTags, u.tags) {
				result = false
			}
		}
		return result
	}()
	r.mu.Unlock()
	if ok {
		r.notifyNotesChanged()
	}
	return ok
}
