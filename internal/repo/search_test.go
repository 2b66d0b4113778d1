package repo

import (
	"fmt"
	"testing"
	"time"
)

func TestSearchKeyword(t *testing.T) {
	r := testRepo(t)
	hit := mustAdd(t, r, NoteInput{Title: "Groceries", Content: "remember the persimmons"})
	mustAdd(t, r, NoteInput{Title: "Standup", Content: "deploy on thursday"})

	got := r.SearchNotes("persimmons", Filter{Type: FilterAll}, 1, 10)
	if len(got) != 1 || got[0].ID != hit.ID {
		t.Fatalf("keyword search = %+v, want the groceries note", got)
	}

	// Title matches too.
	got = r.SearchNotes("Groceries", Filter{Type: FilterAll}, 1, 10)
	if len(got) != 1 {
		t.Errorf("title search = %d hits, want 1", len(got))
	}

	if got := r.SearchNotes("nonexistent", Filter{Type: FilterAll}, 1, 10); len(got) != 0 {
		t.Errorf("miss returned %d hits", len(got))
	}
}

func TestSearchReflectsEdits(t *testing.T) {
	r := testRepo(t)
	n := mustAdd(t, r, NoteInput{Title: "Draft", Content: "original wording"})

	if !r.UpdateNoteField(n.ID, FieldContent, "rewritten entirely") {
		t.Fatal("edit failed")
	}
	if got := r.SearchNotes("original", Filter{Type: FilterAll}, 1, 10); len(got) != 0 {
		t.Error("stale content still searchable after edit")
	}
	if got := r.SearchNotes("rewritten", Filter{Type: FilterAll}, 1, 10); len(got) != 1 {
		t.Error("new content not searchable after edit")
	}
}

func TestSearchFilterCategory(t *testing.T) {
	r := testRepo(t)
	catID, err := r.AddCategory("Work", 0, "")
	if err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	filed := mustAdd(t, r, NoteInput{Content: "filed", CategoryID: catID})
	loose := mustAdd(t, r, NoteInput{Content: "loose"})

	got := r.SearchNotes("", Filter{Type: FilterCategory, Value: catID}, 1, 10)
	if len(got) != 1 || got[0].ID != filed.ID {
		t.Fatalf("category filter = %+v", got)
	}

	// Value 0 selects uncategorized notes.
	got = r.SearchNotes("", Filter{Type: FilterCategory, Value: 0}, 1, 10)
	if len(got) != 1 || got[0].ID != loose.ID {
		t.Fatalf("uncategorized filter = %+v", got)
	}
}

func TestSearchFilterBookmarkAndUntagged(t *testing.T) {
	r := testRepo(t)
	fav := mustAdd(t, r, NoteInput{Content: "starred", Tags: []string{"x"}})
	bare := mustAdd(t, r, NoteInput{Content: "plain"})
	r.UpdateNoteField(fav.ID, FieldFavorite, true)

	got := r.SearchNotes("", Filter{Type: FilterBookmark}, 1, 10)
	if len(got) != 1 || got[0].ID != fav.ID {
		t.Errorf("bookmark filter = %+v", got)
	}

	got = r.SearchNotes("", Filter{Type: FilterUntagged}, 1, 10)
	if len(got) != 1 || got[0].ID != bare.ID {
		t.Errorf("untagged filter = %+v", got)
	}
}

func TestSearchFilterToday(t *testing.T) {
	now := time.Date(2024, 6, 12, 15, 0, 0, 0, time.Local)
	current := now
	r := testRepo(t, WithClock(func() time.Time { return current }))

	current = now.AddDate(0, 0, -3)
	mustAdd(t, r, NoteInput{Content: "from monday"})

	current = now
	fresh := mustAdd(t, r, NoteInput{Content: "from today"})

	got := r.SearchNotes("", Filter{Type: FilterToday}, 1, 10)
	if len(got) != 1 || got[0].ID != fresh.ID {
		t.Fatalf("today filter = %+v", got)
	}
}

func TestSearchKeywordPlusFilter(t *testing.T) {
	r := testRepo(t)
	fav := mustAdd(t, r, NoteInput{Content: "lighthouse on the coast"})
	mustAdd(t, r, NoteInput{Content: "lighthouse inland"})
	r.UpdateNoteField(fav.ID, FieldFavorite, true)

	got := r.SearchNotes("lighthouse", Filter{Type: FilterBookmark}, 1, 10)
	if len(got) != 1 || got[0].ID != fav.ID {
		t.Fatalf("combined filter = %+v", got)
	}
}

func TestSearchPaginationConsistency(t *testing.T) {
	r := testRepo(t)
	const total = 7
	for i := 0; i < total; i++ {
		mustAdd(t, r, NoteInput{Title: fmt.Sprintf("note %d", i), Content: "paged walrus"})
	}

	f := Filter{Type: FilterAll}
	if n := r.NotesCount("walrus", f); n != total {
		t.Fatalf("count = %d, want %d", n, total)
	}

	seen := make(map[int64]bool)
	fetched := 0
	for page := 1; ; page++ {
		batch := r.SearchNotes("walrus", f, page, 3)
		if len(batch) == 0 {
			break
		}
		for _, n := range batch {
			if seen[n.ID] {
				t.Fatalf("note %d appeared on two pages", n.ID)
			}
			seen[n.ID] = true
		}
		fetched += len(batch)
		if page > total {
			t.Fatal("pagination never terminated")
		}
	}
	if fetched != total {
		t.Errorf("pages delivered %d notes, count promised %d", fetched, total)
	}
}

func TestSearchPageDefaults(t *testing.T) {
	r := testRepo(t)
	mustAdd(t, r, NoteInput{Content: "defaults"})

	// Page 0 and negative sizes fall back to sane values.
	if got := r.SearchNotes("", Filter{Type: FilterAll}, 0, -5); len(got) != 1 {
		t.Errorf("defaulted page = %d notes, want 1", len(got))
	}
}
