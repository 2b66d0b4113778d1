package repo

import (
	"reflect"
	"sort"
	"testing"
	"time"
)

func TestGetCounts(t *testing.T) {
	now := time.Date(2024, 6, 12, 15, 0, 0, 0, time.Local)
	current := now
	r := testRepo(t, WithClock(func() time.Time { return current }))

	catID, err := r.AddCategory("Work", 0, "")
	if err != nil {
		t.Fatalf("AddCategory: %v", err)
	}

	current = now.AddDate(0, 0, -5)
	mustAdd(t, r, NoteInput{Content: "old and tagged", Tags: []string{"t"}})

	current = now
	mustAdd(t, r, NoteInput{Content: "fresh untagged"})
	filed := mustAdd(t, r, NoteInput{Content: "filed", CategoryID: catID, Tags: []string{"t"}})
	r.UpdateNoteField(filed.ID, FieldFavorite, true)

	trashed := mustAdd(t, r, NoteInput{Content: "trashed"})
	r.DeleteNote(trashed.ID)

	c := r.GetCounts()
	if c.All != 3 {
		t.Errorf("all = %d, want 3", c.All)
	}
	// "old" was created five days ago but never touched since.
	if c.Today != 2 {
		t.Errorf("today = %d, want 2", c.Today)
	}
	if c.Uncategorized != 2 {
		t.Errorf("uncategorized = %d, want 2", c.Uncategorized)
	}
	if c.Untagged != 1 {
		t.Errorf("untagged = %d, want 1", c.Untagged)
	}
	if c.Bookmark != 1 {
		t.Errorf("bookmark = %d, want 1", c.Bookmark)
	}
	if c.Trash != 1 {
		t.Errorf("trash = %d, want 1", c.Trash)
	}
	if c.PerCategory[catID] != 1 {
		t.Errorf("per category = %v", c.PerCategory)
	}
}

func TestGetFilterStats(t *testing.T) {
	r := testRepo(t)
	a := mustAdd(t, r, NoteInput{Content: "a", Tags: []string{"go", "db"}, Color: "#111111"})
	mustAdd(t, r, NoteInput{Content: "b", Tags: []string{"go"}, Color: "#111111", ItemType: ItemTypeImage})
	r.UpdateNoteField(a.ID, FieldRating, 4)

	stats := r.GetFilterStats("", Filter{Type: FilterAll})

	// Unrated notes contribute no star bucket at all.
	if len(stats.Stars) != 1 || stats.Stars["4"] != 1 {
		t.Errorf("stars = %v", stats.Stars)
	}
	if stats.Types[ItemTypeText] != 1 || stats.Types[ItemTypeImage] != 1 {
		t.Errorf("types = %v", stats.Types)
	}
	if stats.Colors["#111111"] != 2 {
		t.Errorf("colors = %v", stats.Colors)
	}
	if stats.Tags["go"] != 2 || stats.Tags["db"] != 1 {
		t.Errorf("tags = %v", stats.Tags)
	}
	if stats.DateCreated["today"] != 2 {
		t.Errorf("date buckets = %v", stats.DateCreated)
	}
}

func TestGetFilterStatsSharesSearchPredicate(t *testing.T) {
	r := testRepo(t)
	mustAdd(t, r, NoteInput{Content: "quartz deposit", Tags: []string{"rock"}})
	mustAdd(t, r, NoteInput{Content: "granite slab", Tags: []string{"rock"}})

	stats := r.GetFilterStats("quartz", Filter{Type: FilterAll})
	if stats.Tags["rock"] != 1 {
		t.Errorf("facets should cover only keyword matches, tags = %v", stats.Tags)
	}

	count := r.NotesCount("quartz", Filter{Type: FilterAll})
	sum := 0
	for _, n := range stats.Types {
		sum += n
	}
	if sum != count {
		t.Errorf("type facet total = %d, search count = %d", sum, count)
	}
}

func TestCreationBuckets(t *testing.T) {
	// A Wednesday: the week bucket starts on Monday the 10th.
	now := time.Date(2024, 6, 12, 15, 0, 0, 0, time.Local)

	cases := []struct {
		name    string
		created time.Time
		want    []string
	}{
		{"this afternoon", time.Date(2024, 6, 12, 9, 0, 0, 0, time.Local), []string{"today", "week", "month"}},
		{"yesterday evening", time.Date(2024, 6, 11, 22, 0, 0, 0, time.Local), []string{"yesterday", "week", "month"}},
		{"monday", time.Date(2024, 6, 10, 0, 0, 0, 0, time.Local), []string{"week", "month"}},
		{"last weekend", time.Date(2024, 6, 8, 12, 0, 0, 0, time.Local), []string{"month"}},
		{"last month", time.Date(2024, 5, 20, 12, 0, 0, 0, time.Local), nil},
	}
	for _, tc := range cases {
		got := creationBuckets(tc.created, now)
		sort.Strings(got)
		want := append([]string(nil), tc.want...)
		sort.Strings(want)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s: buckets = %v, want %v", tc.name, got, tc.want)
		}
	}
}
