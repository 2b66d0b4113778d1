package repo

import (
	"errors"
	"sync"
	"testing"

	"github.com/halvard/munin/internal/apperr"
	"github.com/halvard/munin/internal/checksum"
)

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu         sync.Mutex
	added      []Note
	changed    int
	categories int
}

func (n *recordingNotifier) NoteAdded(note Note) {
	n.mu.Lock()
	n.added = append(n.added, note)
	n.mu.Unlock()
}

func (n *recordingNotifier) NotesChanged() {
	n.mu.Lock()
	n.changed++
	n.mu.Unlock()
}

func (n *recordingNotifier) CategoriesChanged() {
	n.mu.Lock()
	n.categories++
	n.mu.Unlock()
}

func (n *recordingNotifier) snapshot() (added int, changed int, categories int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.added), n.changed, n.categories
}

func TestAddNoteDefaults(t *testing.T) {
	r := testRepo(t)
	n := mustAdd(t, r, NoteInput{Content: "buy milk"})

	if n.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if n.Color != DefaultColor {
		t.Errorf("color = %q, want %q", n.Color, DefaultColor)
	}
	if n.ItemType != ItemTypeText {
		t.Errorf("item type = %q, want %q", n.ItemType, ItemTypeText)
	}
	if n.CategoryID != 0 {
		t.Errorf("category = %d, want 0", n.CategoryID)
	}
	if n.Rating != 0 || n.Pinned || n.Locked || n.Favorite || n.Deleted {
		t.Errorf("fresh note has non-default state: %+v", n)
	}
	if n.ContentHash == "" {
		t.Error("expected content hash to be computed")
	}
	if n.CreatedAt.IsZero() || !n.CreatedAt.Equal(n.UpdatedAt) {
		t.Errorf("timestamps: created %v updated %v", n.CreatedAt, n.UpdatedAt)
	}
}

func TestAddNoteNotifiesWithStoredRow(t *testing.T) {
	rec := &recordingNotifier{}
	r := testRepo(t, WithNotifier(rec))
	n := mustAdd(t, r, NoteInput{Title: "Ping"})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.added) != 1 {
		t.Fatalf("added notifications = %d, want 1", len(rec.added))
	}
	if rec.added[0].ID != n.ID || rec.added[0].Title != "Ping" {
		t.Errorf("notification row = %+v", rec.added[0])
	}
}

func TestGetNoteByID_NotFound(t *testing.T) {
	r := testRepo(t)
	_, err := r.GetNoteByID(999)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetAllNotesPinnedFirst(t *testing.T) {
	r := testRepo(t)
	older := mustAdd(t, r, NoteInput{Title: "older"})
	newer := mustAdd(t, r, NoteInput{Title: "newer"})
	if !r.UpdateNoteField(older.ID, FieldPinned, true) {
		t.Fatal("pin failed")
	}

	notes := r.GetAllNotes()
	if len(notes) != 2 {
		t.Fatalf("len = %d, want 2", len(notes))
	}
	if notes[0].ID != older.ID {
		t.Errorf("pinned note should sort first, got %q", notes[0].Title)
	}
	if notes[1].ID != newer.ID {
		t.Errorf("second note = %q", notes[1].Title)
	}
}

func TestUpdateNoteSentinels(t *testing.T) {
	r := testRepo(t)
	catID, err := r.AddCategory("Work", 0, "#ff0000")
	if err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	n := mustAdd(t, r, NoteInput{Title: "v1", Content: "first", Color: "#111111", CategoryID: catID})

	// Empty color and -1 category leave both unchanged.
	if !r.UpdateNote(n.ID, "v2", "second", []string{"t"}, "", -1) {
		t.Fatal("update failed")
	}
	got, _ := r.GetNoteByID(n.ID)
	if got.Title != "v2" || got.Content != "second" {
		t.Errorf("title/content = %q/%q", got.Title, got.Content)
	}
	if got.Color != "#111111" {
		t.Errorf("color changed to %q, sentinel should keep it", got.Color)
	}
	if got.CategoryID != catID {
		t.Errorf("category changed to %d, sentinel should keep it", got.CategoryID)
	}

	// Category 0 clears the assignment.
	if !r.UpdateNote(n.ID, "v3", "third", nil, "#222222", 0) {
		t.Fatal("update failed")
	}
	got, _ = r.GetNoteByID(n.ID)
	if got.Color != "#222222" {
		t.Errorf("color = %q, want #222222", got.Color)
	}
	if got.CategoryID != 0 {
		t.Errorf("category = %d, want cleared", got.CategoryID)
	}
}

func TestUpdateNoteField_RejectsUnknownColumn(t *testing.T) {
	r := testRepo(t)
	n := mustAdd(t, r, NoteInput{Content: "immutable hash"})

	for _, f := range []Field{"content_hash", "created_at", "id", "title; DROP TABLE notes"} {
		if r.UpdateNoteField(n.ID, f, "x") {
			t.Errorf("mutation of %q should be rejected", f)
		}
	}

	got, _ := r.GetNoteByID(n.ID)
	if got.ContentHash != n.ContentHash {
		t.Error("rejected mutation must not touch the row")
	}
}

func TestUpdateNoteField_RatingClamped(t *testing.T) {
	r := testRepo(t)
	n := mustAdd(t, r, NoteInput{Content: "stars"})

	if !r.UpdateNoteField(n.ID, FieldRating, 9) {
		t.Fatal("set rating failed")
	}
	got, _ := r.GetNoteByID(n.ID)
	if got.Rating != 5 {
		t.Errorf("rating = %d, want clamped to 5", got.Rating)
	}

	if !r.UpdateNoteField(n.ID, FieldRating, -3) {
		t.Fatal("set rating failed")
	}
	got, _ = r.GetNoteByID(n.ID)
	if got.Rating != 0 {
		t.Errorf("rating = %d, want clamped to 0", got.Rating)
	}
}

func TestUpdateNoteField_FlagAcceptsNumbers(t *testing.T) {
	r := testRepo(t)
	n := mustAdd(t, r, NoteInput{Content: "flags"})

	// JSON decodes booleans as bool but many callers send 0/1.
	if !r.UpdateNoteField(n.ID, FieldFavorite, float64(1)) {
		t.Fatal("numeric flag rejected")
	}
	got, _ := r.GetNoteByID(n.ID)
	if !got.Favorite {
		t.Error("favorite should be set")
	}

	if r.UpdateNoteField(n.ID, FieldFavorite, "yes") {
		t.Error("string flag value should be rejected")
	}
}

func TestToggleNoteFlag(t *testing.T) {
	r := testRepo(t)
	n := mustAdd(t, r, NoteInput{Content: "toggle me"})

	if !r.ToggleNoteFlag(n.ID, FieldPinned) {
		t.Fatal("toggle failed")
	}
	got, _ := r.GetNoteByID(n.ID)
	if !got.Pinned {
		t.Error("expected pinned after first toggle")
	}

	if !r.ToggleNoteFlag(n.ID, FieldPinned) {
		t.Fatal("toggle failed")
	}
	got, _ = r.GetNoteByID(n.ID)
	if got.Pinned {
		t.Error("expected unpinned after second toggle")
	}

	if r.ToggleNoteFlag(n.ID, FieldRating) {
		t.Error("toggling a non-flag field should be rejected")
	}
}

func TestUpdateNoteFieldBatch(t *testing.T) {
	r := testRepo(t)
	a := mustAdd(t, r, NoteInput{Content: "a"})
	b := mustAdd(t, r, NoteInput{Content: "b"})

	if !r.UpdateNoteFieldBatch([]int64{a.ID, b.ID}, FieldLocked, true) {
		t.Fatal("batch failed")
	}
	for _, id := range []int64{a.ID, b.ID} {
		got, _ := r.GetNoteByID(id)
		if !got.Locked {
			t.Errorf("note %d not locked", id)
		}
	}

	// A missing id fails the batch but existing rows are still written.
	if r.UpdateNoteFieldBatch([]int64{a.ID, 9999}, FieldLocked, false) {
		t.Error("batch with missing id should report failure")
	}
	got, _ := r.GetNoteByID(a.ID)
	if got.Locked {
		t.Error("existing note in failed batch should still be updated")
	}

	if r.UpdateNoteFieldBatch(nil, FieldLocked, true) {
		t.Error("empty batch should report failure")
	}
}

func TestBatchMutationNotifiesOnce(t *testing.T) {
	rec := &recordingNotifier{}
	r := testRepo(t, WithNotifier(rec))
	a := mustAdd(t, r, NoteInput{Content: "a"})
	b := mustAdd(t, r, NoteInput{Content: "b"})

	_, before, _ := rec.snapshot()
	r.UpdateNoteFieldBatch([]int64{a.ID, b.ID}, FieldFavorite, true)
	_, after, _ := rec.snapshot()
	if after-before != 1 {
		t.Errorf("batch emitted %d changed signals, want 1", after-before)
	}
}

func TestSoftDeleteLifecycle(t *testing.T) {
	r := testRepo(t)
	keep := mustAdd(t, r, NoteInput{Title: "keeper", Content: "stays visible"})
	gone := mustAdd(t, r, NoteInput{Title: "goner", Content: "xylophone rehearsal"})

	if !r.DeleteNote(gone.ID) {
		t.Fatal("delete failed")
	}

	notes := r.GetAllNotes()
	if len(notes) != 1 || notes[0].ID != keep.ID {
		t.Fatalf("listing after delete = %+v", notes)
	}

	// The row survives and is directly addressable.
	got, err := r.GetNoteByID(gone.ID)
	if err != nil {
		t.Fatalf("trashed note should still load: %v", err)
	}
	if !got.Deleted {
		t.Error("expected deleted flag set")
	}

	// Keyword search no longer sees it.
	if hits := r.SearchNotes("xylophone", Filter{Type: FilterAll}, 1, 10); len(hits) != 0 {
		t.Errorf("trashed note still searchable: %+v", hits)
	}

	// The trash filter does.
	if hits := r.SearchNotes("", Filter{Type: FilterTrash}, 1, 10); len(hits) != 1 {
		t.Errorf("trash listing = %d notes, want 1", len(hits))
	}

	if !r.RestoreAllFromTrash() {
		t.Fatal("restore failed")
	}
	if hits := r.SearchNotes("xylophone", Filter{Type: FilterAll}, 1, 10); len(hits) != 1 {
		t.Errorf("restored note not searchable: %+v", hits)
	}
	if got := len(r.GetAllNotes()); got != 2 {
		t.Errorf("notes after restore = %d, want 2", got)
	}
}

func TestEmptyTrashIsPermanent(t *testing.T) {
	r := testRepo(t)
	n := mustAdd(t, r, NoteInput{Content: "ephemeral"})
	r.DeleteNote(n.ID)

	if !r.EmptyTrash() {
		t.Fatal("empty trash failed")
	}
	if _, err := r.GetNoteByID(n.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("note should be gone, err = %v", err)
	}

	// Restore finds nothing to bring back.
	r.RestoreAllFromTrash()
	if got := len(r.GetAllNotes()); got != 0 {
		t.Errorf("notes after restore of emptied trash = %d, want 0", got)
	}
}

func TestHasContentHash(t *testing.T) {
	r := testRepo(t)
	content := "the same clipboard capture twice"
	n := mustAdd(t, r, NoteInput{Content: content})

	if !r.HasContentHash(checksum.Sum([]byte(content))) {
		t.Error("expected hash hit for stored content")
	}
	if r.HasContentHash(checksum.Sum([]byte("something else"))) {
		t.Error("unexpected hash hit")
	}
	if r.HasContentHash("") {
		t.Error("empty hash must never match")
	}

	// Trashed notes do not block re-capture.
	r.DeleteNote(n.ID)
	if r.HasContentHash(checksum.Sum([]byte(content))) {
		t.Error("trashed note should not count as a duplicate")
	}
}

func TestGetAllTags(t *testing.T) {
	r := testRepo(t)
	mustAdd(t, r, NoteInput{Content: "a", Tags: []string{"zebra", "apple"}})
	mustAdd(t, r, NoteInput{Content: "b", Tags: []string{"apple", "mango"}})
	trashed := mustAdd(t, r, NoteInput{Content: "c", Tags: []string{"hidden"}})
	r.DeleteNote(trashed.ID)

	tags := r.GetAllTags()
	want := []string{"apple", "mango", "zebra"}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tags[%d] = %q, want %q", i, tags[i], want[i])
		}
	}
}

func TestMoveNoteToCategory(t *testing.T) {
	r := testRepo(t)
	catID, err := r.AddCategory("Inbox", 0, "")
	if err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	a := mustAdd(t, r, NoteInput{Content: "a"})
	b := mustAdd(t, r, NoteInput{Content: "b"})

	if !r.MoveNotesToCategoryBatch([]int64{a.ID, b.ID}, catID) {
		t.Fatal("move failed")
	}
	got, _ := r.GetNoteByID(a.ID)
	if got.CategoryID != catID {
		t.Errorf("category = %d, want %d", got.CategoryID, catID)
	}

	// Moving to 0 clears the assignment.
	if !r.MoveNoteToCategory(a.ID, 0) {
		t.Fatal("clear failed")
	}
	got, _ = r.GetNoteByID(a.ID)
	if got.CategoryID != 0 {
		t.Errorf("category = %d, want 0", got.CategoryID)
	}
}
