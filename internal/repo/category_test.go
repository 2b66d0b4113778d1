package repo

import (
	"errors"
	"testing"

	"github.com/halvard/munin/internal/apperr"
)

func TestAddCategory(t *testing.T) {
	r := testRepo(t)
	rootID, err := r.AddCategory("Projects", 0, "#00ff00")
	if err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	childID, err := r.AddCategory("Go", rootID, "")
	if err != nil {
		t.Fatalf("AddCategory child: %v", err)
	}

	cats := r.GetAllCategories()
	if len(cats) != 2 {
		t.Fatalf("categories = %d, want 2", len(cats))
	}
	byID := make(map[int64]Category)
	for _, c := range cats {
		byID[c.ID] = c
	}
	if byID[rootID].ParentID != 0 {
		t.Errorf("root parent = %d, want 0", byID[rootID].ParentID)
	}
	if byID[childID].ParentID != rootID {
		t.Errorf("child parent = %d, want %d", byID[childID].ParentID, rootID)
	}
	if byID[childID].SortOrder <= byID[rootID].SortOrder {
		t.Errorf("later category should sort after earlier one: %d vs %d",
			byID[childID].SortOrder, byID[rootID].SortOrder)
	}
}

func TestAddCategory_Rejections(t *testing.T) {
	r := testRepo(t)
	if _, err := r.AddCategory("", 0, ""); !errors.Is(err, apperr.ErrRejected) {
		t.Errorf("empty name err = %v, want ErrRejected", err)
	}
	if _, err := r.AddCategory("Orphan", 12345, ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing parent err = %v, want ErrNotFound", err)
	}
}

func TestUpdateCategoryAttributes(t *testing.T) {
	r := testRepo(t)
	id, _ := r.AddCategory("Old", 0, "")

	if !r.RenameCategory(id, "New") {
		t.Fatal("rename failed")
	}
	if !r.SetCategoryColor(id, "#abcdef") {
		t.Fatal("set color failed")
	}
	if !r.SetCategorySortOrder(id, 42) {
		t.Fatal("set sort order failed")
	}
	if !r.SetCategoryPresetTags(id, "work,urgent") {
		t.Fatal("set preset tags failed")
	}

	cats := r.GetAllCategories()
	if len(cats) != 1 {
		t.Fatalf("categories = %d", len(cats))
	}
	c := cats[0]
	if c.Name != "New" || c.Color != "#abcdef" || c.SortOrder != 42 {
		t.Errorf("category = %+v", c)
	}
	if got := r.GetCategoryPresetTags(id); got != "work,urgent" {
		t.Errorf("preset tags = %q", got)
	}

	if r.RenameCategory(id, "") {
		t.Error("empty rename should be rejected")
	}
	if r.RenameCategory(9999, "Ghost") {
		t.Error("renaming a missing category should fail")
	}
}

func TestDeleteCategoryKeepsNotesAndChildren(t *testing.T) {
	r := testRepo(t)
	parentID, _ := r.AddCategory("Parent", 0, "")
	childID, _ := r.AddCategory("Child", parentID, "")
	n := mustAdd(t, r, NoteInput{Content: "filed here", CategoryID: parentID})

	if !r.DeleteCategory(parentID) {
		t.Fatal("delete failed")
	}

	// The note survives, uncategorized.
	got, err := r.GetNoteByID(n.ID)
	if err != nil {
		t.Fatalf("note gone with its category: %v", err)
	}
	if got.CategoryID != 0 {
		t.Errorf("note category = %d, want 0", got.CategoryID)
	}

	// The child becomes a root category.
	cats := r.GetAllCategories()
	if len(cats) != 1 || cats[0].ID != childID {
		t.Fatalf("categories after delete = %+v", cats)
	}
	if cats[0].ParentID != 0 {
		t.Errorf("child parent = %d, want promoted to root", cats[0].ParentID)
	}
}

func TestCategoryPassword(t *testing.T) {
	r := testRepo(t)
	id, _ := r.AddCategory("Private", 0, "")

	// Unlocked: anything verifies, no lock reported.
	if r.IsCategoryLocked(id) {
		t.Error("fresh category should be unlocked")
	}
	if !r.VerifyCategoryPassword(id, "whatever") {
		t.Error("unlocked category should verify any password")
	}

	if !r.SetCategoryPassword(id, "hunter2", "the usual one") {
		t.Fatal("set password failed")
	}
	if !r.IsCategoryLocked(id) {
		t.Error("expected locked after setting password")
	}
	if !r.VerifyCategoryPassword(id, "hunter2") {
		t.Error("correct password rejected")
	}
	if r.VerifyCategoryPassword(id, "wrong") {
		t.Error("wrong password accepted")
	}
	if got := r.CategoryPasswordHint(id); got != "the usual one" {
		t.Errorf("hint = %q", got)
	}

	// The listing reports the lock but never the credential.
	cats := r.GetAllCategories()
	if len(cats) != 1 || !cats[0].Locked {
		t.Errorf("listing should mark category locked: %+v", cats)
	}

	// Clearing the password also clears the hint.
	if !r.SetCategoryPassword(id, "", "stale hint") {
		t.Fatal("clear password failed")
	}
	if r.IsCategoryLocked(id) {
		t.Error("expected unlocked after clearing")
	}
	if got := r.CategoryPasswordHint(id); got != "" {
		t.Errorf("hint after clear = %q", got)
	}
}

func TestVerifyCategoryPassword_MissingCategory(t *testing.T) {
	r := testRepo(t)
	if r.VerifyCategoryPassword(9999, "x") {
		t.Error("missing category should not verify")
	}
	if r.IsCategoryLocked(9999) {
		t.Error("missing category should not report locked")
	}
}
