package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/halvard/munin/internal/repo"
)

// CreateNoteRequest is the request body for inserting a note.
type CreateNoteRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
	Color      string   `json:"color"`
	CategoryID int64    `json:"category_id"`
	ItemType   string   `json:"item_type"`
	Blob       []byte   `json:"data_blob"`
	Source     string   `json:"source"`
}

// Validate checks the request. Title and content may not both be empty
// unless the note carries a blob payload.
func (r CreateNoteRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.ItemType, validation.In("", repo.ItemTypeText, repo.ItemTypeImage, repo.ItemTypeFile, repo.ItemTypeFolder)),
		validation.Field(&r.CategoryID, validation.Min(0)),
	)
	if err != nil {
		return err
	}
	if r.Title == "" && r.Content == "" && len(r.Blob) == 0 {
		return validation.NewError("validation_empty_note", "a note needs a title, content or a payload")
	}
	return nil
}

// Input converts the request to the repository's insert shape.
func (r CreateNoteRequest) Input() repo.NoteInput {
	return repo.NoteInput{
		Title:      r.Title,
		Content:    r.Content,
		Tags:       r.Tags,
		Color:      r.Color,
		CategoryID: r.CategoryID,
		ItemType:   r.ItemType,
		Blob:       r.Blob,
		Source:     r.Source,
	}
}

// UpdateNoteRequest is the request body for a full note edit. Color and
// CategoryID are sentineled as in the repository: empty color and -1
// category mean "leave unchanged".
type UpdateNoteRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
	Color      string   `json:"color"`
	CategoryID *int64   `json:"category_id"`
}

// StateRequest mutates a single field of one note.
type StateRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// Validate checks the field is part of the mutable set.
func (r StateRequest) Validate() error {
	if !repo.Field(r.Field).Valid() {
		return validation.NewError("validation_bad_field", "field is not mutable")
	}
	return nil
}

// StateBatchRequest mutates the same field on several notes.
type StateBatchRequest struct {
	IDs   []int64 `json:"ids"`
	Field string  `json:"field"`
	Value any     `json:"value"`
}

// Validate checks ids are present and the field is mutable.
func (r StateBatchRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.IDs, validation.Required),
	); err != nil {
		return err
	}
	return StateRequest{Field: r.Field, Value: r.Value}.Validate()
}

// ToggleRequest flips a boolean status flag.
type ToggleRequest struct {
	Field string `json:"field"`
}

// Validate checks the field is one of the boolean flags.
func (r ToggleRequest) Validate() error {
	if !repo.Field(r.Field).IsFlag() {
		return validation.NewError("validation_bad_flag", "field is not a status flag")
	}
	return nil
}

// TagsRequest carries tags to add to a note.
type TagsRequest struct {
	Tags []string `json:"tags"`
}

// Validate requires at least one tag.
func (r TagsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Tags, validation.Required),
	)
}

// MoveCategoryRequest reassigns notes to a category; -1 clears it.
type MoveCategoryRequest struct {
	IDs        []int64 `json:"ids"`
	CategoryID int64   `json:"category_id"`
}

// Validate requires at least one id.
func (r MoveCategoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDs, validation.Required),
	)
}

// RenameTagRequest renames a tag across every note.
type RenameTagRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Validate requires both names.
func (r RenameTagRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.From, validation.Required),
		validation.Field(&r.To, validation.Required),
	)
}

// CreateCategoryRequest creates a category.
type CreateCategoryRequest struct {
	Name     string `json:"name"`
	ParentID int64  `json:"parent_id"`
	Color    string `json:"color"`
}

// Validate requires a name.
func (r CreateCategoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 128)),
	)
}

// UpdateCategoryRequest patches category attributes; nil fields are left
// unchanged.
type UpdateCategoryRequest struct {
	Name       *string `json:"name"`
	Color      *string `json:"color"`
	SortOrder  *int    `json:"sort_order"`
	PresetTags *string `json:"preset_tags"`
}

// CategoryPasswordRequest sets or clears a category password.
type CategoryPasswordRequest struct {
	Password string `json:"password"`
	Hint     string `json:"hint"`
}

// VerifyPasswordRequest checks a candidate category password.
type VerifyPasswordRequest struct {
	Password string `json:"password"`
}

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []repo.Note `json:"notes"`
	Total int         `json:"total"`
}

// TagListResponse wraps the global tag list.
type TagListResponse struct {
	Tags []string `json:"tags"`
}

// CategoryListResponse wraps the category tree listing.
type CategoryListResponse struct {
	Categories []repo.Category `json:"categories"`
}
