package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/halvard/munin/internal/apperr"
	"github.com/halvard/munin/internal/repo"
)

// Handler holds API route handlers.
type Handler struct {
	repo *repo.Repository
}

// NewHandler creates a new Handler.
func NewHandler(r *repo.Repository) *Handler {
	return &Handler{repo: r}
}

func noteID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 32<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if validator, ok := v.(interface{ Validate() error }); ok {
		if err := validator.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return false
		}
	}
	return true
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List all non-deleted notes, pinned first
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, _ *http.Request) {
	notes := h.repo.GetAllNotes()
	if notes == nil {
		notes = []repo.Note{}
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note by id
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		int	true	"Note id"
//	@Success		200	{object}	repo.Note
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid note id")
		return
	}
	note, err := h.repo.GetNoteByID(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
		} else {
			slog.Error("get note failed", slog.Int64("id", id), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Insert a note and return the stored row
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to insert"
//	@Success		201		{object}	repo.Note
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	note, err := h.repo.AddNote(req.Input())
	if err != nil {
		slog.Error("create note failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// CreateNoteAsync handles POST /api/notes/async. The insert is deferred to
// the repository's write queue; the caller gets 202 immediately and the
// stored row arrives later on the event stream.
//
//	@Summary		Queue a note insert without blocking on storage
//	@Tags			notes
//	@Accept			json
//	@Success		202	"Accepted"
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/async [post]
func (h *Handler) CreateNoteAsync(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !h.repo.AddNoteAsync(req.Input()) {
		writeError(w, http.StatusServiceUnavailable, "repository is shutting down")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Rewrite a note's editable fields
//	@Tags			notes
//	@Accept			json
//	@Param			id		path	int					true	"Note id"
//	@Param			body	body	UpdateNoteRequest	true	"New field values"
//	@Success		200		{object}	okResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid note id")
		return
	}
	var req UpdateNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	categoryID := int64(-1)
	if req.CategoryID != nil {
		categoryID = *req.CategoryID
	}
	writeOK(w, h.repo.UpdateNote(id, req.Title, req.Content, req.Tags, req.Color, categoryID))
}

// UpdateState handles PATCH /api/notes/{id}/state.
//
//	@Summary		Mutate a single field from the closed mutable set
//	@Tags			notes
//	@Accept			json
//	@Param			id		path	int				true	"Note id"
//	@Param			body	body	StateRequest	true	"Field and value"
//	@Success		200		{object}	okResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/state [patch]
func (h *Handler) UpdateState(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid note id")
		return
	}
	var req StateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeOK(w, h.repo.UpdateNoteField(id, repo.Field(req.Field), req.Value))
}

// UpdateStateBatch handles POST /api/notes/state.
//
//	@Summary		Mutate the same field on several notes
//	@Tags			notes
//	@Accept			json
//	@Param			body	body	StateBatchRequest	true	"Ids, field and value"
//	@Success		200		{object}	okResponse
//	@Security		BearerAuth
//	@Router			/notes/state [post]
func (h *Handler) UpdateStateBatch(w http.ResponseWriter, r *http.Request) {
	var req StateBatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeOK(w, h.repo.UpdateNoteFieldBatch(req.IDs, repo.Field(req.Field), req.Value))
}

// ToggleState handles POST /api/notes/{id}/toggle.
//
//	@Summary		Flip one of the boolean status flags
//	@Tags			notes
//	@Accept			json
//	@Param			id		path	int				true	"Note id"
//	@Param			body	body	ToggleRequest	true	"Flag to flip"
//	@Success		200		{object}	okResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/toggle [post]
func (h *Handler) ToggleState(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid note id")
		return
	}
	var req ToggleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeOK(w, h.repo.ToggleNoteFlag(id, repo.Field(req.Field)))
}

// DeleteNote handles DELETE /api/notes/{id} (soft delete).
//
//	@Summary		Move a note to the trash
//	@Tags			notes
//	@Param			id	path	int	true	"Note id"
//	@Success		204	"Trashed"
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid note id")
		return
	}
	if !h.repo.DeleteNote(id) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchNotes handles GET /api/notes/search.
//
//	@Summary		Paginated faceted search
//	@Tags			search
//	@Produce		json
//	@Param			q			query		string	false	"Keyword matched against title and content"
//	@Param			filter		query		string	false	"Filter type"	Enums(all, category, today, bookmark, trash, untagged)
//	@Param			value		query		int		false	"Filter value (category id)"
//	@Param			page		query		int		false	"1-based page"
//	@Param			page_size	query		int		false	"Page size"
//	@Success		200			{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes/search [get]
func (h *Handler) SearchNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	keyword := q.Get("q")
	filter := filterFromQuery(q.Get("filter"), q.Get("value"))
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	notes := h.repo.SearchNotes(keyword, filter, page, pageSize)
	if notes == nil {
		notes = []repo.Note{}
	}
	total := h.repo.NotesCount(keyword, filter)
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: total})
}

// EmptyTrash handles POST /api/trash/empty (permanent delete).
//
//	@Summary		Permanently remove all trashed notes
//	@Tags			trash
//	@Success		200	{object}	okResponse
//	@Security		BearerAuth
//	@Router			/trash/empty [post]
func (h *Handler) EmptyTrash(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, h.repo.EmptyTrash())
}

// RestoreTrash handles POST /api/trash/restore.
//
//	@Summary		Restore every trashed note
//	@Tags			trash
//	@Success		200	{object}	okResponse
//	@Security		BearerAuth
//	@Router			/trash/restore [post]
func (h *Handler) RestoreTrash(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, h.repo.RestoreAllFromTrash())
}

// AddTags handles POST /api/notes/{id}/tags.
func (h *Handler) AddTags(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid note id")
		return
	}
	var req TagsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeOK(w, h.repo.AddTagsToNote(id, req.Tags))
}

// RemoveTag handles DELETE /api/notes/{id}/tags/{tag}.
func (h *Handler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid note id")
		return
	}
	tag := chi.URLParam(r, "tag")
	if tag == "" {
		writeError(w, http.StatusBadRequest, "tag is required")
		return
	}
	writeOK(w, h.repo.RemoveTagFromNote(id, tag))
}

// MoveToCategory handles POST /api/notes/category.
func (h *Handler) MoveToCategory(w http.ResponseWriter, r *http.Request) {
	var req MoveCategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeOK(w, h.repo.MoveNotesToCategoryBatch(req.IDs, req.CategoryID))
}

// ListTags handles GET /api/tags.
func (h *Handler) ListTags(w http.ResponseWriter, _ *http.Request) {
	tags := h.repo.GetAllTags()
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: tags})
}

// RenameTag handles POST /api/tags/rename.
//
//	@Summary		Rename a tag on every note that carries it
//	@Tags			tags
//	@Accept			json
//	@Param			body	body	RenameTagRequest	true	"Old and new tag name"
//	@Success		200		{object}	okResponse
//	@Security		BearerAuth
//	@Router			/tags/rename [post]
func (h *Handler) RenameTag(w http.ResponseWriter, r *http.Request) {
	var req RenameTagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeOK(w, h.repo.RenameTagGlobally(req.From, req.To))
}

// DeleteTag handles DELETE /api/tags/{tag}.
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	if tag == "" {
		writeError(w, http.StatusBadRequest, "tag is required")
		return
	}
	writeOK(w, h.repo.DeleteTagGlobally(tag))
}

// ListCategories handles GET /api/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	cats := h.repo.GetAllCategories()
	if cats == nil {
		cats = []repo.Category{}
	}
	writeJSON(w, http.StatusOK, CategoryListResponse{Categories: cats})
}

// CreateCategory handles POST /api/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id, err := h.repo.AddCategory(req.Name, req.ParentID, req.Color)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "parent category does not exist")
			return
		}
		slog.Error("create category failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// UpdateCategory handles PATCH /api/categories/{id}.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	var req UpdateCategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ok = true
	if req.Name != nil {
		ok = h.repo.RenameCategory(id, *req.Name) && ok
	}
	if req.Color != nil {
		ok = h.repo.SetCategoryColor(id, *req.Color) && ok
	}
	if req.SortOrder != nil {
		ok = h.repo.SetCategorySortOrder(id, *req.SortOrder) && ok
	}
	if req.PresetTags != nil {
		ok = h.repo.SetCategoryPresetTags(id, *req.PresetTags) && ok
	}
	writeOK(w, ok)
}

// DeleteCategory handles DELETE /api/categories/{id}. Notes filed under the
// category survive and become uncategorized.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	if !h.repo.DeleteCategory(id) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetCategoryPassword handles POST /api/categories/{id}/password.
func (h *Handler) SetCategoryPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	var req CategoryPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeOK(w, h.repo.SetCategoryPassword(id, req.Password, req.Hint))
}

// VerifyCategoryPassword handles POST /api/categories/{id}/verify.
func (h *Handler) VerifyCategoryPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	var req VerifyPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"verified": h.repo.VerifyCategoryPassword(id, req.Password),
		"locked":   h.repo.IsCategoryLocked(id),
		"hint":     h.repo.CategoryPasswordHint(id),
	})
}

// Counts handles GET /api/stats/counts.
//
//	@Summary		Sidebar counters as one consistent snapshot
//	@Tags			stats
//	@Produce		json
//	@Success		200	{object}	repo.Counts
//	@Security		BearerAuth
//	@Router			/stats/counts [get]
func (h *Handler) Counts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.repo.GetCounts())
}

// Stats handles GET /api/stats/filters.
//
//	@Summary		Facet counts for the current filter context
//	@Tags			stats
//	@Produce		json
//	@Param			q		query		string	false	"Keyword"
//	@Param			filter	query		string	false	"Filter type"
//	@Param			value	query		int		false	"Filter value"
//	@Success		200		{object}	repo.FilterStats
//	@Security		BearerAuth
//	@Router			/stats/filters [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := filterFromQuery(q.Get("filter"), q.Get("value"))
	writeJSON(w, http.StatusOK, h.repo.GetFilterStats(q.Get("q"), filter))
}

func filterFromQuery(filterType, rawValue string) repo.Filter {
	if filterType == "" {
		filterType = repo.FilterAll
	}
	value, err := strconv.ParseInt(rawValue, 10, 64)
	if err != nil {
		value = -1
	}
	return repo.Filter{Type: filterType, Value: value}
}
