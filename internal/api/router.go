package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/halvard/munin/internal/repo"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(r *repo.Repository, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(r)

	router := chi.NewRouter()
	router.Use(AuthMiddleware(authEnabled, token))

	// Notes.
	router.Get("/notes", h.ListNotes)
	router.Post("/notes", h.CreateNote)
	router.Post("/notes/async", h.CreateNoteAsync)
	router.Get("/notes/search", h.SearchNotes)
	router.Post("/notes/state", h.UpdateStateBatch)
	router.Post("/notes/category", h.MoveToCategory)
	router.Get("/notes/{id}", h.GetNote)
	router.Put("/notes/{id}", h.UpdateNote)
	router.Delete("/notes/{id}", h.DeleteNote)
	router.Patch("/notes/{id}/state", h.UpdateState)
	router.Post("/notes/{id}/toggle", h.ToggleState)
	router.Post("/notes/{id}/tags", h.AddTags)
	router.Delete("/notes/{id}/tags/{tag}", h.RemoveTag)

	// Trash.
	router.Post("/trash/empty", h.EmptyTrash)
	router.Post("/trash/restore", h.RestoreTrash)

	// Tags.
	router.Get("/tags", h.ListTags)
	router.Post("/tags/rename", h.RenameTag)
	router.Delete("/tags/{tag}", h.DeleteTag)

	// Categories.
	router.Get("/categories", h.ListCategories)
	router.Post("/categories", h.CreateCategory)
	router.Patch("/categories/{id}", h.UpdateCategory)
	router.Delete("/categories/{id}", h.DeleteCategory)
	router.Post("/categories/{id}/password", h.SetCategoryPassword)
	router.Post("/categories/{id}/verify", h.VerifyCategoryPassword)

	// Stats.
	router.Get("/stats/counts", h.Counts)
	router.Get("/stats/filters", h.Stats)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		router.Get("/events", sseHandler.ServeHTTP)
	}

	return router
}
