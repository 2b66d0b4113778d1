package repo

// Notifier receives change notifications from the repository. Notifications
// are emitted after the repository lock is released, so a listener may call
// straight back into the repository without deadlocking.
//
// NoteAdded carries the stored row so consumers can prepend without a full
// refresh; NotesChanged and CategoriesChanged are coarse signals and
// consumers are expected to re-query.
type Notifier interface {
	NoteAdded(Note)
	NotesChanged()
	CategoriesChanged()
}

func (r *Repository) currentNotifier() Notifier {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notifier
}

func (r *Repository) notifyNoteAdded(note Note) {
	if n := r.currentNotifier(); n != nil {
		n.NoteAdded(note)
	}
}

func (r *Repository) notifyNotesChanged() {
	if n := r.currentNotifier(); n != nil {
		n.NotesChanged()
	}
}

func (r *Repository) notifyCategoriesChanged() {
	if n := r.currentNotifier(); n != nil {
		n.CategoriesChanged()
	}
}
