// Package importer feeds notes into the repository from a drop folder.
// Any file placed under the watched root becomes a note; text files are
// ingested as content, everything else as a blob payload.
package importer

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/halvard/munin/internal/checksum"
	"github.com/halvard/munin/internal/repo"
)

// settleDelay is how long a file must stay quiet after its last write
// before it is ingested. Editors and downloads write in bursts.
const settleDelay = 300 * time.Millisecond

var textExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".log":      true,
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// Watch starts an fsnotify watcher on the drop folder root and ingests
// files until ctx is cancelled. Inserts go through the repository's async
// queue so a slow disk never stalls the watcher loop.
//
// New directories created at runtime are added to the watch list. Files
// already present when the watcher starts are ingested once on startup;
// duplicates are skipped by content hash.
func Watch(ctx context.Context, r *repo.Repository, root string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("importer: started", slog.String("root", root))

	ingestExisting(r, root, logger)

	// pending maps a path to its settle deadline. A single timer wakes
	// the loop when the earliest deadline passes.
	pending := make(map[string]time.Time)
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	schedule := func(path string) {
		pending[path] = time.Now().Add(settleDelay)
		if settleTimer == nil {
			settleTimer = time.NewTimer(settleDelay)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("importer: stopped")
			return nil

		case <-settleCh:
			now := time.Now()
			next := time.Duration(0)
			for path, deadline := range pending {
				if now.Before(deadline) {
					if wait := deadline.Sub(now); next == 0 || wait < next {
						next = wait
					}
					continue
				}
				delete(pending, path)
				ingestFile(r, path, logger)
			}
			if next > 0 {
				settleTimer.Reset(next)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("importer: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					ingestExisting(r, ev.Name, logger)
					continue
				}
			}

			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				schedule(ev.Name)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("importer: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

// ingestExisting picks up files already sitting in the drop folder.
func ingestExisting(r *repo.Repository, dir string, logger *slog.Logger) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ingestFile(r, path, logger)
		return nil
	})
}

// ingestFile reads a file and queues it as a note. Files whose content
// hash is already stored are skipped so re-saves do not pile up copies.
func ingestFile(r *repo.Repository, path string, logger *slog.Logger) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("importer: read failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	if len(data) == 0 {
		return
	}

	if r.HasContentHash(checksum.Sum(data)) {
		logger.Debug("importer: duplicate skipped", slog.String("path", path))
		return
	}

	in := repo.NoteInput{
		Title:  strings.TrimSuffix(name, filepath.Ext(name)),
		Source: "importer",
	}

	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case textExtensions[ext]:
		in.ItemType = repo.ItemTypeText
		in.Content = string(data)
	case imageExtensions[ext]:
		in.ItemType = repo.ItemTypeImage
		in.Blob = data
	default:
		in.ItemType = repo.ItemTypeFile
		in.Blob = data
	}

	if !r.AddNoteAsync(in) {
		logger.Warn("importer: queue rejected insert", slog.String("path", path))
		return
	}
	logger.Debug("importer: queued", slog.String("path", path), slog.String("type", in.ItemType))
}
