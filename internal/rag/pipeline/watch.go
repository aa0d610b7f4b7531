package pipeline

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/akolanti/ExamAPI/internal/rag/ingest"
	"github.com/fsnotify/fsnotify"
)

// GroupBuilder is satisfied by VersionedBuilder.
type GroupBuilder interface {
	BuildDir(ctx context.Context, dir string) ([]string, error)
}

// Watch re-runs the pipeline whenever supported exam files appear or change under the
// exams directory. Bursts of events inside debounce trigger a single run, after which
// groups (when set) rebuilds the collections of every directory that changed.
// It returns when ctx is done.
func (p *Pipeline) Watch(ctx context.Context, debounce time.Duration, groups GroupBuilder) error {
	log := p.logger.FromContext(ctx)

	if err := os.MkdirAll(p.examsPath, 0o755); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addRecursive(watcher, p.examsPath); err != nil {
		return err
	}
	log.Info("Watching exams directory", "dir", p.examsPath)

	timer := time.NewTimer(debounce)
	timer.Stop()
	changed := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if e.Has(fsnotify.Create) {
				if info, err := os.Stat(e.Name); err == nil && info.IsDir() {
					if err := addRecursive(watcher, e.Name); err != nil {
						log.Error("Failed to watch new directory", "dir", e.Name, "error", err)
					}
					changed[e.Name] = struct{}{}
					timer.Reset(debounce)
					continue
				}
			}
			if !ingest.Supported(e.Name) {
				continue
			}
			if e.Has(fsnotify.Create) || e.Has(fsnotify.Write) || e.Has(fsnotify.Rename) {
				log.Debug("Exam file changed", "file", e.Name, "op", e.Op.String())
				changed[filepath.Dir(e.Name)] = struct{}{}
				timer.Reset(debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("Watcher error", "error", err)

		case <-timer.C:
			dirs := make([]string, 0, len(changed))
			for dir := range changed {
				dirs = append(dirs, dir)
			}
			clear(changed)
			go func() {
				task := p.Run(ctx)
				stats, err := task.Wait(ctx)
				if err != nil {
					log.Error("Pipeline run failed", "error", err)
					return
				}
				log.Info("Pipeline run complete", "stats", stats, "background", task.Background)
				if groups == nil {
					return
				}
				for _, dir := range dirs {
					keys, err := groups.BuildDir(ctx, dir)
					if err != nil {
						log.Error("Collection rebuild failed", "dir", dir, "error", err)
						continue
					}
					log.Info("Collections rebuilt", "dir", dir, "collections", keys)
				}
			}()
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
