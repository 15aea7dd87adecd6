package feed

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/SmitUplenchwar2687/meshflow/internal/snapshot"
)

// FileSource reloads a snapshot file whenever it changes on disk.
type FileSource struct {
	path string
}

// NewFileSource watches path. The file must exist when Run starts.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Run implements Source. The parent directory is watched rather than the
// file, so editors that save by rename are picked up.
func (s *FileSource) Run(ctx context.Context, apply ApplyFunc) error {
	abs, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", s.path, err)
	}

	g, err := snapshot.Load(abs)
	if err != nil {
		return err
	}
	s.deliver(apply, g)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	log.WithField("path", abs).Info("watching snapshot file")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			g, err := snapshot.Load(abs)
			if err != nil {
				log.WithError(err).WithField("path", abs).Warn("skipping bad snapshot")
				continue
			}
			s.deliver(apply, g)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("file watcher error")
		}
	}
}

func (s *FileSource) deliver(apply ApplyFunc, g snapshot.Graph) {
	if err := apply(g); err != nil {
		log.WithError(err).WithField("path", s.path).Warn("snapshot rejected")
		return
	}
	log.WithFields(log.Fields{
		"path":  s.path,
		"nodes": len(g.Nodes),
		"edges": len(g.Edges),
	}).Debug("snapshot applied")
}
