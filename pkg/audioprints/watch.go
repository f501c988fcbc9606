package audioprints

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

func isWavFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wav")
}

// Watch indexes WAV files that appear in dir until ctx is cancelled. A file
// is picked up once it has seen no write for the configured settle time, so
// partially copied files are not fingerprinted. onIndexed, if set, receives
// each outcome.
func (s *audioprintsService) Watch(ctx context.Context, dir string, onIndexed func(IndexResult)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	s.log.Infof("Watching %s for new WAV files", dir)

	settle := s.config.WatchSettle
	tick := time.NewTicker(max(settle/4, 10*time.Millisecond))
	defer tick.Stop()

	pending := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isWavFile(ev.Name) {
				continue
			}
			switch {
			case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
				pending[ev.Name] = time.Now()
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				delete(pending, ev.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warnf("Watcher error: %v", err)

		case now := <-tick.C:
			for path, last := range pending {
				if now.Sub(last) < settle {
					continue
				}
				delete(pending, path)

				res := s.indexOne(ctx, path)
				if onIndexed != nil {
					onIndexed(res)
				}
			}
		}
	}
}
