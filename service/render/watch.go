package render

import (
	"context"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the template set whenever a file in the template directory
// changes. It runs until ctx is cancelled. A failed reload is logged and
// served as a render error until the next successful one.
func (r *Renderer) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(r.dir); err != nil {
		return err
	}

	log.Infof("Watching %s for template changes", r.dir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			if err := r.Reload(); err != nil {
				log.Errorf("Template reload after %s failed: %v", event, err)
				continue
			}
			log.Infof("Templates reloaded after %s", event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Errorf("Template watcher error: %v", err)
		}
	}
}
