package watch

import (
	"context"
	"log"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"voicelens/internal/config"
)

// Intake accepts a payload file dropped into the inbox. Implemented by the
// application layer; the watcher only detects files.
type Intake interface {
	SubmitFile(ctx context.Context, path string) error
}

// Watcher monitors INBOX_DIR for vendor payload files and hands them to the
// intake. Files are named <vendor>__<anything>.json.
type Watcher struct {
	cfg    config.Config
	intake Intake
}

func New(cfg config.Config, intake Intake) *Watcher {
	return &Watcher{cfg: cfg, intake: intake}
}

func (w *Watcher) Start(ctx context.Context) error {
	if !w.cfg.EnableWatcher {
		log.Println("watcher disabled")
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-watcher.Events:
				if evt.Op&(fsnotify.Create|fsnotify.Rename) != 0 {
					if IsPayloadFile(evt.Name) {
						if err := w.intake.SubmitFile(ctx, evt.Name); err != nil {
							log.Printf("intake %s: %v", filepath.Base(evt.Name), err)
						}
					}
				}
			case err := <-watcher.Errors:
				log.Printf("watcher error: %v", err)
			}
		}
	}()
	return watcher.Add(w.cfg.InboxDir)
}

// IsPayloadFile reports whether a path looks like a vendor payload drop.
func IsPayloadFile(path string) bool {
	base := filepath.Base(path)
	if strings.ToLower(filepath.Ext(base)) != ".json" {
		return false
	}
	vendor, _ := SplitPayloadName(base)
	return vendor != ""
}

// SplitPayloadName extracts the vendor and remainder from a payload file
// name. Returns an empty vendor when the name has no vendor prefix.
func SplitPayloadName(base string) (vendor, rest string) {
	name := strings.TrimSuffix(base, filepath.Ext(base))
	vendor, rest, ok := strings.Cut(name, "__")
	if !ok || vendor == "" || rest == "" {
		return "", ""
	}
	return strings.ToLower(vendor), rest
}

// Backfill submits payload files already sitting in the inbox.
func (w *Watcher) Backfill(ctx context.Context) error {
	entries, err := filepath.Glob(filepath.Join(w.cfg.InboxDir, "*"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		if IsPayloadFile(e) {
			if err := w.intake.SubmitFile(ctx, e); err != nil {
				log.Printf("backfill %s: %v", filepath.Base(e), err)
			}
		}
	}
	return nil
}
