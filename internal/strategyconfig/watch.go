package strategyconfig

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/wonny/acadport/backend/pkg/logger"
)

// Watch reloads path on every write and calls onChange with the new policy.
// A reload that fails to parse or validate keeps the previous policy.
// Runs until ctx is cancelled.
func Watch(ctx context.Context, path string, log *logger.Logger, onChange func(*Config, []byte)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	log = log.WithField("path", path)
	log.Info("Watching policy file")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// 에디터의 atomic save(rename)는 Create로 들어온다
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, data, err := Load(path)
			if err != nil {
				log.WithError(err).Error("Policy reload failed, keeping previous policy")
				continue
			}

			hash, _ := Hash(cfg)
			log.WithField("hash", hash).Info("Policy reloaded")
			onChange(cfg, data)

			// atomic save로 inode가 바뀐 경우 다시 등록
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Error("Policy watcher error")
		}
	}
}
