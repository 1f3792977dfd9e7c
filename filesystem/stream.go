package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/boyter/gocodewalker"
)

// StreamFiles walks root, honouring .gitignore and .ignore files, and sends
// every file whose extension is in extensions (all files when empty). If root
// is a file it is sent on its own. The channel is closed when the walk ends;
// wait then returns the first error seen, or ctx.Err() if ctx ended the walk.
func StreamFiles(ctx context.Context, root string, extensions ...string) (files <-chan *gocodewalker.File, wait func() error) {
	fileListQueue := make(chan *gocodewalker.File, 100)

	info, err := os.Stat(root)
	if err != nil {
		close(fileListQueue)
		return fileListQueue, func() error { return err }
	}
	if !info.IsDir() {
		fileListQueue <- &gocodewalker.File{Location: root, Filename: filepath.Base(root)}
		close(fileListQueue)
		return fileListQueue, func() error { return nil }
	}

	fileWalker := gocodewalker.NewFileWalker(root, fileListQueue)
	fileWalker.AllowListExtensions = extensions

	var (
		mu      sync.Mutex
		walkErr []error
	)
	fileWalker.SetErrorHandler(func(err error) bool {
		mu.Lock()
		walkErr = append(walkErr, err)
		mu.Unlock()
		return true
	})

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		if err := fileWalker.Start(); err != nil {
			mu.Lock()
			walkErr = append(walkErr, err)
			mu.Unlock()
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
			fileWalker.Terminate()
		case <-finished:
		}
	}()

	return fileListQueue, func() error {
		<-finished
		if err := ctx.Err(); err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		return errors.Join(walkErr...)
	}
}
