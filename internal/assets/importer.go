package assets

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/charscene/internal/engine/scene"
	"github.com/Faultbox/charscene/internal/logger"
)

// Importer loads scene files through a Manager.
type Importer struct {
	manager *Manager
	log     *zap.Logger
}

// NewImporter creates an importer reading from m.
func NewImporter(m *Manager) *Importer {
	return &Importer{
		manager: m,
		log:     logger.Named("assets"),
	}
}

// ImportTask is one in-flight import. It resolves exactly once.
type ImportTask struct {
	Path string

	done   chan struct{}
	err    error
	result *ImportResult
	once   sync.Once
}

// Done is closed after the import's callback has run.
func (t *ImportTask) Done() <-chan struct{} {
	return t.done
}

// Err returns the import error. Valid after Done is closed.
func (t *ImportTask) Err() error {
	return t.err
}

// Result returns the imported objects, nil on failure. Valid after Done is closed.
func (t *ImportTask) Result() *ImportResult {
	return t.result
}

// resolve runs exactly one callback. An onSuccess error rejects the
// result: its objects are removed from the scene and the task fails with
// that error.
func (t *ImportTask) resolve(res *ImportResult, err error, onSuccess func(*ImportResult) error, onError func(error)) {
	t.once.Do(func() {
		defer close(t.done)
		if err == nil && onSuccess != nil {
			if err = onSuccess(res); err != nil {
				res.Dispose()
				res = nil
			}
		}
		t.result, t.err = res, err
		if err != nil && onError != nil {
			onError(err)
		}
	})
}

// ImportMesh loads basePath+fileName in the background and adds its
// contents to sc. Reading and parsing happen off the engine thread;
// scene objects are created and called back on the engine thread, through
// sc.Post. onSuccess may reject the result by returning an error, which
// then goes to onError like a load failure.
func (im *Importer) ImportMesh(sc *scene.Scene, basePath, fileName string, onSuccess func(*ImportResult) error, onError func(error)) *ImportTask {
	task := &ImportTask{
		Path: Clean(basePath + fileName),
		done: make(chan struct{}),
	}

	go func() {
		start := time.Now()
		data, err := im.manager.Load(task.Path)
		var file *BabylonFile
		if err == nil {
			file, err = DecodeBabylon(data)
		}
		if err != nil {
			err = fmt.Errorf("importing %s: %w", task.Path, err)
		}

		sc.Post(func() {
			if err != nil {
				im.log.Warn("import failed", zap.String("path", task.Path), zap.Error(err))
				task.resolve(nil, err, onSuccess, onError)
				return
			}
			res := file.Instantiate(sc, basePath)
			im.log.Info("import complete",
				zap.String("path", task.Path),
				zap.Int("meshes", len(res.Meshes)),
				zap.Int("skeletons", len(res.Skeletons)),
				zap.Duration("elapsed", time.Since(start)),
			)
			task.resolve(res, nil, onSuccess, onError)
		})
	}()

	return task
}
