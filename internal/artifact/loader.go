package artifact

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"
)

// LoadError means the artifact cannot be used. No estimate can be served.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load model artifact %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadFile opens and decodes the bundle at path. Paths ending in .gz are gunzipped.
func LoadFile(path string) (*Artifact, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer file.Close()

	var r io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
		defer gz.Close()
		r = gz
	}

	a, err := Decode(r)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return a, nil
}

// Loader loads the artifact once per process and hands out the cached result.
// A failed load is cached too; there is no reload.
type Loader struct {
	path   string
	logger *logrus.Logger
	load   func(string) (*Artifact, error)

	once     sync.Once
	artifact *Artifact
	err      error
}

func NewLoader(path string, logger *logrus.Logger) *Loader {
	if logger == nil {
		logger = logrus.New()
	}
	return &Loader{
		path:   path,
		logger: logger,
		load:   LoadFile,
	}
}

// Get returns the artifact, loading it on first use
func (l *Loader) Get() (*Artifact, error) {
	l.once.Do(func() {
		l.artifact, l.err = l.load(l.path)
		if l.err != nil {
			l.logger.WithError(l.err).WithField("path", l.path).Error("Model artifact unavailable")
			return
		}
		l.logger.WithFields(logrus.Fields{
			"path":      l.path,
			"columns":   l.artifact.Columns().Len(),
			"algorithm": l.artifact.Metadata().Algorithm,
			"version":   l.artifact.Metadata().Version,
		}).Info("Loaded model artifact")
	})
	return l.artifact, l.err
}

func (l *Loader) Path() string {
	return l.path
}
