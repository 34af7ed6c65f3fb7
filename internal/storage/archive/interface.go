package archive

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/newthinker/scorecard/internal/core"
)

// Storage defines the interface for cold/archive storage backends.
// Read returns an error matching core.ErrNotFound for missing paths.
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// Options selects and configures a backend.
type Options struct {
	Type string // "", "localfs" or "s3"
	Path string
	S3   S3Config
}

// New opens the backend named by opts.Type. An empty type disables
// archiving and returns a nil Storage.
func New(opts Options) (Storage, error) {
	switch opts.Type {
	case "":
		return nil, nil
	case "localfs":
		return NewLocalFS(opts.Path)
	case "s3":
		return NewS3(opts.S3)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown archive type %q", opts.Type))
	}
}

const scoresRoot = "scores"

// ScoreKey is the archive path of a ticker's report for one day:
// scores/<TICKER>/<YYYY-MM-DD>.json. Rescoring on the same day overwrites.
func ScoreKey(ticker string, asOf time.Time) string {
	return path.Join(scoresRoot, strings.ToUpper(ticker), asOf.UTC().Format("2006-01-02")+".json")
}

// ScorePrefix is the archive prefix holding every report for ticker.
func ScorePrefix(ticker string) string {
	return path.Join(scoresRoot, strings.ToUpper(ticker)) + "/"
}

func validPath(p string) error {
	if p == "" || strings.HasPrefix(p, "/") {
		return core.WrapError(core.ErrInvalidInput, fmt.Errorf("invalid archive path %q", p))
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return core.WrapError(core.ErrInvalidInput, fmt.Errorf("invalid archive path %q", p))
		}
	}
	return nil
}
