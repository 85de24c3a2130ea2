// internal/storage/archive/interface.go
package archive

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/newthinker/zella/internal/core"
)

// Storage is cold storage for journal exports and saved profiles.
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path. Missing paths yield core.ErrNoData.
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths under the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// Config selects an archive backend.
type Config struct {
	Backend string   `mapstructure:"backend"` // local or s3
	Path    string   `mapstructure:"path"`
	S3      S3Config `mapstructure:"s3"`
}

// New builds the configured backend.
func New(cfg Config) (Storage, error) {
	switch cfg.Backend {
	case "", "local":
		fs, err := NewLocalFS(cfg.Path)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case "s3":
		if cfg.S3.Bucket == "" {
			return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive.s3.bucket"))
		}
		s, err := NewS3(cfg.S3)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown archive backend %q", cfg.Backend))
	}
}

// ExportPath is where a journal export taken at ts is written.
func ExportPath(userID string, ts time.Time) string {
	return path.Join("exports", userID, ts.UTC().Format("20060102T150405Z")+".json")
}

// ProfilePath is where a named session profile is persisted.
func ProfilePath(name string) string {
	return path.Join("profiles", name+".json")
}

// clean rejects paths escaping the archive root.
func clean(p string) (string, error) {
	c := path.Clean("/" + strings.TrimSpace(p))
	if c == "/" || strings.Contains(p, "..") {
		return "", core.WrapError(core.ErrInvalidTrade, fmt.Errorf("invalid archive path %q", p))
	}
	return strings.TrimPrefix(c, "/"), nil
}
