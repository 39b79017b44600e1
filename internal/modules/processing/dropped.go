package processing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/example/analysis-worker/internal/plugin"
)

// DroppedDir is the folder, relative to the analysis folder, holding files
// the sample wrote during execution.
const DroppedDir = "files"

// Dropped lists the files dumped during the analysis.
type Dropped struct {
	path     string
	maxFiles int
}

// Key implements plugin.Processing.
func (d *Dropped) Key() string { return "dropped" }

// ConfigSource implements plugin.Configurable.
func (d *Dropped) ConfigSource() string { return "dropped" }

// Configure implements plugin.Configurable.
func (d *Dropped) Configure(opts plugin.Options) error {
	d.maxFiles = opts.Int("max_files", 0)
	return nil
}

// SetPath implements plugin.PathSetter.
func (d *Dropped) SetPath(p string) { d.path = p }

// Run implements plugin.Processing.
func (d *Dropped) Run(ctx context.Context) (any, error) {
	dir := filepath.Join(d.path, DroppedDir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []any{}, nil
	}
	if err != nil {
		return nil, plugin.WrapProcessingError(err, "list dropped files")
	}

	files := []any{}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !entry.Type().IsRegular() {
			continue
		}
		if d.maxFiles > 0 && len(files) >= d.maxFiles {
			break
		}

		size, sum, err := hashFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, plugin.WrapProcessingError(err, "hash "+entry.Name())
		}
		files = append(files, map[string]any{
			"name":   entry.Name(),
			"size":   size,
			"sha256": sum,
		})
	}
	return files, nil
}

func hashFile(path string) (int64, string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", err
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}
