package processing

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/example/analysis-worker/internal/plugin"
)

// BinaryName is the file, relative to the analysis folder, holding the
// analyzed sample.
const BinaryName = "binary"

// Static fingerprints the analyzed sample.
type Static struct {
	path    string
	maxSize int64
}

// Key implements plugin.Processing.
func (s *Static) Key() string { return "static" }

// ConfigSource implements plugin.Configurable.
func (s *Static) ConfigSource() string { return "static" }

// Configure implements plugin.Configurable.
func (s *Static) Configure(opts plugin.Options) error {
	s.maxSize = int64(opts.Int("max_size", 0))
	return nil
}

// SetPath implements plugin.PathSetter.
func (s *Static) SetPath(p string) { s.path = p }

// Run implements plugin.Processing. It declines when the analysis has no
// sample, for example URL analyses.
func (s *Static) Run(ctx context.Context) (any, error) {
	target := filepath.Join(s.path, BinaryName)
	info, err := os.Stat(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil, plugin.ErrNotImplemented
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, plugin.NewProcessingError("%s is a directory", target)
	}
	if s.maxSize > 0 && info.Size() > s.maxSize {
		return nil, plugin.NewProcessingError("sample is %d bytes, limit is %d", info.Size(), s.maxSize)
	}

	f, err := os.Open(filepath.Clean(target))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	md5h, sha1h, sha256h := md5.New(), sha1.New(), sha256.New() // #nosec G401
	size, err := io.Copy(io.MultiWriter(md5h, sha1h, sha256h), f)
	if err != nil {
		return nil, plugin.WrapProcessingError(err, "read sample")
	}

	return map[string]any{
		"file": map[string]any{
			"size":   size,
			"md5":    hex.EncodeToString(md5h.Sum(nil)),
			"sha1":   hex.EncodeToString(sha1h.Sum(nil)),
			"sha256": hex.EncodeToString(sha256h.Sum(nil)),
		},
	}, nil
}
