package processor

import (
	"github.com/cockroachdb/errors"
	"github.com/mitchellh/copystructure"

	"github.com/example/analysis-worker/internal/plugin"
)

// Snapshot returns a deep copy of results sharing no maps, slices or
// pointers with the source. Unexported struct fields are not copied.
func Snapshot(results plugin.Results) (plugin.Results, error) {
	if results == nil {
		return plugin.Results{}, nil
	}

	copied, err := copystructure.Copy(map[string]any(results))
	if err != nil {
		return nil, errors.Wrap(err, "copy results")
	}

	m, ok := copied.(map[string]any)
	if !ok {
		return nil, errors.AssertionFailedf("unexpected snapshot type %T", copied)
	}
	return plugin.Results(m), nil
}
