// Package processing contains the built-in processing modules. Each module
// reads the artifacts of a completed analysis run and contributes one entry
// to the results mapping.
package processing

import "github.com/example/analysis-worker/internal/plugin"

// Register adds the built-in processing modules to reg.
func Register(reg *plugin.Registry) error {
	modules := []struct {
		name    string
		factory plugin.ProcessingFactory
	}{
		{"analysisinfo", func() plugin.Processing { return NewAnalysisInfo() }},
		{"static", func() plugin.Processing { return &Static{} }},
		{"dropped", func() plugin.Processing { return &Dropped{} }},
	}

	for _, m := range modules {
		if err := reg.RegisterProcessing(m.name, m.factory); err != nil {
			return err
		}
	}
	return nil
}
