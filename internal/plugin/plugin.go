// Package plugin defines the execution contract shared by processing and
// signature plugins, and the registry used to discover them.
//
// Processing plugins are treated as mutually independent: the registry makes
// no promise about the order in which they are instantiated or run, and a
// processing plugin cannot read another plugin's output.
package plugin

import "context"

// Results maps a processing plugin key to the value that plugin returned.
type Results map[string]any

// Processing extracts structured facts from a completed analysis run.
//
// Run should return maps, slices, scalars or structs with exported fields
// only. Signatures see a deep copy of the results in which unexported struct
// fields are zero.
type Processing interface {
	// Key is the results key this plugin owns.
	Key() string
	Run(ctx context.Context) (any, error)
}

// Configurable is implemented by plugins that want their configuration
// loaded before Run is called.
type Configurable interface {
	// ConfigSource names the configuration the loader should resolve.
	ConfigSource() string
	Configure(opts Options) error
}

// PathSetter is implemented by plugins that need the analysis input path.
type PathSetter interface {
	SetPath(analysisPath string)
}

// ConfigLoader resolves a plugin configuration source into options.
type ConfigLoader interface {
	Load(source string) (Options, error)
}

// Signature is a behavioral rule evaluated against the processing results.
type Signature interface {
	Meta() SignatureMeta
	// Run receives a private copy of the results and reports whether the
	// rule matched.
	Run(ctx context.Context, results Results) (bool, error)
}

// DataProvider exposes auxiliary data a signature gathered while running.
type DataProvider interface {
	Data() any
}

// SignatureMeta carries the descriptive fields of a signature.
type SignatureMeta struct {
	Name        string
	Description string
	Severity    int
	References  []string
	Alert       bool
	Enabled     bool
}

// Match is the record produced for every signature that matched.
type Match struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Severity    int      `json:"severity"`
	References  []string `json:"references"`
	Data        any      `json:"data"`
	Alert       bool     `json:"alert"`
}

// NewMatch materializes a match record from a signature's declared fields.
func NewMatch(sig Signature) Match {
	meta := sig.Meta()
	m := Match{
		Name:        meta.Name,
		Description: meta.Description,
		Severity:    meta.Severity,
		References:  meta.References,
		Alert:       meta.Alert,
	}
	if dp, ok := sig.(DataProvider); ok {
		m.Data = dp.Data()
	}
	if m.References == nil {
		m.References = []string{}
	}
	return m
}

// BaseSignature can be embedded by signature implementations to provide Meta
// and Data from plain fields.
type BaseSignature struct {
	SignatureMeta
	Extra any
}

// Meta implements Signature.
func (b *BaseSignature) Meta() SignatureMeta {
	return b.SignatureMeta
}

// Data implements DataProvider.
func (b *BaseSignature) Data() any {
	return b.Extra
}
